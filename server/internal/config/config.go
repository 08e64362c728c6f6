package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Duration 是 time.Duration 的 yaml 包装：既认 "30s" 这种写法，
// 也认裸整数（按秒解释）。
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return errors.Wrapf(err, "parse duration %q", s)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return errors.Errorf("invalid duration: %s", value.Value)
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

// Std 转回标准库类型。
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config 全局配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Longpoll LongpollConfig `yaml:"longpoll"`
	Logging  LoggingConfig  `yaml:"logging"`
	Paths    PathsConfig    `yaml:"paths"`
}

type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	ReadTimeout Duration `yaml:"read_timeout"`
	// WriteTimeout 必须大于 longpoll.max_wait，否则挂起中的长轮询
	// 会被传输层掐断。0 表示不限制。
	WriteTimeout Duration `yaml:"write_timeout"`
}

type LongpollConfig struct {
	MaxWait Duration `yaml:"max_wait"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PathsConfig struct {
	// Static 前端静态文件目录；留空则不提供静态文件，未命中路由直接 404。
	Static string `yaml:"static"`
}

// Addr 返回监听地址。
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Default 返回不依赖配置文件的默认配置。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "",
			Port:        8080,
			ReadTimeout: Duration(15 * time.Second),
		},
		Longpoll: LongpollConfig{MaxWait: Duration(120 * time.Second)},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Paths:    PathsConfig{Static: "public"},
	}
}

// Load 从文件加载配置，path 为空时直接用默认值。
// 敏感或随部署变化的项允许用环境变量覆盖。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
	}

	if static := os.Getenv("TALKSHARE_STATIC"); static != "" {
		cfg.Paths.Static = static
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}

	return cfg, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Longpoll.MaxWait <= 0 {
		return errors.New("longpoll.max_wait must be positive")
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= c.Longpoll.MaxWait {
		return errors.New("server.write_timeout must exceed longpoll.max_wait")
	}
	return nil
}

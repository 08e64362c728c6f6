package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"talk-share/server/internal/api"
	"talk-share/server/internal/broker"
	"talk-share/server/internal/config"
	"talk-share/server/internal/talks"
)

func main() {
	root := &cobra.Command{
		Use:           "talkshare",
		Short:         "talk sharing server with long-poll synchronization",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCommand())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	var (
		configPath string
		addr       string
		staticDir  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if staticDir != "" {
				cfg.Paths.Static = staticDir
			}

			setupLogging(cfg)

			listen := cfg.Addr()
			if addr != "" {
				listen = addr
			}

			return serve(cmd.Context(), cfg, listen)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "yaml config path (optional, defaults apply without it)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides config")
	cmd.Flags().StringVar(&staticDir, "static", "", "static files directory, overrides config")

	return cmd
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func serve(ctx context.Context, cfg *config.Config, listen string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := talks.NewInMemoryStore()
	b := broker.New(store, broker.WithMaxWait(cfg.Longpoll.MaxWait.Std()))
	server := api.NewServer(cfg, store, b)

	httpServer := &http.Server{
		Addr:         listen,
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", listen).Str("static", cfg.Paths.Static).Msg("talkshare server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")

	// 关停窗口要盖过最长的长轮询，不然挂着的客户端会被硬切。
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Longpoll.MaxWait.Std()+5*time.Second)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}

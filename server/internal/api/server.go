package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"talk-share/server/internal/broker"
	"talk-share/server/internal/config"
	"talk-share/server/internal/model"
	"talk-share/server/internal/router"
	"talk-share/server/internal/talks"
)

// Server 把入站请求接到路由器上，并把结构化结果写回传输层。
// 未命中路由的请求回退给静态文件服务，这是给浏览器端页面留的口子。
type Server struct {
	config *config.Config
	store  talks.Store
	broker *broker.Broker
	router *router.Router
	static http.Handler
}

func NewServer(cfg *config.Config, store talks.Store, b *broker.Broker) *Server {
	s := &Server{
		config: cfg,
		store:  store,
		broker: b,
	}

	if cfg.Paths.Static != "" {
		s.static = http.FileServer(http.Dir(cfg.Paths.Static))
	}

	s.routes()
	return s
}

// routes 注册全部路由。注册顺序就是匹配顺序，别随手调整。
func (s *Server) routes() {
	r := router.New()
	r.Handle(http.MethodGet, "/talks", s.handleListTalks)
	r.Handle(http.MethodGet, "/talks/:title", s.handleGetTalk)
	r.Handle(http.MethodPut, "/talks/:title", s.handlePutTalk)
	r.Handle(http.MethodDelete, "/talks/:title", s.handleDeleteTalk)
	r.Handle(http.MethodPost, "/talks/:title/comments", s.handleAddComment)
	s.router = r
}

// Routes 返回对外暴露的 http.Handler。
func (s *Server) Routes() http.Handler {
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	resp, ok := s.router.Resolve(r.Context(), r)
	if !ok {
		if s.static != nil {
			s.static.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
		return
	}

	writeResponse(w, resp)

	log.Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", resp.Status).
		Dur("duration", time.Since(start)).
		Msg("request handled")
}

// writeResponse 把结构化结果一次性写回：头、状态码、正文，缺省纯文本类型。
func writeResponse(w http.ResponseWriter, resp *router.Response) {
	for key, vals := range resp.Header {
		for _, v := range vals {
			w.Header().Add(key, v)
		}
	}
	if len(resp.Body) > 0 && w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}

	w.WriteHeader(resp.Status)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

func noContent() *router.Response {
	return &router.Response{Status: http.StatusNoContent}
}

// decodeBody 读取并解析 JSON 请求体。解析失败按内部错误处理（500），
// 字段形状不对才是 400，两类失败要分开。
func decodeBody(req *http.Request) (map[string]interface{}, error) {
	var payload map[string]interface{}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "decode request body")
	}
	return payload, nil
}

// parseWait 解析 Prefer: wait=<seconds> 偏好。缺失或解析失败都按
// 「没有等待偏好」处理，不报错。
func parseWait(prefer string) (time.Duration, bool) {
	for _, field := range strings.Split(prefer, ",") {
		field = strings.TrimSpace(field)
		if !strings.HasPrefix(field, "wait=") {
			continue
		}

		secs, err := strconv.Atoi(strings.TrimPrefix(field, "wait="))
		if err != nil || secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}

	return 0, false
}

// handleListTalks 处理 GET /talks：把版本标签和等待偏好交给 broker，
// 立即响应还是挂起由它裁决。
func (s *Server) handleListTalks(ctx context.Context, req *http.Request, _ router.Params) (*router.Response, error) {
	tag := strings.TrimSpace(req.Header.Get("If-None-Match"))
	wait, hasWait := parseWait(req.Header.Get("Prefer"))

	return s.broker.Respond(ctx, tag, wait, hasWait)
}

// handleGetTalk 处理 GET /talks/{title}。
func (s *Server) handleGetTalk(ctx context.Context, _ *http.Request, params router.Params) (*router.Response, error) {
	title := params["title"]

	talk, err := s.store.Get(ctx, title)
	if errors.Is(err, talks.ErrNotFound) {
		return nil, router.Errorf(http.StatusNotFound, "no talk '%s' found", title)
	}
	if err != nil {
		return nil, err
	}

	return router.JSON(http.StatusOK, talk), nil
}

// handlePutTalk 处理 PUT /talks/{title}：创建或整体替换。
// 重复 PUT 相同内容也算一次有效变更，版本号照样递增。
func (s *Server) handlePutTalk(ctx context.Context, req *http.Request, params router.Params) (*router.Response, error) {
	payload, err := decodeBody(req)
	if err != nil {
		return nil, err
	}

	presenter, okP := payload["presenter"].(string)
	summary, okS := payload["summary"].(string)
	if !okP || !okS {
		return nil, router.Errorf(http.StatusBadRequest, "bad talk data")
	}

	talk := &model.Talk{
		Title:     params["title"],
		Presenter: presenter,
		Summary:   summary,
	}
	if err := s.store.Put(ctx, talk); err != nil {
		return nil, err
	}
	s.broker.Updated(ctx)

	return noContent(), nil
}

// handleDeleteTalk 处理 DELETE /talks/{title}：删除不存在的演讲也返回 204，
// 但只有真删掉了东西才广播变更。
func (s *Server) handleDeleteTalk(ctx context.Context, _ *http.Request, params router.Params) (*router.Response, error) {
	removed, err := s.store.Delete(ctx, params["title"])
	if err != nil {
		return nil, err
	}
	if removed {
		s.broker.Updated(ctx)
	}

	return noContent(), nil
}

// handleAddComment 处理 POST /talks/{title}/comments。
// 先验证字段形状（400），再看目标演讲存不存在（404），都过了才落盘广播。
func (s *Server) handleAddComment(ctx context.Context, req *http.Request, params router.Params) (*router.Response, error) {
	payload, err := decodeBody(req)
	if err != nil {
		return nil, err
	}

	author, okA := payload["author"].(string)
	message, okM := payload["message"].(string)
	if !okA || !okM {
		return nil, router.Errorf(http.StatusBadRequest, "bad comment data")
	}

	title := params["title"]
	err = s.store.AddComment(ctx, title, model.Comment{Author: author, Message: message})
	if errors.Is(err, talks.ErrNotFound) {
		return nil, router.Errorf(http.StatusNotFound, "no talk '%s' found", title)
	}
	if err != nil {
		return nil, err
	}
	s.broker.Updated(ctx)

	return noContent(), nil
}

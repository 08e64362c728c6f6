package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// Params 路由模板捕获到的具名路径段。net/http 交给我们的 URL.Path
// 已经做过百分号解码，这里不再二次解码。
type Params map[string]string

// HandlerFunc 业务处理函数。返回结构化响应，或者一个会被 Resolve
// 统一归一化的错误，两者取其一。
type HandlerFunc func(ctx context.Context, req *http.Request, params Params) (*Response, error)

type segment struct {
	literal string
	capture string // 非空表示具名捕获段
}

type route struct {
	method   string
	pattern  string
	segments []segment
	handler  HandlerFunc
}

// Router 是 (方法, 路径模板) 到处理函数的调度表。
// 模板按注册顺序逐条尝试，先注册的先命中，顺序即语义。
type Router struct {
	routes []route
}

func New() *Router {
	return &Router{}
}

// Handle 注册一条路由。模板形如 /talks/:title，":name" 段捕获对应路径段。
func (r *Router) Handle(method, pattern string, h HandlerFunc) {
	r.routes = append(r.routes, route{
		method:   method,
		pattern:  pattern,
		segments: compile(pattern),
		handler:  h,
	})
}

func compile(pattern string) []segment {
	parts := strings.Split(strings.Trim(pattern, "/"), "/")
	segs := make([]segment, 0, len(parts))

	for _, p := range parts {
		if strings.HasPrefix(p, ":") {
			segs = append(segs, segment{capture: strings.TrimPrefix(p, ":")})
		} else {
			segs = append(segs, segment{literal: p})
		}
	}

	return segs
}

func (rt *route) match(method, path string) (Params, bool) {
	if method != rt.method {
		return nil, false
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != len(rt.segments) {
		return nil, false
	}

	params := Params{}
	for i, seg := range rt.segments {
		if seg.capture != "" {
			params[seg.capture] = parts[i]
			continue
		}
		if seg.literal != parts[i] {
			return nil, false
		}
	}

	return params, true
}

// Resolve 调度一个请求。未命中任何路由时返回 (nil, false)，由调用方
// 自行回退到静态文件等兜底逻辑——「没有路由」和「处理失败」是两种结果。
// 处理函数的错误和 panic 都在这里转成响应，绝不向传输层抛出。
func (r *Router) Resolve(ctx context.Context, req *http.Request) (*Response, bool) {
	for i := range r.routes {
		rt := &r.routes[i]

		params, ok := rt.match(req.Method, req.URL.Path)
		if !ok {
			continue
		}

		return dispatch(ctx, rt, req, params), true
	}

	return nil, false
}

func dispatch(ctx context.Context, rt *route, req *http.Request, params Params) (resp *Response) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Str("method", rt.method).
				Str("path", req.URL.Path).
				Msg("handler panicked")
			resp = Text(http.StatusInternalServerError, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	resp, err := rt.handler(ctx, req, params)
	if err != nil {
		var herr *Error
		if errors.As(err, &herr) {
			return Text(herr.Code, herr.Error())
		}
		return Text(http.StatusInternalServerError, err.Error())
	}

	return resp
}

package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func ok(msg string) HandlerFunc {
	return func(context.Context, *http.Request, Params) (*Response, error) {
		return Text(http.StatusOK, msg), nil
	}
}

// TestRouterFirstMatchWins 验证按注册顺序匹配、先注册的先命中。
// 场景：捕获路由先于字面路由注册，字面上也能匹配的路径落在捕获路由上。
func TestRouterFirstMatchWins(t *testing.T) {
	r := New()
	r.Handle(http.MethodGet, "/talks/:title", ok("capture"))
	r.Handle(http.MethodGet, "/talks/special", ok("literal"))

	req := httptest.NewRequest(http.MethodGet, "/talks/special", nil)
	resp, matched := r.Resolve(context.Background(), req)

	require.True(t, matched)
	require.Equal(t, "capture", string(resp.Body))
}

// TestRouterCaptures 验证具名段捕获与路径解码。
// 场景：标题里带空格（URL 里百分号编码），处理函数拿到的是解码后的文本。
func TestRouterCaptures(t *testing.T) {
	r := New()

	var got Params
	r.Handle(http.MethodPost, "/talks/:title/comments", func(_ context.Context, _ *http.Request, p Params) (*Response, error) {
		got = p
		return &Response{Status: http.StatusNoContent}, nil
	})

	req := httptest.NewRequest(http.MethodPost, "/talks/How%20to%20Go/comments", nil)
	_, matched := r.Resolve(context.Background(), req)

	require.True(t, matched)
	require.Equal(t, "How to Go", got["title"])
}

// TestRouterNoMatchIsDistinct 验证「没有路由」独立于「处理失败」。
// 场景：未知路径和路径对但方法不对，都返回未命中，调用方可以自行兜底。
func TestRouterNoMatchIsDistinct(t *testing.T) {
	r := New()
	r.Handle(http.MethodGet, "/talks", ok("list"))

	_, matched := r.Resolve(context.Background(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.False(t, matched)

	_, matched = r.Resolve(context.Background(), httptest.NewRequest(http.MethodDelete, "/talks", nil))
	require.False(t, matched)
}

// TestRouterStatusErrorNormalized 验证带状态码的错误被转成对应响应。
// 场景：处理函数返回包了一层上下文的 404 错误，Resolve 解出状态码。
func TestRouterStatusErrorNormalized(t *testing.T) {
	r := New()
	r.Handle(http.MethodGet, "/talks/:title", func(_ context.Context, _ *http.Request, p Params) (*Response, error) {
		return nil, errors.Wrap(Errorf(http.StatusNotFound, "no talk '%s' found", p["title"]), "lookup")
	})

	resp, matched := r.Resolve(context.Background(), httptest.NewRequest(http.MethodGet, "/talks/go", nil))

	require.True(t, matched)
	require.Equal(t, http.StatusNotFound, resp.Status)
	require.Contains(t, string(resp.Body), "no talk 'go' found")
}

// TestRouterPlainErrorBecomes500 验证普通错误统一映射为 500。
func TestRouterPlainErrorBecomes500(t *testing.T) {
	r := New()
	r.Handle(http.MethodGet, "/talks", func(context.Context, *http.Request, Params) (*Response, error) {
		return nil, errors.New("backend exploded")
	})

	resp, matched := r.Resolve(context.Background(), httptest.NewRequest(http.MethodGet, "/talks", nil))

	require.True(t, matched)
	require.Equal(t, http.StatusInternalServerError, resp.Status)
	require.Contains(t, string(resp.Body), "backend exploded")
}

// TestRouterRecoversPanic 验证处理函数 panic 不会穿透到传输层。
func TestRouterRecoversPanic(t *testing.T) {
	r := New()
	r.Handle(http.MethodGet, "/talks", func(context.Context, *http.Request, Params) (*Response, error) {
		panic("boom")
	})

	resp, matched := r.Resolve(context.Background(), httptest.NewRequest(http.MethodGet, "/talks", nil))

	require.True(t, matched)
	require.Equal(t, http.StatusInternalServerError, resp.Status)
	require.Contains(t, string(resp.Body), "boom")
}

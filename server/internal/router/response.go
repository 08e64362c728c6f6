package router

import (
	"encoding/json"
	"net/http"
)

// Response 处理函数产出的结构化结果，由网关统一写回传输层。
// Header 可以为空，网关在写回时会补上默认的纯文本 Content-Type。
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// Text 构造纯文本响应。
func Text(status int, msg string) *Response {
	h := http.Header{}
	h.Set("Content-Type", "text/plain; charset=utf-8")
	return &Response{Status: status, Body: []byte(msg), Header: h}
}

// JSON 构造 JSON 响应；序列化失败时降级为 500 纯文本。
func JSON(status int, v interface{}) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		return Text(http.StatusInternalServerError, "encode response: "+err.Error())
	}

	h := http.Header{}
	h.Set("Content-Type", "application/json; charset=utf-8")
	return &Response{Status: status, Body: body, Header: h}
}

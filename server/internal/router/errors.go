package router

import (
	"github.com/pkg/errors"
)

// Error 携带 HTTP 状态码的错误。处理函数用它声明 400/404 这类业务失败，
// 其余错误一律被 Resolve 归一化为 500。
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Errorf 构造带状态码的错误。
func Errorf(code int, format string, args ...interface{}) error {
	return &Error{Code: code, Err: errors.Errorf(format, args...)}
}

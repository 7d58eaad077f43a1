// Package apperrors 定义了对调用方可见的领域错误分类。
//
// 只有 *Error 会被原样返回给调用方，其余错误在请求管道最外层统一折叠为 Unknown。
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 是领域错误的类别。
type Kind string

const (
	KindAuthentication Kind = "AUTHENTICATION"
	KindAuthorization  Kind = "AUTHORIZATION"
	KindNotFound       Kind = "NOT_FOUND"
	KindConflict       Kind = "CONFLICT"
	KindValidation     Kind = "VALIDATION"
	KindUnknown        Kind = "UNKNOWN"
)

// UnknownMessage 是被屏蔽的内部错误对外展示的唯一文案。
const UnknownMessage = "An unknown error has occurred! Please try again later"

// Error 是可以安全暴露给调用方的错误。
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Is 让同一 Kind 且同一文案的错误在 errors.Is 下相等，
// 这样服务层的哨兵错误被 %w 包装后仍能被识别。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Authentication(msg string) *Error { return newError(KindAuthentication, msg) }
func Authorization(msg string) *Error  { return newError(KindAuthorization, msg) }
func NotFound(msg string) *Error       { return newError(KindNotFound, msg) }
func Conflict(msg string) *Error       { return newError(KindConflict, msg) }
func Validation(msg string) *Error     { return newError(KindValidation, msg) }

// Unknown 返回统一的不透明错误。
func Unknown() *Error { return newError(KindUnknown, UnknownMessage) }

// Validationf 用于拼接字段名等动态信息。
func Validationf(format string, args ...any) *Error {
	return newError(KindValidation, fmt.Sprintf(format, args...))
}

// As 在错误链中查找领域错误。
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf 返回错误的类别，非领域错误一律视为 Unknown。
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindUnknown
}

// HTTPStatus 把错误类别映射为 HTTP 状态码。
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

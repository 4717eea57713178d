package client

import (
	"errors"
	"fmt"
)

// Error 客户端错误
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("client error [%d]: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("client error [%d]: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RPCError 节点返回的 JSON-RPC 错误对象
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("RPC error [%d]: %s, data: %v", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("RPC error [%d]: %s", e.Code, e.Message)
}

// 错误码定义
const (
	ErrCodeNetwork         = 1000 // 网络错误
	ErrCodeTimeout         = 1001 // 超时错误
	ErrCodeInvalidResponse = 1002 // 无效响应
	ErrCodeRPCError        = 1003 // JSON-RPC错误
	ErrCodeNotSupported    = 1004 // 不支持的操作
	ErrCodeHTTPStatus      = 1005 // 非 2xx 响应
)

// NewNetworkError 创建网络错误
func NewNetworkError(err error) *Error {
	return &Error{
		Code:    ErrCodeNetwork,
		Message: "network error",
		Err:     err,
	}
}

// NewTimeoutError 创建超时错误
func NewTimeoutError() *Error {
	return &Error{
		Code:    ErrCodeTimeout,
		Message: "request timeout",
	}
}

// NewInvalidResponseError 创建无效响应错误
func NewInvalidResponseError(message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidResponse,
		Message: message,
	}
}

// NewRPCError 创建JSON-RPC错误
func NewRPCError(code int, message string, data interface{}) *Error {
	return &Error{
		Code:    ErrCodeRPCError,
		Message: "JSON-RPC error",
		Err:     &RPCError{Code: code, Message: message, Data: data},
	}
}

// NewHTTPStatusError 创建 HTTP 状态码错误
func NewHTTPStatusError(status int, body string) *Error {
	return &Error{
		Code:    ErrCodeHTTPStatus,
		Message: fmt.Sprintf("HTTP error: %d, body: %s", status, body),
	}
}

// NewNotSupportedError 创建不支持的操作错误
func NewNotSupportedError(operation string) *Error {
	return &Error{
		Code:    ErrCodeNotSupported,
		Message: fmt.Sprintf("operation not supported: %s", operation),
	}
}

// IsClientError 检查错误是否为指定错误码的 *Error
func IsClientError(err error, code int) bool {
	var target *Error
	return errors.As(err, &target) && target.Code == code
}

// AsRPCError 提取 JSON-RPC 错误对象
func AsRPCError(err error) (*RPCError, bool) {
	var target *RPCError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

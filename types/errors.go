package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// InvalidPackageTypeError 非法 package type（调用方错误，合法 UI 下不可达）
type InvalidPackageTypeError struct {
	Value string
}

func (e *InvalidPackageTypeError) Error() string {
	return fmt.Sprintf("invalid package type: %q", e.Value)
}

// FieldValidationError 字段校验错误（可恢复，逐字段展示）
type FieldValidationError struct {
	// Fields 字段名 -> 错误消息列表
	Fields map[string][]string
}

func (e *FieldValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], "; ")))
	}
	return "field validation failed: " + strings.Join(parts, ", ")
}

// RemoteSigningError 钱包/签名后端返回的错误，可通过重新签名重试
type RemoteSigningError struct {
	Message string
	Err     error
}

func (e *RemoteSigningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signing failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("signing failed: %s", e.Message)
}

func (e *RemoteSigningError) Unwrap() error {
	return e.Err
}

// Issuer 错误码
const (
	VerificationCodeBadRequest      = "BAD_REQUEST"
	VerificationCodeUnauthorized    = "UNAUTHORIZED"
	VerificationCodeForbidden       = "FORBIDDEN"
	VerificationCodeNotFound        = "NOT_FOUND"
	VerificationCodeTooManyRequests = "TOO_MANY_REQUESTS"
	VerificationCodeInternalError   = "INTERNAL_SERVER_ERROR"
	VerificationCodeNetwork         = "NETWORK_ERROR"
	VerificationCodeUnknown         = "UNKNOWN_ERROR"
)

// RemoteVerificationError Issuer 验证服务返回的错误
//
// Code 为 FORBIDDEN 时表示需要额外验证（例如 KYC 未完成），
// 应引导用户前往 Dashboard，而不是作为普通失败展示。
type RemoteVerificationError struct {
	Code    string
	Status  int
	Message string
	TraceID string
	Err     error
}

func (e *RemoteVerificationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("[%s] verification failed (status %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("[%s] verification failed: %s", e.Code, e.Message)
}

func (e *RemoteVerificationError) Unwrap() error {
	return e.Err
}

// IsForbidden 是否为“需要额外验证”
func (e *RemoteVerificationError) IsForbidden() bool {
	return e.Code == VerificationCodeForbidden
}

// IsInvalidPackageTypeError 检查错误是否为 InvalidPackageTypeError
func IsInvalidPackageTypeError(err error) (*InvalidPackageTypeError, bool) {
	var target *InvalidPackageTypeError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsFieldValidationError 检查错误是否为 FieldValidationError
func IsFieldValidationError(err error) (*FieldValidationError, bool) {
	var target *FieldValidationError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsRemoteSigningError 检查错误是否为 RemoteSigningError
func IsRemoteSigningError(err error) (*RemoteSigningError, bool) {
	var target *RemoteSigningError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsRemoteVerificationError 检查错误是否为 RemoteVerificationError
func IsRemoteVerificationError(err error) (*RemoteVerificationError, bool) {
	var target *RemoteVerificationError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

package types

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ProblemDetails Issuer 错误响应（RFC7807 + PureFi 扩展）
//
// Issuer 的错误体存在两种形态：
//   - RFC7807：type/title/status/detail/instance
//   - PureFi：code/message（code 可能是数字或字符串）
//
// 两种形态的字段合并在同一结构中，由 ToVerificationError 统一归一化。
type ProblemDetails struct {
	// RFC7807 标准字段
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   *int   `json:"status,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// PureFi 扩展字段
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	TraceID string `json:"traceId,omitempty"`
}

// ParseProblemDetails 从响应体解析 Problem Details
//
// 支持顶层对象与 {"error": {...}} 包装两种形式。
func ParseProblemDetails(body []byte) (*ProblemDetails, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("invalid problem details format: %w", err)
	}

	// 兼容 {"error": {...}}
	if inner, ok := raw["error"].(map[string]interface{}); ok {
		raw = inner
	}

	pd := &ProblemDetails{}
	pd.Type, _ = raw["type"].(string)
	pd.Title, _ = raw["title"].(string)
	pd.Detail, _ = raw["detail"].(string)
	pd.Instance, _ = raw["instance"].(string)
	pd.Message, _ = raw["message"].(string)
	pd.TraceID, _ = raw["traceId"].(string)

	if statusVal, ok := raw["status"].(float64); ok {
		s := int(statusVal)
		pd.Status = &s
	}

	switch code := raw["code"].(type) {
	case string:
		pd.Code = code
	case float64:
		pd.Code = strconv.Itoa(int(code))
	}

	if pd.Code == "" && pd.Message == "" && pd.Detail == "" && pd.Title == "" && pd.Status == nil {
		return nil, fmt.Errorf("missing required fields in problem details")
	}

	return pd, nil
}

// ToVerificationError 归一化为 RemoteVerificationError
//
// httpStatus 为 HTTP 状态码；错误体中的 status 优先。
func (pd *ProblemDetails) ToVerificationError(httpStatus int) *RemoteVerificationError {
	status := httpStatus
	if pd.Status != nil {
		status = *pd.Status
	}

	message := pd.Message
	if message == "" {
		message = pd.Detail
	}
	if message == "" {
		message = pd.Title
	}
	if message == "" {
		message = http.StatusText(status)
	}

	traceID := pd.TraceID
	if traceID == "" {
		traceID = uuid.New().String()
	}

	return &RemoteVerificationError{
		Code:    NormalizeVerificationCode(pd.Code, status),
		Status:  status,
		Message: message,
		TraceID: traceID,
	}
}

// NormalizeVerificationCode 将 Issuer 的错误码（数字/字符串）归一化
func NormalizeVerificationCode(code string, status int) string {
	code = strings.TrimSpace(code)
	if code != "" {
		if n, err := strconv.Atoi(code); err == nil {
			return verificationCodeForStatus(n)
		}
		return strings.ToUpper(code)
	}
	return verificationCodeForStatus(status)
}

// verificationCodeForStatus HTTP 状态码 -> 错误码
func verificationCodeForStatus(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return VerificationCodeBadRequest
	case status == http.StatusUnauthorized:
		return VerificationCodeUnauthorized
	case status == http.StatusForbidden:
		return VerificationCodeForbidden
	case status == http.StatusNotFound:
		return VerificationCodeNotFound
	case status == http.StatusTooManyRequests:
		return VerificationCodeTooManyRequests
	case status >= 500 && status < 600:
		return VerificationCodeInternalError
	}
	return VerificationCodeUnknown
}

// NewDefaultVerificationError 创建默认的 RemoteVerificationError（用于 fallback）
func NewDefaultVerificationError(status int, message string, err error) *RemoteVerificationError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &RemoteVerificationError{
		Code:    verificationCodeForStatus(status),
		Status:  status,
		Message: message,
		TraceID: uuid.New().String(),
		Err:     err,
	}
}

package client

import (
	"strings"

	"github.com/purefi/playground-sdk-go/types"
)

// 错误体中 message 的最大保留长度（避免把整页 HTML 放进错误消息）
const maxErrorBodyLen = 512

// parseIssuerError 将 Issuer 的非 2xx 响应转换为 RemoteVerificationError
//
// 优先解析 Problem Details / PureFi 错误体；解析失败时按状态码生成默认错误。
func parseIssuerError(status int, body []byte) *types.RemoteVerificationError {
	if pd, err := types.ParseProblemDetails(body); err == nil {
		return pd.ToVerificationError(status)
	}
	return types.NewDefaultVerificationError(status, truncateBody(body), nil)
}

// parseSignerError 将签名后端的非 2xx 响应转换为 RemoteSigningError
func parseSignerError(status int, body []byte) *types.RemoteSigningError {
	if pd, err := types.ParseProblemDetails(body); err == nil {
		rv := pd.ToVerificationError(status)
		return &types.RemoteSigningError{Message: rv.Message}
	}
	msg := truncateBody(body)
	if msg == "" {
		msg = NewHTTPStatusError(status, "").Message
	}
	return &types.RemoteSigningError{Message: msg}
}

func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBodyLen {
		s = s[:maxErrorBodyLen] + "..."
	}
	return s
}

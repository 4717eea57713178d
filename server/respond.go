package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/purefi/playground-sdk-go/types"
)

// 请求体上限
const maxBodyBytes = 1 << 20

// 错误码
const (
	codeBadRequest = "BAD_REQUEST"
	codeNotFound   = "NOT_FOUND"
	codeConflict   = "CONFLICT"
	codeNotReady   = "NOT_READY"
	codeSigning    = "SIGNING_FAILED"
	codeUnavail    = "UNAVAILABLE"
	codeInternal   = "INTERNAL_SERVER_ERROR"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 错误体与 Issuer 的 PureFi 错误格式一致（code/message/traceId）
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, types.ProblemDetails{
		Code:    code,
		Message: message,
		TraceID: middleware.GetReqID(r.Context()),
	})
}

// readJSON 解析请求体；允许空请求体
func readJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

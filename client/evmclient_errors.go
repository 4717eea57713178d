package client

import (
	"errors"
	"fmt"
)

// EVMClientErrorCode EVMClient 错误码
type EVMClientErrorCode string

const (
	EVMErrCodeNetwork       EVMClientErrorCode = "NETWORK_ERROR"
	EVMErrCodeRPC           EVMClientErrorCode = "RPC_ERROR"
	EVMErrCodeInvalidParams EVMClientErrorCode = "INVALID_PARAMS"
	EVMErrCodeNotSupported  EVMClientErrorCode = "NOT_SUPPORTED"
	EVMErrCodeNotFound      EVMClientErrorCode = "NOT_FOUND"
	EVMErrCodeDecodeFailed  EVMClientErrorCode = "DECODE_FAILED"
	EVMErrCodeTxRejected    EVMClientErrorCode = "TX_REJECTED"
	EVMErrCodeReverted      EVMClientErrorCode = "EXECUTION_REVERTED"
)

// EVMClientError EVMClient 统一错误类型
type EVMClientError struct {
	Code    EVMClientErrorCode
	Message string
	Cause   error
}

func (e *EVMClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause=%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EVMClientError) Unwrap() error {
	return e.Cause
}

// IsEVMClientError 检查错误是否为指定错误码的 EVMClientError
func IsEVMClientError(err error, code EVMClientErrorCode) bool {
	var target *EVMClientError
	return errors.As(err, &target) && target.Code == code
}

// wrapRPCError 包装 RPC 错误为 EVMClientError
func wrapRPCError(method string, err error) error {
	if err == nil {
		return nil
	}

	// 避免重复包装
	var evmErr *EVMClientError
	if errors.As(err, &evmErr) {
		return err
	}

	if IsClientError(err, ErrCodeNetwork) || IsClientError(err, ErrCodeTimeout) {
		return &EVMClientError{
			Code:    EVMErrCodeNetwork,
			Message: fmt.Sprintf("network error calling %s", method),
			Cause:   err,
		}
	}

	if IsClientError(err, ErrCodeNotSupported) {
		return &EVMClientError{
			Code:    EVMErrCodeNotSupported,
			Message: fmt.Sprintf("%s is not supported by this transport", method),
			Cause:   err,
		}
	}

	if rpcErr, ok := AsRPCError(err); ok {
		code := EVMErrCodeRPC
		// 3: execution reverted（geth）
		if rpcErr.Code == 3 {
			code = EVMErrCodeReverted
		}
		return &EVMClientError{
			Code:    code,
			Message: fmt.Sprintf("RPC error calling %s: %s", method, rpcErr.Message),
			Cause:   err,
		}
	}

	return err
}

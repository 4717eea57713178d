package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"time"
)

// RetryConfig 重试配置
type RetryConfig struct {
	// MaxRetries 最大重试次数
	MaxRetries int
	// InitialDelay 初始延迟（毫秒）
	InitialDelay int
	// MaxDelay 最大延迟（毫秒）
	MaxDelay int
	// BackoffMultiplier 退避倍数
	BackoffMultiplier float64
	// Retryable 判断错误是否可重试的函数
	Retryable func(error) bool
	// OnRetry 重试前的回调函数
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialDelay:      1000,
		MaxDelay:          10000,
		BackoffMultiplier: 2.0,
		Retryable:         isRetryableError,
		OnRetry:           nil,
	}
}

// NoRetry 不重试
func NoRetry() *RetryConfig {
	return &RetryConfig{MaxRetries: 0}
}

// retryableStatusError 可重试的 HTTP 状态码
type retryableStatusError struct {
	status int
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.status, http.StatusText(e.status))
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *retryableStatusError
	if errors.As(err, &statusErr) {
		return true
	}

	if IsClientError(err, ErrCodeNetwork) {
		return true
	}

	// 网络错误（连接失败、超时等）
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// DNS 错误
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// 通过错误消息判断
	errMsg := err.Error()
	for _, substr := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"timeout",
		"EOF",
	} {
		if strings.Contains(errMsg, substr) {
			return true
		}
	}

	return false
}

// isRetryableHTTPError 判断 HTTP 响应错误是否可重试
func isRetryableHTTPError(statusCode int) bool {
	// HTTP 5xx 错误（服务器错误）
	if statusCode >= 500 && statusCode < 600 {
		return true
	}
	// HTTP 429 错误（请求过多）
	return statusCode == http.StatusTooManyRequests
}

// calculateBackoffDelay 计算退避延迟
func calculateBackoffDelay(attempt int, config *RetryConfig) time.Duration {
	multiplier := config.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	delay := float64(config.InitialDelay) * math.Pow(multiplier, float64(attempt))
	if maxDelay := float64(config.MaxDelay); maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	return time.Duration(delay) * time.Millisecond
}

// withRetry 带重试的函数执行器
func withRetry(ctx context.Context, fn func() error, config *RetryConfig) error {
	if config == nil || config.MaxRetries <= 0 {
		return fn()
	}

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		// 如果是最后一次尝试，直接返回错误
		if attempt >= config.MaxRetries {
			break
		}

		// 判断是否可重试
		retryable := config.Retryable
		if retryable == nil {
			retryable = isRetryableError
		}
		if !retryable(err) {
			return err
		}

		delay := calculateBackoffDelay(attempt, config)

		if config.OnRetry != nil {
			config.OnRetry(attempt+1, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	// 所有重试都失败，返回最后一个错误
	return fmt.Errorf("retry failed after %d attempts: %w", config.MaxRetries+1, lastErr)
}

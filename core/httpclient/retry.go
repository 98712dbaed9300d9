package httpclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// RetryState 记录单个请求的重试进度。
type RetryState struct {
	Attempt   int
	Refreshed bool
}

// RetryPolicy 定义重试策略。
type RetryPolicy interface {
	ShouldRetry(req *http.Request, resp *http.Response, err error, state *RetryState) (bool, time.Duration, error)
}

// RetryConfig 配置指数退避重试。
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Refresh 在收到 401 时调用一次，成功后重发原请求。
	Refresh func(ctx context.Context) error
	// SkipRefresh 为 true 的请求不触发刷新，默认跳过 /auth/ 下的接口。
	SkipRefresh func(*http.Request) bool
	Logger      Logger
}

// ExponentialBackoffRetry 实现指数退避重试。
type ExponentialBackoffRetry struct {
	maxRetries  int
	baseDelay   time.Duration
	maxDelay    time.Duration
	refresh     func(ctx context.Context) error
	skipRefresh func(*http.Request) bool
	logger      Logger
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  2,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		SkipRefresh: IsAuthPath,
	}
}

// IsAuthPath 判断请求是否属于认证接口。
func IsAuthPath(req *http.Request) bool {
	if req == nil || req.URL == nil {
		return false
	}
	return strings.Contains(req.URL.Path, "/auth/")
}

// NewExponentialBackoffRetry 创建重试策略。
func NewExponentialBackoffRetry(cfg RetryConfig) *ExponentialBackoffRetry {
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger{}
	}
	skip := cfg.SkipRefresh
	if skip == nil {
		skip = IsAuthPath
	}
	return &ExponentialBackoffRetry{
		maxRetries:  cfg.MaxRetries,
		baseDelay:   cfg.BaseDelay,
		maxDelay:    cfg.MaxDelay,
		refresh:     cfg.Refresh,
		skipRefresh: skip,
		logger:      logger,
	}
}

// ShouldRetry 根据错误类型、状态码决定是否重试。
// 401 最多刷新一次；刷新失败时返回原始错误。网络错误与 5xx 仅对幂等方法重试。
func (r *ExponentialBackoffRetry) ShouldRetry(req *http.Request, resp *http.Response, err error, state *RetryState) (bool, time.Duration, error) {
	if r == nil || state == nil {
		return false, 0, nil
	}

	if IsUnauthorized(err) {
		if r.refresh == nil || state.Refreshed || r.skipRefresh(req) {
			return false, 0, nil
		}
		state.Refreshed = true
		if refreshErr := r.refresh(req.Context()); refreshErr != nil {
			r.logger.Debugf("刷新令牌失败: %v", refreshErr)
			return false, 0, err
		}
		r.logger.Debugf("令牌已刷新，重发 %s %s", req.Method, req.URL.Path)
		return true, 0, nil
	}

	if state.Attempt >= r.maxRetries || !idempotent(req) {
		return false, 0, nil
	}
	delay := r.backoff(state.Attempt)

	if resp != nil && resp.StatusCode >= http.StatusInternalServerError {
		r.logger.Debugf("服务端错误，第 %d 次重试", state.Attempt+1)
		return true, delay, nil
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, 0, nil
		}
		r.logger.Debugf("网络错误，第 %d 次重试", state.Attempt+1)
		return true, delay, nil
	}

	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return false, 0, nil
	}

	var ec *ErrCode
	if errors.As(err, &ec) && ec.Status >= http.StatusInternalServerError {
		r.logger.Debugf("服务端错误(code=%d)，第 %d 次重试", ec.Status, state.Attempt+1)
		return true, delay, nil
	}
	return false, 0, nil
}

func idempotent(req *http.Request) bool {
	if req == nil {
		return false
	}
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func (r *ExponentialBackoffRetry) backoff(attempt int) time.Duration {
	base := r.baseDelay
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	max := r.maxDelay
	if max <= 0 {
		max = 2 * time.Second
	}
	delay := base << attempt
	if delay > max {
		delay = max
	}
	return delay
}

package httpclient

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// TestExponentialBackoffRetry_BackoffClamp 验证指数退避的初始值与上限。
func TestExponentialBackoffRetry_BackoffClamp(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   150 * time.Millisecond,
	}
	retry := NewExponentialBackoffRetry(cfg)

	if delay := retry.backoff(0); delay != 100*time.Millisecond {
		t.Fatalf("首次退避应为 100ms，实际 %v", delay)
	}
	if delay := retry.backoff(2); delay != 150*time.Millisecond {
		t.Fatalf("退避应被上限 150ms 截断，实际 %v", delay)
	}
}

// TestExponentialBackoffRetry_ShouldRetry 覆盖不同错误场景的重试判定。
func TestExponentialBackoffRetry_ShouldRetry(t *testing.T) {
	get, _ := http.NewRequest(http.MethodGet, "https://example.com/api/products", nil)
	post, _ := http.NewRequest(http.MethodPost, "https://example.com/api/orders", nil)

	t.Run("server_error", func(t *testing.T) {
		cfg := DefaultRetryConfig()
		cfg.MaxRetries = 3
		cfg.BaseDelay = 50 * time.Millisecond
		cfg.MaxDelay = 200 * time.Millisecond
		retry := NewExponentialBackoffRetry(cfg)

		should, delay, err := retry.ShouldRetry(get, &http.Response{StatusCode: http.StatusInternalServerError}, nil, &RetryState{})
		if err != nil {
			t.Fatalf("不期望错误: %v", err)
		}
		if !should {
			t.Fatalf("500 场景应触发重试")
		}
		if delay != cfg.BaseDelay {
			t.Fatalf("退避时间应为 %v，实际 %v", cfg.BaseDelay, delay)
		}
	})

	t.Run("server_error_post", func(t *testing.T) {
		retry := NewExponentialBackoffRetry(DefaultRetryConfig())
		should, _, _ := retry.ShouldRetry(post, &http.Response{StatusCode: http.StatusBadGateway}, nil, &RetryState{})
		if should {
			t.Fatalf("非幂等请求不应重试")
		}
	})

	t.Run("network_error", func(t *testing.T) {
		cfg := DefaultRetryConfig()
		cfg.MaxRetries = 2
		retry := NewExponentialBackoffRetry(cfg)

		should, _, err := retry.ShouldRetry(get, nil, &NetworkError{Err: errors.New("dial failed")}, &RetryState{Attempt: 1})
		if err != nil {
			t.Fatalf("不期望错误: %v", err)
		}
		if !should {
			t.Fatalf("网络错误应触发重试")
		}
	})

	t.Run("canceled", func(t *testing.T) {
		retry := NewExponentialBackoffRetry(DefaultRetryConfig())
		should, _, _ := retry.ShouldRetry(get, nil, &NetworkError{Err: context.Canceled}, &RetryState{})
		if should {
			t.Fatalf("上下文取消不应重试")
		}
	})

	t.Run("decode_error", func(t *testing.T) {
		retry := NewExponentialBackoffRetry(DefaultRetryConfig())

		should, _, err := retry.ShouldRetry(get, nil, &DecodeError{Status: http.StatusOK, Err: errors.New("bad json")}, &RetryState{})
		if err != nil {
			t.Fatalf("不期望错误: %v", err)
		}
		if should {
			t.Fatalf("解码错误不应重试")
		}
	})

	t.Run("unauthorized_triggers_single_refresh", func(t *testing.T) {
		cfg := DefaultRetryConfig()
		refreshCalled := 0
		cfg.Refresh = func(context.Context) error {
			refreshCalled++
			return nil
		}
		retry := NewExponentialBackoffRetry(cfg)
		state := &RetryState{}
		unauthorized := &ErrCode{Message: "jwt expired", Status: http.StatusUnauthorized}

		should, delay, err := retry.ShouldRetry(post, nil, unauthorized, state)
		if err != nil || !should || delay != 0 {
			t.Fatalf("401 应刷新后立即重试: should=%v delay=%v err=%v", should, delay, err)
		}
		should, _, _ = retry.ShouldRetry(post, nil, unauthorized, state)
		if should {
			t.Fatalf("同一请求不应二次刷新")
		}
		if refreshCalled != 1 {
			t.Fatalf("刷新回调应被调用一次，实际 %d 次", refreshCalled)
		}
	})

	t.Run("unauthorized_without_refresher", func(t *testing.T) {
		retry := NewExponentialBackoffRetry(DefaultRetryConfig())
		should, _, _ := retry.ShouldRetry(get, nil, &ErrCode{Status: http.StatusUnauthorized}, &RetryState{})
		if should {
			t.Fatalf("未配置刷新时 401 不应重试")
		}
	})

	t.Run("non_retriable_errcode", func(t *testing.T) {
		retry := NewExponentialBackoffRetry(DefaultRetryConfig())

		should, _, err := retry.ShouldRetry(get, nil, &ErrCode{Code: "BadRequest", Status: http.StatusBadRequest}, &RetryState{})
		if err != nil {
			t.Fatalf("不期望错误: %v", err)
		}
		if should {
			t.Fatalf("业务错误不应重试")
		}
	})

	t.Run("max_attempts_reached", func(t *testing.T) {
		cfg := DefaultRetryConfig()
		cfg.MaxRetries = 1
		retry := NewExponentialBackoffRetry(cfg)

		should, _, err := retry.ShouldRetry(get, &http.Response{StatusCode: http.StatusInternalServerError}, nil, &RetryState{Attempt: cfg.MaxRetries})
		if err != nil {
			t.Fatalf("不期望错误: %v", err)
		}
		if should {
			t.Fatalf("超过最大重试次数后应停止重试")
		}
	})
}

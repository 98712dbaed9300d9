package httpclient

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coconature/storefront/core/metrics"
)

// Limit 每秒产生的令牌数。
type Limit float64

// Limiter 简化版令牌桶实现。
type Limiter struct {
	limit  Limit
	burst  int
	mu     sync.Mutex
	tokens float64
	last   time.Time
	now    func() time.Time
}

// NewLimiter 创建 limiter，burst 小于 1 时按 1 处理。
func NewLimiter(limit Limit, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limit:  limit,
		burst:  burst,
		tokens: float64(burst),
		last:   time.Now(),
		now:    time.Now,
	}
}

// Wait 阻塞直到获得令牌或上下文取消。
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait := l.reserve(l.now())
		if wait <= 0 {
			return nil
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (l *Limiter) reserve(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limit <= 0 {
		return 0
	}
	elapsed := now.Sub(l.last).Seconds()
	if elapsed > 0 {
		l.tokens += elapsed * float64(l.limit)
	}
	if l.tokens > float64(l.burst) {
		l.tokens = float64(l.burst)
	}
	l.last = now
	if l.tokens >= 1 {
		l.tokens--
		return 0
	}
	seconds := (1 - l.tokens) / float64(l.limit)
	return time.Duration(seconds * float64(time.Second))
}

// RateLimiter 按路由限流。
type RateLimiter interface {
	Wait(ctx context.Context, req *http.Request) error
}

// TokenBucketLimiter 每个 key 一个令牌桶，默认 key 为路由首段（products、cart 等）。
type TokenBucketLimiter struct {
	limiters map[string]*Limiter
	mu       sync.Mutex
	keyFn    func(*http.Request) string
	limit    Limit
	burst    int
}

// NewTokenBucketLimiter 创建按 key 区分的限流器，qps<=0 表示不限流。
func NewTokenBucketLimiter(qps float64, burst int, keyFn func(*http.Request) string) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		limiters: make(map[string]*Limiter),
		keyFn:    keyFn,
		limit:    Limit(qps),
		burst:    burst,
	}
}

// Wait 在发起请求前阻塞，直到当前 key 拿到令牌。
func (l *TokenBucketLimiter) Wait(ctx context.Context, req *http.Request) error {
	if l == nil || l.limit <= 0 {
		return nil
	}
	return l.limiterFor(l.key(req)).Wait(ctx)
}

func (l *TokenBucketLimiter) key(req *http.Request) string {
	if l.keyFn != nil {
		if k := l.keyFn(req); k != "" {
			return k
		}
	}
	if req != nil && req.URL != nil {
		return metrics.RouteLabel(req.URL.Path)
	}
	return "default"
}

func (l *TokenBucketLimiter) limiterFor(key string) *Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters[key]; ok {
		return limiter
	}
	limiter := NewLimiter(l.limit, l.burst)
	l.limiters[key] = limiter
	return limiter
}

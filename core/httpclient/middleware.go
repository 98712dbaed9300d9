package httpclient

import (
	"net/http"

	"github.com/google/uuid"
)

// Middleware 是请求预处理钩子，用于注入令牌、请求 ID、Accept 等。
type Middleware func(req *http.Request) error

// PrepareChain 代表按顺序执行的中间件集合。
type PrepareChain []Middleware

// Apply 依次执行链路中的中间件，遇到错误立即返回。
func (c PrepareChain) Apply(req *http.Request) error {
	for _, mw := range c {
		if mw == nil {
			continue
		}
		if err := mw(req); err != nil {
			return err
		}
	}
	return nil
}

// WithHeader 设置请求头。
func WithHeader(key, value string) Middleware {
	return func(req *http.Request) error {
		req.Header.Set(key, value)
		return nil
	}
}

// WithUserAgent 设置 User-Agent。
func WithUserAgent(ua string) Middleware {
	return WithHeader("User-Agent", ua)
}

// WithAccept 设置 Accept。
func WithAccept(ct string) Middleware {
	return WithHeader("Accept", ct)
}

// WithBearerToken 每次发送前读取当前令牌，重试时可拿到刷新后的值。空令牌不设置头。
func WithBearerToken(token func() string) Middleware {
	return func(req *http.Request) error {
		if token == nil {
			return nil
		}
		if t := token(); t != "" {
			req.Header.Set("Authorization", "Bearer "+t)
		} else {
			req.Header.Del("Authorization")
		}
		return nil
	}
}

// WithRequestID 为每次发送生成 X-Request-ID，已有则保留。
func WithRequestID() Middleware {
	return func(req *http.Request) error {
		if req.Header.Get("X-Request-ID") == "" {
			req.Header.Set("X-Request-ID", uuid.NewString())
		}
		return nil
	}
}

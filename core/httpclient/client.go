package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/coconature/storefront/core/metrics"
)

const tracerName = "github.com/coconature/storefront/core/httpclient"

// Logger 由外部注入，满足 core 层无输出原则。*zap.SugaredLogger 可直接满足。
type Logger interface {
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger 默认空日志实现。
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Errorf(string, ...any) {}

// Client 为统一 HTTP 客户端封装。
type Client struct {
	HTTP       *http.Client
	Jar        http.CookieJar
	Prepare    PrepareChain
	Retry      RetryPolicy
	Limiter    RateLimiter
	Logger     Logger
	RouteLabel func(*http.Request) string
	tracer     trace.Tracer
}

// Option 配置客户端。
type Option func(*Client)

// WithHTTPClient 自定义 http.Client。
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.HTTP = httpClient
	}
}

// WithCookieJar 设置 CookieJar，后端以 httpOnly cookie 下发刷新凭证时需要。
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.Jar = jar
	}
}

// WithRetryPolicy 设置重试策略。
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.Retry = policy
	}
}

// WithRateLimiter 设置限流。
func WithRateLimiter(limiter RateLimiter) Option {
	return func(c *Client) {
		c.Limiter = limiter
	}
}

// WithLogger 注入日志。
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.Logger = logger
	}
}

// WithMiddlewares 设置请求中间件链。
func WithMiddlewares(mw ...Middleware) Option {
	return func(c *Client) {
		c.Prepare = append(c.Prepare, mw...)
	}
}

// WithRouteLabel 自定义指标中的路由标签。
func WithRouteLabel(fn func(*http.Request) string) Option {
	return func(c *Client) {
		c.RouteLabel = fn
	}
}

// WithTracer 替换 tracer，默认使用全局 TracerProvider。
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// NewClient 创建带默认重试、CookieJar 的客户端。
func NewClient(opts ...Option) *Client {
	// cookiejar.New(nil) 传入 nil 时不会返回错误
	jar, _ := cookiejar.New(nil)
	client := &Client{
		HTTP:    &http.Client{Jar: jar, Timeout: 30 * time.Second},
		Jar:     jar,
		Prepare: PrepareChain{},
		Logger:  NopLogger{},
	}
	client.Retry = NewExponentialBackoffRetry(DefaultRetryConfig())
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.HTTP == nil {
		client.HTTP = &http.Client{}
	}
	if client.Logger == nil {
		client.Logger = NopLogger{}
	}
	if client.Jar == nil {
		client.Jar = client.HTTP.Jar
	}
	if client.Jar == nil {
		j, _ := cookiejar.New(nil)
		client.Jar = j
	}
	if client.HTTP.Jar == nil {
		client.HTTP.Jar = client.Jar
	}
	if client.RouteLabel == nil {
		client.RouteLabel = func(req *http.Request) string {
			return metrics.RouteLabel(req.URL.Path)
		}
	}
	if client.tracer == nil {
		client.tracer = otel.Tracer(tracerName)
	}
	return client
}

// Cookies 读取当前 jar 中的 cookies。
func (c *Client) Cookies(u *url.URL) []*http.Cookie {
	if c == nil || c.Jar == nil {
		return nil
	}
	return c.Jar.Cookies(u)
}

// Use 添加中间件。
func (c *Client) Use(mw ...Middleware) {
	c.Prepare = append(c.Prepare, mw...)
}

// Do 发送请求并按需解码 JSON，包含重试、限流、中间件。
func (c *Client) Do(req *http.Request, out any) (err error) {
	if req == nil {
		return errors.New("httpclient: 请求为空")
	}
	if c.HTTP == nil {
		return errors.New("httpclient: http.Client 未配置")
	}
	route := c.RouteLabel(req)
	ctx, span := c.tracer.Start(req.Context(), "HTTP "+req.Method+" "+route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.route", route),
		))
	req = req.WithContext(ctx)
	start := time.Now()
	defer func() {
		metrics.GatewayRequestDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
		metrics.GatewayRequestsTotal.WithLabelValues(req.Method, route, outcomeOf(err)).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	state := &RetryState{}
	for {
		clonedReq, cloneErr := c.cloneRequest(req, state.Attempt)
		if cloneErr != nil {
			return cloneErr
		}
		resp, err := c.execute(clonedReq, out)
		if err == nil {
			span.SetAttributes(attribute.Int("http.attempts", state.Attempt+1))
			return nil
		}
		if resp != nil && resp.Body != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		if c.Retry == nil {
			return err
		}
		retry, wait, policyErr := c.Retry.ShouldRetry(clonedReq, resp, err, state)
		if policyErr != nil {
			return policyErr
		}
		if !retry {
			return err
		}
		state.Attempt++
		if wait > 0 {
			if sleepErr := sleep(req.Context(), wait); sleepErr != nil {
				return &NetworkError{Err: sleepErr}
			}
		}
	}
}

func (c *Client) execute(req *http.Request, out any) (*http.Response, error) {
	if c.Prepare != nil {
		if err := c.Prepare.Apply(req); err != nil {
			return nil, err
		}
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(req.Context(), req); err != nil {
			return nil, &NetworkError{Err: err}
		}
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode >= http.StatusBadRequest {
			return resp, statusToErr(resp.StatusCode)
		}
		return resp, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		var ec ErrCode
		if decodeErr := json.NewDecoder(resp.Body).Decode(&ec); decodeErr == nil {
			ec.Status = resp.StatusCode
			if ec.Message == "" {
				ec.Message = http.StatusText(resp.StatusCode)
			}
			return resp, &ec
		}
		return resp, statusToErr(resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber() // 保留数字精度
	if decodeErr := dec.Decode(out); decodeErr != nil {
		if decodeErr == io.EOF {
			// 空响应体，视为成功
			return resp, nil
		}
		return resp, &DecodeError{Status: resp.StatusCode, Err: decodeErr}
	}
	if ok, okType := out.(OkRsp); okType && !ok.IsSuccess() {
		return resp, toErrCode(ok, resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) cloneRequest(req *http.Request, attempt int) (*http.Request, error) {
	cloned := req.Clone(req.Context())
	cloned.Header = req.Header.Clone()
	cloned.GetBody = req.GetBody
	cloned.ContentLength = req.ContentLength
	cloned.TransferEncoding = append([]string(nil), req.TransferEncoding...)
	if req.Body != nil {
		if attempt == 0 {
			cloned.Body = req.Body
		} else {
			if req.GetBody == nil {
				return nil, fmt.Errorf("httpclient: 请求体不可重试")
			}
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			cloned.Body = body
		}
	}
	return cloned, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return "network_error"
	}
	var ec *ErrCode
	if errors.As(err, &ec) {
		if ec.Status >= http.StatusInternalServerError {
			return "server_error"
		}
		if ec.Status == http.StatusUnauthorized {
			return "unauthorized"
		}
		return "rejected"
	}
	return "error"
}

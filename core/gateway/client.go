package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/coconature/storefront/core/httpclient"
	"github.com/coconature/storefront/core/metrics"
)

// DefaultBaseURL 本地开发后端地址。
const DefaultBaseURL = "http://localhost:5000/api"

// Client 封装后端 REST 接口。
type Client struct {
	http    *httpclient.Client
	logger  httpclient.Logger
	baseURL string
	token   func() string
}

// Option 自定义客户端配置。
type Option func(*Client)

// WithHTTPClient 注入自定义 httpclient.Client。
func WithHTTPClient(cli *httpclient.Client) Option {
	return func(c *Client) {
		if cli != nil {
			c.http = cli
		}
	}
}

// WithLogger 注入日志接口。
func WithLogger(logger httpclient.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBaseURL 替换后端基础地址。
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithTokenSource 设置令牌来源，每次请求前读取。
func WithTokenSource(token func() string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient 创建默认客户端。
func NewClient(opts ...Option) *Client {
	cli := &Client{
		logger:  httpclient.NopLogger{},
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cli)
		}
	}
	if cli.http == nil {
		cli.http = httpclient.NewClient()
	}
	cli.http.Logger = cli.logger
	cli.http.RouteLabel = cli.routeLabel
	cli.http.Use(
		httpclient.WithAccept("application/json"),
		httpclient.WithRequestID(),
		httpclient.WithBearerToken(cli.currentToken),
	)
	return cli
}

// BaseURL 返回后端基础地址。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RouteLabel 返回去掉基础路径后的路由首段，用于指标与限流。
func (c *Client) RouteLabel(req *http.Request) string {
	return c.routeLabel(req)
}

func (c *Client) routeLabel(req *http.Request) string {
	if req == nil || req.URL == nil {
		return "/"
	}
	p := req.URL.Path
	if base, err := url.Parse(c.baseURL); err == nil && base.Path != "" {
		p = strings.TrimPrefix(p, strings.TrimSuffix(base.Path, "/"))
	}
	return metrics.RouteLabel(p)
}

func (c *Client) currentToken() string {
	if c.token == nil {
		return ""
	}
	return c.token()
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	return c.call(ctx, method, path, nil, body, out)
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil || c.http == nil {
		return &GatewayError{Kind: KindUnknown, Message: "gateway: 客户端未初始化"}
	}
	req, err := buildRequest(ctx, method, c.baseURL, path, query, body)
	if err != nil {
		return &GatewayError{Kind: KindUnknown, Raw: err}
	}
	if out == nil {
		out = &Envelope{}
	}
	if err := c.http.Do(req, out); err != nil {
		c.logger.Debugf("gateway: %s %s 失败: %v", method, path, err)
		return toGatewayError(err)
	}
	return nil
}

func escape(id string) string {
	return url.PathEscape(id)
}

// Package metrics 定义客户端侧的 Prometheus 指标。
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_gateway_requests_total",
		Help: "Total number of backend requests issued by the gateway",
	}, []string{"method", "route", "outcome"})

	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_gateway_request_duration_seconds",
		Help:    "Latency of backend requests including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_product_cache_lookups_total",
		Help: "Product cache validity checks by scope and result",
	}, []string{"scope", "result"})

	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_token_refresh_total",
		Help: "Scheduled token refresh attempts by result",
	}, []string{"result"})

	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Cart mutations by operation and result",
	}, []string{"op", "result"})

	SessionExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_session_expired_total",
		Help: "Number of session-expired broadcasts",
	})
)

// RouteLabel 将请求路径压缩为首段，避免 ID 进入标签造成基数膨胀。
func RouteLabel(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "/"
	}
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return "/" + path
}

// Result 将布尔结果转换为标签值。
func Result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

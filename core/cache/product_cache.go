// Package cache 提供商品列表与详情的短期缓存。
// 有效性规则偏向可用性：后端连续失败时宁可返回旧数据，也不反复请求。
package cache

import (
	"sync"
	"time"

	"github.com/coconature/storefront/core/clock"
	"github.com/coconature/storefront/core/metrics"
	"github.com/coconature/storefront/core/model"
)

// Config 缓存有效性阈值。
type Config struct {
	// FreshTTL 内的条目无条件有效。
	FreshTTL time.Duration
	// ErrorGrace 最近一次后端错误之后的宽限期，期间非空条目有效。
	ErrorGrace time.Duration
	// FailureThreshold 连续失败达到该次数后，FailureTTL 内的条目有效。
	FailureThreshold int
	// FailureTTL 失败延长有效期的硬上限。
	FailureTTL time.Duration
}

// DefaultConfig 返回默认阈值：5 分钟新鲜期、60 秒错误宽限、3 次失败、20 分钟上限。
func DefaultConfig() Config {
	return Config{
		FreshTTL:         5 * time.Minute,
		ErrorGrace:       60 * time.Second,
		FailureThreshold: 3,
		FailureTTL:       20 * time.Minute,
	}
}

// Stats 缓存计数快照。
type Stats struct {
	LoadAttempts   int
	FailedAttempts int
	LastErrorAt    time.Time
	Lists          int
	Details        int
}

type entry[T any] struct {
	data    T
	present bool
	at      time.Time
	isError bool
}

// ProductCache 按列表键与商品 ID 两个作用域缓存数据，两者共享失败计数。
type ProductCache struct {
	mu      sync.RWMutex
	cfg     Config
	clock   clock.Clock
	lists   map[string]entry[[]model.Product]
	details map[string]entry[*model.Product]

	loadAttempts   int
	failedAttempts int
	lastErrorAt    time.Time
}

// Option 配置 ProductCache。
type Option func(*ProductCache)

// WithClock 替换时钟。
func WithClock(c clock.Clock) Option {
	return func(pc *ProductCache) {
		if c != nil {
			pc.clock = c
		}
	}
}

// WithConfig 覆盖阈值，零值字段沿用默认值。
func WithConfig(cfg Config) Option {
	return func(pc *ProductCache) {
		def := DefaultConfig()
		if cfg.FreshTTL <= 0 {
			cfg.FreshTTL = def.FreshTTL
		}
		if cfg.ErrorGrace <= 0 {
			cfg.ErrorGrace = def.ErrorGrace
		}
		if cfg.FailureThreshold <= 0 {
			cfg.FailureThreshold = def.FailureThreshold
		}
		if cfg.FailureTTL <= 0 {
			cfg.FailureTTL = def.FailureTTL
		}
		pc.cfg = cfg
	}
}

// New 创建空缓存。
func New(opts ...Option) *ProductCache {
	pc := &ProductCache{
		cfg:     DefaultConfig(),
		clock:   clock.Real{},
		lists:   make(map[string]entry[[]model.Product]),
		details: make(map[string]entry[*model.Product]),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(pc)
		}
	}
	return pc
}

// CacheProducts 写入列表条目。nil 切片视为空载荷，空切片视为有数据。
func (c *ProductCache) CacheProducts(items []model.Product, key string, isError bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[key] = entry[[]model.Product]{
		data:    cloneProducts(items),
		present: items != nil,
		at:      c.clock.Now(),
		isError: isError,
	}
	c.recordLocked(isError)
}

// IsCacheValid 判断列表条目是否可直接使用。
func (c *ProductCache) IsCacheValid(key string) bool {
	c.mu.RLock()
	e, ok := c.lists[key]
	valid := ok && c.validLocked(e.at, e.present, e.isError)
	c.mu.RUnlock()
	observe("list", valid)
	return valid
}

// Products 返回列表条目的副本。
func (c *ProductCache) Products(key string) ([]model.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.lists[key]
	if !ok {
		return nil, false
	}
	return cloneProducts(e.data), true
}

// CacheProductDetail 写入单个商品条目，data 为 nil 表示空载荷。
func (c *ProductCache) CacheProductDetail(productID string, data *model.Product, isError bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var cp *model.Product
	if data != nil {
		p := cloneProduct(*data)
		cp = &p
	}
	c.details[productID] = entry[*model.Product]{
		data:    cp,
		present: cp != nil,
		at:      c.clock.Now(),
		isError: isError,
	}
	c.recordLocked(isError)
}

// IsProductCacheValid 判断商品条目是否可直接使用。
func (c *ProductCache) IsProductCacheValid(productID string) bool {
	c.mu.RLock()
	e, ok := c.details[productID]
	valid := ok && c.validLocked(e.at, e.present, e.isError)
	c.mu.RUnlock()
	observe("detail", valid)
	return valid
}

// ProductDetail 返回商品条目的副本，条目存在但载荷为空时 ok 为 true、商品为 nil。
func (c *ProductCache) ProductDetail(productID string) (*model.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.details[productID]
	if !ok {
		return nil, false
	}
	if e.data == nil {
		return nil, true
	}
	p := cloneProduct(*e.data)
	return &p, true
}

// Invalidate 删除列表条目。
func (c *ProductCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lists, key)
}

// InvalidateProduct 删除商品条目。
func (c *ProductCache) InvalidateProduct(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.details, productID)
}

// Clear 清空所有条目与计数。
func (c *ProductCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists = make(map[string]entry[[]model.Product])
	c.details = make(map[string]entry[*model.Product])
	c.loadAttempts = 0
	c.failedAttempts = 0
	c.lastErrorAt = time.Time{}
}

// Stats 返回计数快照。
func (c *ProductCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		LoadAttempts:   c.loadAttempts,
		FailedAttempts: c.failedAttempts,
		LastErrorAt:    c.lastErrorAt,
		Lists:          len(c.lists),
		Details:        len(c.details),
	}
}

// recordLocked 更新共享计数：任何一次成功写入都会把连续失败清零。
func (c *ProductCache) recordLocked(isError bool) {
	c.loadAttempts++
	if isError {
		c.failedAttempts++
		c.lastErrorAt = c.clock.Now()
		return
	}
	c.failedAttempts = 0
}

func (c *ProductCache) validLocked(at time.Time, present, isError bool) bool {
	now := c.clock.Now()
	age := now.Sub(at)
	switch {
	case age < c.cfg.FreshTTL:
		return true
	case present && !c.lastErrorAt.IsZero() && now.Sub(c.lastErrorAt) < c.cfg.ErrorGrace:
		return true
	case c.failedAttempts >= c.cfg.FailureThreshold && age < c.cfg.FailureTTL:
		return true
	case present && isError:
		return true
	}
	return false
}

func observe(scope string, valid bool) {
	result := "miss"
	if valid {
		result = "hit"
	}
	metrics.CacheLookupsTotal.WithLabelValues(scope, result).Inc()
}

func cloneProducts(items []model.Product) []model.Product {
	if items == nil {
		return nil
	}
	out := make([]model.Product, len(items))
	for i, p := range items {
		out[i] = cloneProduct(p)
	}
	return out
}

func cloneProduct(p model.Product) model.Product {
	if p.Images != nil {
		p.Images = append([]string(nil), p.Images...)
	}
	return p
}

package gateway

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/coconature/storefront/core/model"
)

// ProductQuery 商品列表查询参数。
type ProductQuery struct {
	Search   string
	Category string
	Sort     string
	Page     int
	Limit    int
	MinPrice string
	MaxPrice string
}

// Values 转换为查询串参数。
func (q ProductQuery) Values() url.Values {
	vals := url.Values{}
	if q.Search != "" {
		vals.Set("search", q.Search)
	}
	if q.Category != "" {
		vals.Set("category", q.Category)
	}
	if q.Sort != "" {
		vals.Set("sort", q.Sort)
	}
	if q.Page > 0 {
		vals.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		vals.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.MinPrice != "" {
		vals.Set("minPrice", q.MinPrice)
	}
	if q.MaxPrice != "" {
		vals.Set("maxPrice", q.MaxPrice)
	}
	return vals
}

// Key 返回稳定的缓存键，参数顺序不影响结果。
func (q ProductQuery) Key(scope string) string {
	vals := q.Values()
	if len(vals) == 0 {
		return scope
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(scope)
	for i, k := range keys {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(vals.Get(k))
	}
	return b.String()
}

// ListProducts 获取商品列表。
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) ([]model.Product, error) {
	return c.products(ctx, "/products", q.Values())
}

// SearchProducts 按关键字搜索。
func (c *Client) SearchProducts(ctx context.Context, term string, q ProductQuery) ([]model.Product, error) {
	vals := q.Values()
	vals.Del("search")
	vals.Set("q", term)
	return c.products(ctx, "/products/search", vals)
}

// ProductsByCategory 获取分类下的商品。
func (c *Client) ProductsByCategory(ctx context.Context, category string, q ProductQuery) ([]model.Product, error) {
	vals := q.Values()
	vals.Del("category")
	return c.products(ctx, "/products/category/"+escape(category), vals)
}

func (c *Client) products(ctx context.Context, path string, query url.Values) ([]model.Product, error) {
	var rsp ListResponse[ProductInfo]
	if err := c.get(ctx, path, query, &rsp); err != nil {
		return nil, err
	}
	raw := rsp.Values()
	out := make([]model.Product, 0, len(raw))
	for _, p := range raw {
		out = append(out, p.ToModel())
	}
	return out, nil
}

// Product 获取商品详情。
func (c *Client) Product(ctx context.Context, id string) (*model.Product, error) {
	var rsp ItemResponse[ProductInfo]
	if err := c.get(ctx, "/products/"+escape(id), nil, &rsp); err != nil {
		return nil, err
	}
	info, ok := rsp.Value()
	if !ok {
		return nil, &GatewayError{Kind: KindNotFound, Message: "商品不存在"}
	}
	p := info.ToModel()
	return &p, nil
}

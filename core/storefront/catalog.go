package storefront

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/coconature/storefront/core/gateway"
	"github.com/coconature/storefront/core/model"
)

type listFetcher func(ctx context.Context) ([]model.Product, error)

// Products 获取商品列表。缓存有效时不发请求；请求失败时缓存并返回上一份数据（可能为空）。
func (c *Coordinator) Products(ctx context.Context, q gateway.ProductQuery) ([]model.Product, Result) {
	return c.cachedList(ctx, q.Key("products"), func(ctx context.Context) ([]model.Product, error) {
		return c.gw.ListProducts(ctx, q)
	})
}

// SearchProducts 按关键字搜索。
func (c *Coordinator) SearchProducts(ctx context.Context, term string, q gateway.ProductQuery) ([]model.Product, Result) {
	term = strings.TrimSpace(term)
	if term == "" {
		return c.Products(ctx, q)
	}
	q.Search = ""
	return c.cachedList(ctx, q.Key("products/search:"+term), func(ctx context.Context) ([]model.Product, error) {
		return c.gw.SearchProducts(ctx, term, q)
	})
}

// ProductsByCategory 获取分类下的商品。
func (c *Coordinator) ProductsByCategory(ctx context.Context, category string, q gateway.ProductQuery) ([]model.Product, Result) {
	q.Category = ""
	return c.cachedList(ctx, q.Key("products/category:"+category), func(ctx context.Context) ([]model.Product, error) {
		return c.gw.ProductsByCategory(ctx, category, q)
	})
}

// ProductDetail 获取商品详情，后端请求受 DetailTimeout 约束。
func (c *Coordinator) ProductDetail(ctx context.Context, id string) (*model.Product, Result) {
	if strings.TrimSpace(id) == "" {
		return nil, failed(MsgInvalidProduct)
	}
	if c.products.IsProductCacheValid(id) {
		p, _ := c.products.ProductDetail(id)
		if p == nil {
			return nil, failed(MsgProductNotFound)
		}
		return p, ok("")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.detailTimeout)
	defer cancel()
	p, err := c.gw.Product(fetchCtx, id)
	if err != nil {
		last, _ := c.products.ProductDetail(id)
		c.products.CacheProductDetail(id, last, true)
		c.logger.Warn("fetch product failed", zap.String("id", id), zap.Error(err))
		if isNotFound(err) {
			return last, failed(MsgProductNotFound)
		}
		return last, failed(catalogMessage(err))
	}
	c.products.CacheProductDetail(id, p, false)
	return p, ok("")
}

// InvalidateCatalog 丢弃所有商品缓存，下次访问强制请求后端。
func (c *Coordinator) InvalidateCatalog() {
	c.products.Clear()
}

func (c *Coordinator) cachedList(ctx context.Context, key string, fetch listFetcher) ([]model.Product, Result) {
	if c.products.IsCacheValid(key) {
		items, _ := c.products.Products(key)
		return orEmpty(items), ok("")
	}
	items, err := fetch(ctx)
	if err != nil {
		// 失败时保留上一份载荷（可能为 null）并打上错误标记
		last, _ := c.products.Products(key)
		c.products.CacheProducts(last, key, true)
		c.logger.Warn("fetch products failed", zap.String("key", key), zap.Error(err))
		return orEmpty(last), failed(catalogMessage(err))
	}
	items = orEmpty(items)
	c.products.CacheProducts(items, key, false)
	return items, ok("")
}

func orEmpty(items []model.Product) []model.Product {
	if items == nil {
		return []model.Product{}
	}
	return items
}

func catalogMessage(err error) string {
	if msg := gateway.ServerMessage(err); msg != "" {
		return msg
	}
	return MsgCatalogUnavailable
}

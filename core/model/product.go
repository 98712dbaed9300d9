package model

import "github.com/shopspring/decimal"

// Product 是经过规范化的商品记录，价格字段均为数值。
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug,omitempty"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
	SalePrice   decimal.Decimal `json:"salePrice"`
	Images      []string        `json:"images,omitempty"`
	Stock       int             `json:"stock"`
	Rating      float64         `json:"rating,omitempty"`
}

// EffectivePrice 按促销价优先的规则解析单价。
func (p Product) EffectivePrice() decimal.Decimal {
	return ResolvePrice(p.SalePrice, p.Price)
}

// Image 返回首图，没有图片时返回空串。
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// OnSale 判断是否处于促销价。
func (p Product) OnSale() bool {
	return p.SalePrice.IsPositive() && p.SalePrice.LessThan(p.Price)
}

// InStock 判断是否有库存。
func (p Product) InStock() bool {
	return p.Stock > 0
}

// ResolvePrice 促销价大于 0 时取促销价，否则取原价；原价缺失或非正时为 0。
func ResolvePrice(salePrice, price decimal.Decimal) decimal.Decimal {
	if salePrice.IsPositive() {
		return salePrice
	}
	if price.IsPositive() {
		return price
	}
	return decimal.Zero
}

// ProductRef 是加入购物车/收藏时调用方传入的商品引用。
// Quantity 非 0 时优先于调用方显式传入的数量。
type ProductRef struct {
	ID       string
	Name     string
	Quantity int
}

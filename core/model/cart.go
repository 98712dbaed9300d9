package model

import "github.com/shopspring/decimal"

// CartLine 表示购物车中的一行。
type CartLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image,omitempty"`
}

// LineTotal 返回单价 × 数量。
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart 为有序的购物车行集合，ProductID 唯一。
type Cart []CartLine

// NewCart 由任意行构造购物车：数量小于 1 的行修正为 1，重复商品只保留首次出现的一行并累加数量。
func NewCart(lines []CartLine) Cart {
	cart := make(Cart, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.ProductID == "" {
			continue
		}
		l.Quantity = ClampQuantity(l.Quantity)
		if i, ok := index[l.ProductID]; ok {
			cart[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(cart)
		cart = append(cart, l)
	}
	return cart
}

// Total 返回合计金额。
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c {
		total = total.Add(l.LineTotal())
	}
	return total
}

// Count 返回商品件数合计。
func (c Cart) Count() int {
	n := 0
	for _, l := range c {
		n += l.Quantity
	}
	return n
}

// Find 按商品 ID 查找行。
func (c Cart) Find(productID string) (CartLine, bool) {
	for _, l := range c {
		if l.ProductID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}

// Clone 返回副本，空购物车返回非 nil 空切片。
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// ClampQuantity 将数量修正为不小于 1 的整数。
func ClampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}

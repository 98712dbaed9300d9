package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// WishlistEntry 收藏夹条目。
type WishlistEntry struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	AddedAt   time.Time       `json:"addedAt,omitempty"`
}

// Wishlist 收藏夹。
type Wishlist []WishlistEntry

// Without 返回移除 productID 后的副本。
func (w Wishlist) Without(productID string) Wishlist {
	out := make(Wishlist, 0, len(w))
	for _, e := range w {
		if e.ProductID != productID {
			out = append(out, e)
		}
	}
	return out
}

// Contains 判断是否已收藏。
func (w Wishlist) Contains(productID string) bool {
	for _, e := range w {
		if e.ProductID == productID {
			return true
		}
	}
	return false
}

// Clone 返回副本，空收藏夹返回非 nil 空切片。
func (w Wishlist) Clone() Wishlist {
	out := make(Wishlist, len(w))
	copy(out, w)
	return out
}

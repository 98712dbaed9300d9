package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestResolvePrice(t *testing.T) {
	tests := []struct {
		name       string
		sale, base decimal.Decimal
		want       decimal.Decimal
	}{
		{"sale wins", d(80), d(100), d(80)},
		{"zero sale falls back", d(0), d(100), d(100)},
		{"negative sale falls back", d(-5), d(100), d(100)},
		{"nothing", decimal.Zero, decimal.Zero, decimal.Zero},
		{"negative base", decimal.Zero, d(-1), decimal.Zero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(ResolvePrice(tt.sale, tt.base)), "got %s", ResolvePrice(tt.sale, tt.base))
		})
	}
}

func TestNewCart_ClampsAndDeduplicates(t *testing.T) {
	cart := NewCart([]CartLine{
		{ProductID: "p1", UnitPrice: d(10), Quantity: 0},
		{ProductID: "p2", UnitPrice: d(5), Quantity: 2},
		{ProductID: "p1", UnitPrice: d(10), Quantity: 3},
		{ProductID: "", Quantity: 9},
	})

	assert.Len(t, cart, 2)
	assert.Equal(t, "p1", cart[0].ProductID)
	assert.Equal(t, 4, cart[0].Quantity)
	assert.Equal(t, 6, cart.Count())
	assert.True(t, d(50).Equal(cart.Total()))

	line, ok := cart.Find("p2")
	assert.True(t, ok)
	assert.Equal(t, 2, line.Quantity)
}

func TestNewCart_EmptyIsNonNil(t *testing.T) {
	assert.NotNil(t, NewCart(nil))
	assert.NotNil(t, Cart(nil).Clone())
}

func TestWishlist_Without(t *testing.T) {
	w := Wishlist{{ProductID: "a"}, {ProductID: "b"}}
	out := w.Without("a")
	assert.Equal(t, Wishlist{{ProductID: "b"}}, out)
	assert.Len(t, w, 2)
	assert.False(t, out.Contains("a"))
}

func TestDiscount_AmountFor(t *testing.T) {
	pct := Discount{Type: DiscountPercent, Value: d(10), MinOrder: d(100)}
	assert.True(t, d(20).Equal(pct.AmountFor(d(200))))
	assert.True(t, pct.AmountFor(d(50)).IsZero())

	fixed := Discount{Type: DiscountFixed, Value: d(500)}
	assert.True(t, d(300).Equal(fixed.AmountFor(d(300))))

	server := Discount{Type: DiscountPercent, Value: d(10), Amount: d(7)}
	assert.True(t, d(7).Equal(server.AmountFor(d(200))))
}

func TestCheckoutForm_Missing(t *testing.T) {
	f := CheckoutForm{FullName: "An", Phone: "090", Street: "1 Le Loi", Province: "HCM", PaymentMethod: PaymentVietQR}
	assert.Empty(t, f.Missing())

	f.Phone = " "
	f.PaymentMethod = "card"
	assert.Equal(t, []string{"phone", "paymentMethod"}, f.Missing())
}

func TestOrderStatus_Cancellable(t *testing.T) {
	assert.True(t, OrderStatusPending.Cancellable())
	assert.True(t, OrderStatusConfirmed.Cancellable())
	assert.False(t, OrderStatusShipping.Cancellable())
	assert.False(t, OrderStatusCancelled.Cancellable())
}

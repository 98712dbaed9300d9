package storefront

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coconature/storefront/core/gateway"
	"github.com/coconature/storefront/core/model"
	"github.com/coconature/storefront/core/store"
)

var checkoutForm = model.CheckoutForm{
	FullName:      "Tran Thi Lan",
	Phone:         "0901234567",
	Street:        "12 Nguyen Hue",
	District:      "Quan 1",
	Province:      "Ho Chi Minh",
	Note:          " ring the bell ",
	PaymentMethod: model.PaymentVietQR,
}

func TestPlaceOrder(t *testing.T) {
	gw := &fakeBackend{
		cart:    model.Cart{line("p1", 100000, 2), line("p2", 50000, 1)},
		address: &model.Address{ID: "addr-1"},
		order:   &model.Order{ID: "ord-42", Status: model.OrderStatusPending, PaymentMethod: model.PaymentVietQR},
	}
	h := newHarness(t, gw)
	h.login(t)

	order, res := h.c.PlaceOrder(context.Background(), checkoutForm, "coco10")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "ord-42", order.ID)
	assert.Equal(t, gateway.OrderRequest{
		Items:         []gateway.OrderItemRequest{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 1}},
		AddressID:     "addr-1",
		PaymentMethod: model.PaymentVietQR,
		Note:          "ring the bell",
		DiscountCode:  "COCO10",
	}, gw.lastOrder)

	assert.Empty(t, h.c.Cart())
	stored, err := store.NewRecord[model.Cart](h.mem, store.KeyCart).Load()
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Equal(t, "ord-42", h.c.LastOrderID())

	form, found := h.c.CheckoutForm()
	assert.True(t, found)
	assert.Equal(t, checkoutForm, form)
}

func TestPlaceOrder_ValidationNeverReachesNetwork(t *testing.T) {
	gw := &fakeBackend{cart: model.Cart{line("p1", 100000, 1)}, address: &model.Address{ID: "addr-1"}}
	h := newHarness(t, gw)
	h.login(t)
	before := gw.total()

	form := checkoutForm
	form.Phone = ""
	form.PaymentMethod = "card"
	_, res := h.c.PlaceOrder(context.Background(), form, "")
	assert.False(t, res.Success)
	assert.Equal(t, "Please complete the following fields: phone, paymentMethod.", res.Message)
	assert.Equal(t, before, gw.total())
	assert.NotEmpty(t, h.c.Cart())
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	gw := &fakeBackend{}
	h := newHarness(t, gw)
	h.login(t)

	_, res := h.c.PlaceOrder(context.Background(), checkoutForm, "")
	assert.Equal(t, MsgCartEmpty, res.Message)
	assert.Zero(t, gw.count("orderCreate"))
}

func TestPlaceOrder_FailureKeepsCart(t *testing.T) {
	gw := &fakeBackend{
		cart:     model.Cart{line("p1", 100000, 1)},
		address:  &model.Address{ID: "addr-1"},
		orderErr: &gateway.GatewayError{Kind: gateway.KindValidation, HTTPStatus: 400, Message: "Product p1 is out of stock"},
	}
	h := newHarness(t, gw)
	h.login(t)

	order, res := h.c.PlaceOrder(context.Background(), checkoutForm, "")
	assert.Nil(t, order)
	assert.Equal(t, "Product p1 is out of stock", res.Message)
	assert.Len(t, h.c.Cart(), 1)
	assert.Empty(t, h.c.LastOrderID())
}

func TestOrdersRequireSession(t *testing.T) {
	gw := &fakeBackend{order: &model.Order{ID: "ord-1", Status: model.OrderStatusConfirmed}}
	h := newHarness(t, gw)
	ctx := context.Background()

	_, res := h.c.Orders(ctx)
	assert.Equal(t, MsgLoginRequired, res.Message)
	_, res = h.c.CancelOrder(ctx, "ord-1")
	assert.Equal(t, MsgLoginRequired, res.Message)
	assert.Zero(t, gw.total())

	h.login(t)
	orders, res := h.c.Orders(ctx)
	require.True(t, res.Success)
	assert.Len(t, orders, 1)

	status, res := h.c.OrderStatus(ctx, "ord-1")
	require.True(t, res.Success)
	assert.Equal(t, model.OrderStatusConfirmed, status)

	gw.order = &model.Order{ID: "ord-1", Status: model.OrderStatusCancelled}
	order, res := h.c.CancelOrder(ctx, "ord-1")
	require.True(t, res.Success)
	assert.Equal(t, model.OrderStatusCancelled, order.Status)
}

func TestCancelOrder_RejectedFallsBackToGenericMessage(t *testing.T) {
	gw := &fakeBackend{orderErr: &gateway.GatewayError{Kind: gateway.KindDecode}}
	h := newHarness(t, gw)
	h.login(t)

	_, res := h.c.CancelOrder(context.Background(), "ord-1")
	assert.False(t, res.Success)
	assert.Equal(t, MsgOrderNotCancelable, res.Message)
}

func TestAddressBook(t *testing.T) {
	gw := &fakeBackend{address: &model.Address{ID: "addr-1", Street: "1 Le Loi"}}
	h := newHarness(t, gw)
	h.login(t)
	ctx := context.Background()

	saved, res := h.c.SaveAddress(ctx, model.Address{FullName: "Lan", Street: "2 Le Loi"})
	require.True(t, res.Success)
	assert.Equal(t, "addr-new", saved.ID)
	assert.Equal(t, 1, gw.count("addressCreate"))

	_, res = h.c.SaveAddress(ctx, model.Address{ID: "addr-1", Street: "3 Le Loi"})
	require.True(t, res.Success)
	assert.Equal(t, 1, gw.count("addressUpdate"))

	addrs, res := h.c.Addresses(ctx)
	require.True(t, res.Success)
	assert.Len(t, addrs, 1)

	assert.True(t, h.c.DeleteAddress(ctx, "addr-1").Success)
}

func TestApplyDiscountToExistingOrder(t *testing.T) {
	gw := &fakeBackend{
		order:    &model.Order{ID: "ord-7", Status: model.OrderStatusPending, Subtotal: decimal.NewFromInt(320000)},
		discount: &model.Discount{Code: "COCO10", Type: model.DiscountPercent, Value: decimal.NewFromInt(10)},
	}
	h := newHarness(t, gw)
	ctx := context.Background()

	_, res := h.c.ApplyDiscount(ctx, "ord-7", "coco10")
	assert.Equal(t, MsgLoginRequired, res.Message)
	assert.Zero(t, gw.total())

	h.login(t)
	_, res = h.c.ApplyDiscount(ctx, "ord-7", " ")
	assert.Equal(t, MsgDiscountRequired, res.Message)
	assert.Zero(t, gw.count("discountApply"))

	d, res := h.c.ApplyDiscount(ctx, "ord-7", " coco10 ")
	require.True(t, res.Success)
	assert.Equal(t, "COCO10", d.Code)
	assert.Equal(t, "ord-7", gw.applied)
	assert.True(t, decimal.NewFromInt(320000).Equal(gw.lastAmount))
}

package storefront

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coconature/storefront/core/gateway"
	"github.com/coconature/storefront/core/model"
	"github.com/coconature/storefront/core/store"
)

func TestCartMutations_RequireSession(t *testing.T) {
	gw := &fakeBackend{cart: model.Cart{line("p1", 1000, 1)}}
	h := newHarness(t, gw)
	ctx := context.Background()

	results := []Result{
		h.c.AddToCart(ctx, model.ProductRef{ID: "p1"}, 1),
		h.c.UpdateCartItemQuantity(ctx, "p1", 2),
		h.c.RemoveFromCart(ctx, "p1"),
		h.c.MoveWishlistItemToCart(ctx, "p1"),
		h.c.AddToWishlist(ctx, model.ProductRef{ID: "p1"}),
		h.c.RemoveFromWishlist(ctx, "p1"),
	}
	for _, res := range results {
		assert.False(t, res.Success)
		assert.Equal(t, MsgLoginRequired, res.Message)
	}
	assert.Zero(t, gw.total(), "no network calls while signed out")
	assert.Empty(t, h.c.Cart())
	assert.Len(t, h.ui.redirects, len(results))
	assert.Equal(t, len(results), h.ui.count(LevelWarning))
	_, found, err := h.mem.Get(store.KeyCart)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAddToCart_EmbeddedQuantityWins(t *testing.T) {
	gw := &fakeBackend{cart: model.Cart{line("p1", 1000, 3)}}
	h := newHarness(t, gw)
	h.login(t)

	res := h.c.AddToCart(context.Background(), model.ProductRef{ID: "p1", Name: "X", Quantity: 3}, 1)
	require.True(t, res.Success)
	assert.Equal(t, 3, gw.lastQty)

	h.c.AddToCart(context.Background(), model.ProductRef{ID: "p1"}, 4)
	assert.Equal(t, 4, gw.lastQty)

	h.c.AddToCart(context.Background(), model.ProductRef{ID: "p1"}, 0)
	assert.Equal(t, 1, gw.lastQty)

	h.c.AddToCart(context.Background(), model.ProductRef{ID: "p1", Quantity: -2}, 5)
	assert.Equal(t, 1, gw.lastQty)
}

func TestCartMutations_ReplaceWithServerList(t *testing.T) {
	gw := &fakeBackend{cart: model.Cart{line("p1", 1000, 1), line("p2", 2000, 5)}}
	h := newHarness(t, gw)
	h.login(t)

	gw.cart = model.Cart{line("p3", 3000, 2)}
	h.c.AddToCart(context.Background(), model.ProductRef{ID: "p3"}, 2)
	assert.Equal(t, model.Cart{line("p3", 3000, 2)}, h.c.Cart(), "previous lines never survive a mutation")

	gw.cart = model.Cart{line("p3", 2500, 7)}
	h.c.UpdateCartItemQuantity(context.Background(), "p3", 7)
	assert.Equal(t, model.Cart{line("p3", 2500, 7)}, h.c.Cart())

	gw.cart = model.Cart{}
	h.c.RemoveFromCart(context.Background(), "p3")
	assert.Empty(t, h.c.Cart())

	stored, err := store.NewRecord[model.Cart](h.mem, store.KeyCart).Load()
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestUpdateCartItemQuantity_ClampsToOne(t *testing.T) {
	gw := &fakeBackend{cart: model.Cart{line("p1", 1000, 1)}}
	h := newHarness(t, gw)
	h.login(t)

	for _, q := range []int{0, -4} {
		res := h.c.UpdateCartItemQuantity(context.Background(), "p1", q)
		require.True(t, res.Success)
		assert.Equal(t, 1, gw.lastQty)
	}
}

func TestCartMutation_FailurePersistsLastKnownCart(t *testing.T) {
	gw := &fakeBackend{cart: model.Cart{line("p1", 1000, 2)}}
	h := newHarness(t, gw)
	h.login(t)

	gw.cartErr = &gateway.GatewayError{Kind: gateway.KindBusiness, HTTPStatus: 200, Message: "Out of stock"}
	require.NoError(t, h.mem.Remove(store.KeyCart))

	res := h.c.RemoveFromCart(context.Background(), "p1")
	assert.False(t, res.Success)
	assert.Equal(t, "Out of stock", res.Message)
	assert.Equal(t, model.Cart{line("p1", 1000, 2)}, h.c.Cart())

	stored, err := store.NewRecord[model.Cart](h.mem, store.KeyCart).Load()
	require.NoError(t, err)
	assertSameCart(t, h.c.Cart(), stored)
}

func TestClearCart_LocalAlwaysSucceeds(t *testing.T) {
	gw := &fakeBackend{cart: model.Cart{line("p1", 1000, 2)}, clearCartErr: &gateway.GatewayError{Kind: gateway.KindNetwork}}
	h := newHarness(t, gw)
	h.login(t)

	res := h.c.ClearCart(context.Background())
	assert.True(t, res.Success)
	assert.Empty(t, h.c.Cart())
	assert.Equal(t, 1, gw.count("cartClear"))

	h.c.Logout(context.Background())
	res = h.c.ClearCart(context.Background())
	assert.True(t, res.Success)
	assert.Equal(t, 1, gw.count("cartClear"), "signed-out clear stays local")
}

func TestRestoreCart_FallsBackToStorageWhenServerUnavailable(t *testing.T) {
	gw := &fakeBackend{cart: model.Cart{line("p1", 1000, 2)}}
	h := newHarness(t, gw)
	h.login(t)

	gw.cartErr = &gateway.GatewayError{Kind: gateway.KindNetwork}
	h.c.RestoreCart(context.Background())
	assertSameCart(t, model.Cart{line("p1", 1000, 2)}, h.c.Cart())
}

func TestMoveWishlistItemToCart(t *testing.T) {
	gw := &fakeBackend{wishlist: model.Wishlist{{ProductID: "p7"}}}
	h := newHarness(t, gw)
	h.login(t)

	gw.cart = model.Cart{line("p7", 7000, 1)}
	gw.wishlist = model.Wishlist{}
	res := h.c.MoveWishlistItemToCart(context.Background(), "p7")
	require.True(t, res.Success)
	assert.Equal(t, 1, h.c.CartCount())
	assert.False(t, h.c.InWishlist("p7"))
}

func TestCartTotals(t *testing.T) {
	gw := &fakeBackend{cart: model.Cart{line("p1", 1500, 2), line("p2", 500, 3)}}
	h := newHarness(t, gw)
	h.login(t)

	assert.Equal(t, "4500", h.c.CartTotal().String())
	assert.Equal(t, 5, h.c.CartCount())
}

// assertSameCart 按字段比较，金额用 Decimal.Equal 以忽略 JSON 往返后的内部表示差异。
func assertSameCart(t *testing.T, want, got model.Cart) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ProductID, got[i].ProductID)
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.True(t, want[i].UnitPrice.Equal(got[i].UnitPrice), "price of %s", want[i].ProductID)
	}
}

func TestCartResponseAfterLogoutIsDropped(t *testing.T) {
	gw := &fakeBackend{cart: model.Cart{line("p1", 1000, 1)}}
	h := newHarness(t, gw)
	h.login(t)
	ctx := context.Background()

	gw.cart = model.Cart{line("p1", 1000, 2)}
	gw.during = func() { h.c.Logout(ctx) }
	res := h.c.AddToCart(ctx, model.ProductRef{ID: "p1"}, 1)

	assert.False(t, res.Success)
	assert.Empty(t, h.c.Cart())
	_, found, err := h.mem.Get(store.KeyCart)
	require.NoError(t, err)
	assert.False(t, found, "previous user's cart is not written back after logout")
}

func TestCartResponseSurvivesTokenRefresh(t *testing.T) {
	gw := &fakeBackend{cart: model.Cart{line("p1", 1000, 1)}}
	h := newHarness(t, gw)
	h.login(t)
	ctx := context.Background()

	gw.cart = model.Cart{line("p1", 1000, 2)}
	gw.during = func() { require.NoError(t, h.c.Session().Refresh(ctx)) }
	res := h.c.AddToCart(ctx, model.ProductRef{ID: "p1"}, 2)

	require.True(t, res.Success)
	assert.Equal(t, "refreshed", h.c.Session().Token())
	assert.Equal(t, 2, h.c.CartCount())
}

package storefront

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coconature/storefront/core/auth"
	"github.com/coconature/storefront/core/gateway"
	"github.com/coconature/storefront/core/model"
	"github.com/coconature/storefront/core/store"
)

func TestLogin_SchedulesSingleRefreshTimer(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	res := h.c.Login(context.Background(), h.creds)
	assert.True(t, res.Success)
	assert.Equal(t, MsgSignedIn, res.Message)
	token, found, err := h.mem.Get(store.KeyToken)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, 1, h.clk.Pending())

	h.login(t)
	assert.Equal(t, 1, h.clk.Pending(), "no duplicate timers after two logins")

	h.clk.Advance(55 * time.Minute)
	assert.Equal(t, 1, h.gw.count("refresh"))
}

func TestLogin_ResyncsCartAndWishlist(t *testing.T) {
	gw := &fakeBackend{
		cart:     model.Cart{line("p1", 50000, 2)},
		wishlist: model.Wishlist{{ProductID: "p9", Name: "Soap"}},
	}
	h := newHarness(t, gw)
	h.login(t)

	assert.Equal(t, 1, gw.count("cart"))
	assert.Equal(t, 1, gw.count("wishlist"))
	assert.Equal(t, 2, h.c.CartCount())
	assert.True(t, h.c.InWishlist("p9"))
}

func TestLogin_FailureSurfacesServerMessage(t *testing.T) {
	gw := &fakeBackend{loginErr: &gateway.GatewayError{Kind: gateway.KindUnauthorized, HTTPStatus: 401, Message: "Invalid email or password"}}
	h := newHarness(t, gw)

	res := h.c.Login(context.Background(), h.creds)
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid email or password", res.Message)
	assert.Zero(t, h.clk.Pending())
	assert.Zero(t, gw.count("cart"))

	res = h.c.Login(context.Background(), model.Credentials{Email: "lan@coco.vn"})
	assert.Equal(t, MsgMissingCredentials, res.Message)
	assert.Equal(t, 1, gw.count("login"))
}

func TestLogin_NetworkFailureUsesGenericMessage(t *testing.T) {
	gw := &fakeBackend{loginErr: &gateway.GatewayError{Kind: gateway.KindNetwork}}
	h := newHarness(t, gw)

	res := h.c.Login(context.Background(), h.creds)
	assert.False(t, res.Success)
	assert.Equal(t, MsgNetwork, res.Message)
	assert.Equal(t, 1, h.ui.count(LevelError))
}

func TestLogout_ClearsStateAndCancelsRefresh(t *testing.T) {
	gw := &fakeBackend{
		cart:     model.Cart{line("p1", 50000, 1)},
		wishlist: model.Wishlist{{ProductID: "p2"}},
	}
	h := newHarness(t, gw)
	require.NoError(t, h.mem.Set(store.KeyOrderID, "ord-1"))
	h.login(t)
	require.NotEmpty(t, h.c.Cart())

	res := h.c.Logout(context.Background())
	assert.True(t, res.Success)

	for _, key := range []string{store.KeyToken, store.KeyUser, store.KeyCart, store.KeyWishlist} {
		_, found, err := h.mem.Get(key)
		require.NoError(t, err)
		assert.False(t, found, key)
	}
	assert.NotNil(t, h.c.Cart())
	assert.Empty(t, h.c.Cart())
	assert.NotNil(t, h.c.Wishlist())
	assert.Empty(t, h.c.Wishlist())
	assert.Equal(t, "ord-1", h.c.LastOrderID())
	assert.Equal(t, auth.StateAnonymous, h.c.State())

	h.clk.Advance(56 * time.Minute)
	assert.Zero(t, gw.count("refresh"), "no refresh after logout")
	assert.Zero(t, h.clk.Pending())
}

func TestSessionExpired_RedirectsAndNotifiesOnce(t *testing.T) {
	gw := &fakeBackend{refreshErr: &gateway.GatewayError{Kind: gateway.KindUnauthorized}}
	h := newHarness(t, gw)
	h.login(t)
	warningsBefore := h.ui.count(LevelWarning)

	h.clk.Advance(55 * time.Minute)
	assert.Equal(t, auth.StateExpired, h.c.State())
	assert.Equal(t, []string{auth.DefaultExpiredMessage}, h.ui.redirects)
	assert.Equal(t, warningsBefore+1, h.ui.count(LevelWarning))

	h.clk.Advance(2 * time.Hour)
	assert.Len(t, h.ui.redirects, 1)
	assert.Equal(t, 1, gw.count("refresh"))

	assert.Equal(t, auth.StateAnonymous, h.c.OnUserActivity(context.Background()))
}

func TestSessionExpired_AnonymousVisitorNotNotified(t *testing.T) {
	gw := &fakeBackend{profileErr: &gateway.GatewayError{Kind: gateway.KindUnauthorized}}
	h := newHarness(t, gw)
	require.NoError(t, h.mem.Set(store.KeyToken, "stale"))

	state := h.c.CheckAuthStatus(context.Background())
	assert.Equal(t, auth.StateExpired, state)
	assert.Len(t, h.ui.redirects, 1)
	assert.Zero(t, h.ui.count(LevelWarning))
}

func TestCheckAuthStatus_RestoresFromServerWhenTokenConfirmed(t *testing.T) {
	gw := &fakeBackend{
		profile:  shopper,
		cart:     model.Cart{line("p1", 10000, 3)},
		wishlist: model.Wishlist{{ProductID: "p5"}},
	}
	h := newHarness(t, gw)
	require.NoError(t, h.mem.Set(store.KeyToken, "tok"))
	require.NoError(t, store.NewRecord[model.Cart](h.mem, store.KeyCart).Save(model.Cart{line("old", 1, 1)}))

	assert.Equal(t, auth.StateAuthenticated, h.c.CheckAuthStatus(context.Background()))
	assert.Equal(t, model.Cart{line("p1", 10000, 3)}, h.c.Cart())
	assert.True(t, h.c.InWishlist("p5"))
	assert.Equal(t, 1, h.clk.Pending())
}

func TestCheckAuthStatus_AnonymousRestoresFromStorage(t *testing.T) {
	gw := &fakeBackend{}
	h := newHarness(t, gw)
	require.NoError(t, store.NewRecord[model.Cart](h.mem, store.KeyCart).Save(model.Cart{line("p1", 10000, 2)}))

	assert.Equal(t, auth.StateAnonymous, h.c.CheckAuthStatus(context.Background()))
	assert.Equal(t, 2, h.c.CartCount())
	assert.Zero(t, gw.total())
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t, &fakeBackend{})
	name := "Lan Pham"

	res := h.c.UpdateProfile(context.Background(), model.ProfilePatch{Name: &name})
	assert.False(t, res.Success)
	assert.Equal(t, MsgLoginRequired, res.Message)

	h.login(t)
	res = h.c.UpdateProfile(context.Background(), model.ProfilePatch{})
	assert.Equal(t, MsgNothingToUpdate, res.Message)

	res = h.c.UpdateProfile(context.Background(), model.ProfilePatch{Name: &name})
	assert.True(t, res.Success)
	assert.Equal(t, name, h.c.User().Name)
}

func TestRegister(t *testing.T) {
	gw := &fakeBackend{}
	h := newHarness(t, gw)

	res := h.c.Register(context.Background(), model.Registration{Name: "Lan", Email: "lan@coco.vn", Password: "pw"})
	assert.True(t, res.Success)
	assert.Equal(t, MsgRegistered, res.Message)
	assert.True(t, h.c.Authenticated())
	assert.Equal(t, 1, h.clk.Pending())
}

func TestValidateDiscountUsesCartSubtotal(t *testing.T) {
	gw := &fakeBackend{
		cart:     model.Cart{line("p1", 100000, 2), line("p2", 50000, 1)},
		discount: &model.Discount{Code: "COCO10", Type: model.DiscountPercent, Value: decimal.NewFromInt(10)},
	}
	h := newHarness(t, gw)
	h.login(t)

	d, res := h.c.ValidateDiscount(context.Background(), " coco10 ")
	require.True(t, res.Success)
	assert.Equal(t, "COCO10", d.Code)
	assert.True(t, decimal.NewFromInt(250000).Equal(gw.lastAmount))

	_, res = h.c.ValidateDiscount(context.Background(), "  ")
	assert.Equal(t, MsgDiscountRequired, res.Message)
	assert.Equal(t, 1, gw.count("discount"))
}

package storefront

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coconature/storefront/core/clock"
	"github.com/coconature/storefront/core/gateway"
	"github.com/coconature/storefront/core/model"
	"github.com/coconature/storefront/core/store"
)

// fakeBackend 记录每次调用，返回预设结果。
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	grant      *gateway.AuthGrant
	loginErr   error
	profile    *model.User
	profileErr error
	refreshErr error

	cart       model.Cart
	cartErr    error
	lastQty    int
	lastCartID string

	wishlist       model.Wishlist
	wishlistErr    error
	removeWishErr  error
	addWishErr     error
	clearCartErr   error
	productList    []model.Product
	productListErr error
	product        *model.Product
	productErr     error
	blockProduct   bool

	address    *model.Address
	order      *model.Order
	orderErr   error
	lastOrder  gateway.OrderRequest
	discount   *model.Discount
	lastAmount decimal.Decimal
	applied    string

	// during 在请求处理中途执行一次，用于模拟请求期间的会话切换
	during func()
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) interleave() {
	f.mu.Lock()
	fn := f.during
	f.during = nil
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *fakeBackend) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.calls {
		n += v
	}
	return n
}

func (f *fakeBackend) Login(ctx context.Context, creds model.Credentials) (*gateway.AuthGrant, error) {
	f.hit("login")
	return f.grant, f.loginErr
}

func (f *fakeBackend) Register(ctx context.Context, reg model.Registration) (*gateway.AuthGrant, error) {
	f.hit("register")
	return f.grant, f.loginErr
}

func (f *fakeBackend) Logout(ctx context.Context) error {
	f.hit("logout")
	return nil
}

func (f *fakeBackend) Profile(ctx context.Context) (*model.User, error) {
	f.hit("profile")
	return f.profile, f.profileErr
}

func (f *fakeBackend) UpdateProfile(ctx context.Context, patch model.ProfilePatch) (*model.User, error) {
	f.hit("updateProfile")
	u := *f.grant.User
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	return &u, nil
}

func (f *fakeBackend) RefreshToken(ctx context.Context) (*gateway.AuthGrant, error) {
	f.hit("refresh")
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &gateway.AuthGrant{Token: "refreshed"}, nil
}

func (f *fakeBackend) Cart(ctx context.Context) (model.Cart, error) {
	f.hit("cart")
	return f.cart.Clone(), f.cartErr
}

func (f *fakeBackend) AddToCart(ctx context.Context, productID string, quantity int) (model.Cart, error) {
	f.hit("cartAdd")
	f.interleave()
	f.lastCartID, f.lastQty = productID, quantity
	if f.cartErr != nil {
		return nil, f.cartErr
	}
	return f.cart.Clone(), nil
}

func (f *fakeBackend) UpdateCartItem(ctx context.Context, productID string, quantity int) (model.Cart, error) {
	f.hit("cartUpdate")
	f.lastCartID, f.lastQty = productID, quantity
	if f.cartErr != nil {
		return nil, f.cartErr
	}
	return f.cart.Clone(), nil
}

func (f *fakeBackend) RemoveFromCart(ctx context.Context, productID string) (model.Cart, error) {
	f.hit("cartRemove")
	f.lastCartID = productID
	if f.cartErr != nil {
		return nil, f.cartErr
	}
	return f.cart.Clone(), nil
}

func (f *fakeBackend) ClearCart(ctx context.Context) error {
	f.hit("cartClear")
	return f.clearCartErr
}

func (f *fakeBackend) Wishlist(ctx context.Context) (model.Wishlist, error) {
	f.hit("wishlist")
	f.interleave()
	return f.wishlist.Clone(), f.wishlistErr
}

func (f *fakeBackend) AddToWishlist(ctx context.Context, productID string) error {
	f.hit("wishlistAdd")
	return f.addWishErr
}

func (f *fakeBackend) RemoveFromWishlist(ctx context.Context, productID string) error {
	f.hit("wishlistRemove")
	return f.removeWishErr
}

func (f *fakeBackend) MoveWishlistItemToCart(ctx context.Context, productID string) error {
	f.hit("wishlistMove")
	return nil
}

func (f *fakeBackend) ListProducts(ctx context.Context, q gateway.ProductQuery) ([]model.Product, error) {
	f.hit("products")
	return f.productList, f.productListErr
}

func (f *fakeBackend) SearchProducts(ctx context.Context, term string, q gateway.ProductQuery) ([]model.Product, error) {
	f.hit("search")
	return f.productList, f.productListErr
}

func (f *fakeBackend) ProductsByCategory(ctx context.Context, category string, q gateway.ProductQuery) ([]model.Product, error) {
	f.hit("category")
	return f.productList, f.productListErr
}

func (f *fakeBackend) Product(ctx context.Context, id string) (*model.Product, error) {
	f.hit("product")
	if f.blockProduct {
		<-ctx.Done()
		return nil, &gateway.GatewayError{Kind: gateway.KindNetwork, Raw: ctx.Err()}
	}
	return f.product, f.productErr
}

func (f *fakeBackend) CreateOrder(ctx context.Context, req gateway.OrderRequest) (*model.Order, error) {
	f.hit("orderCreate")
	f.lastOrder = req
	return f.order, f.orderErr
}

func (f *fakeBackend) Orders(ctx context.Context) ([]model.Order, error) {
	f.hit("orders")
	if f.order == nil {
		return []model.Order{}, f.orderErr
	}
	return []model.Order{*f.order}, f.orderErr
}

func (f *fakeBackend) Order(ctx context.Context, id string) (*model.Order, error) {
	f.hit("order")
	return f.order, f.orderErr
}

func (f *fakeBackend) CancelOrder(ctx context.Context, id string) (*model.Order, error) {
	f.hit("orderCancel")
	return f.order, f.orderErr
}

func (f *fakeBackend) OrderStatus(ctx context.Context, id string) (model.OrderStatus, error) {
	f.hit("orderStatus")
	if f.order == nil {
		return "", f.orderErr
	}
	return f.order.Status, f.orderErr
}

func (f *fakeBackend) Addresses(ctx context.Context) ([]model.Address, error) {
	f.hit("addresses")
	return []model.Address{*f.address}, nil
}

func (f *fakeBackend) CreateAddress(ctx context.Context, addr model.Address) (*model.Address, error) {
	f.hit("addressCreate")
	addr.ID = "addr-new"
	return &addr, nil
}

func (f *fakeBackend) UpdateAddress(ctx context.Context, addr model.Address) (*model.Address, error) {
	f.hit("addressUpdate")
	return &addr, nil
}

func (f *fakeBackend) FindOrCreateAddress(ctx context.Context, addr model.Address) (*model.Address, error) {
	f.hit("addressFindOrCreate")
	return f.address, nil
}

func (f *fakeBackend) DeleteAddress(ctx context.Context, id string) error {
	f.hit("addressDelete")
	return nil
}

func (f *fakeBackend) ValidateDiscount(ctx context.Context, code string, subtotal decimal.Decimal) (*model.Discount, error) {
	f.hit("discount")
	f.lastAmount = subtotal
	return f.discount, nil
}

func (f *fakeBackend) ApplyDiscount(ctx context.Context, code, orderID string, subtotal decimal.Decimal) (*model.Discount, error) {
	f.hit("discountApply")
	f.lastAmount = subtotal
	f.applied = orderID
	return f.discount, nil
}

type recorder struct {
	mu        sync.Mutex
	notices   []string
	levels    []Level
	redirects []string
}

func (r *recorder) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels = append(r.levels, level)
	r.notices = append(r.notices, message)
}

func (r *recorder) RedirectToLogin(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redirects = append(r.redirects, reason)
}

func (r *recorder) count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, l := range r.levels {
		if l == level {
			n++
		}
	}
	return n
}

type harness struct {
	c     *Coordinator
	gw    *fakeBackend
	clk   *clock.Fake
	mem   *store.Memory
	ui    *recorder
	creds model.Credentials
}

var shopper = &model.User{ID: "u1", Name: "Lan", Email: "lan@coco.vn", Role: model.RoleCustomer}

func newHarness(t *testing.T, gw *fakeBackend) *harness {
	t.Helper()
	if gw.grant == nil {
		gw.grant = &gateway.AuthGrant{Token: "tok-1", User: shopper}
	}
	clk := clock.NewFake(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	mem := store.NewMemory()
	ui := &recorder{}
	c := New(gw, mem, WithClock(clk), WithNotifier(ui), WithNavigator(ui))
	t.Cleanup(c.Close)
	return &harness{c: c, gw: gw, clk: clk, mem: mem, ui: ui, creds: model.Credentials{Email: "lan@coco.vn", Password: "secret"}}
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	res := h.c.Login(context.Background(), h.creds)
	require.True(t, res.Success, res.Message)
}

func line(id string, price int64, qty int) model.CartLine {
	return model.CartLine{ProductID: id, Name: id, UnitPrice: decimal.NewFromInt(price), Quantity: qty}
}

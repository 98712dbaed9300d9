// Package storefront 组合会话、购物车、收藏夹与商品缓存，向视图层提供统一的操作入口。
// 所有操作返回 Result，错误只记录日志并转换为提示文案。
package storefront

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/coconature/storefront/core/auth"
	"github.com/coconature/storefront/core/cache"
	"github.com/coconature/storefront/core/clock"
	"github.com/coconature/storefront/core/gateway"
	"github.com/coconature/storefront/core/model"
	"github.com/coconature/storefront/core/store"
)

// Gateway 为协调器所需的后端接口，由 gateway.Client 实现。
type Gateway interface {
	auth.Gateway

	Cart(ctx context.Context) (model.Cart, error)
	AddToCart(ctx context.Context, productID string, quantity int) (model.Cart, error)
	UpdateCartItem(ctx context.Context, productID string, quantity int) (model.Cart, error)
	RemoveFromCart(ctx context.Context, productID string) (model.Cart, error)
	ClearCart(ctx context.Context) error

	Wishlist(ctx context.Context) (model.Wishlist, error)
	AddToWishlist(ctx context.Context, productID string) error
	RemoveFromWishlist(ctx context.Context, productID string) error
	MoveWishlistItemToCart(ctx context.Context, productID string) error

	ListProducts(ctx context.Context, q gateway.ProductQuery) ([]model.Product, error)
	SearchProducts(ctx context.Context, term string, q gateway.ProductQuery) ([]model.Product, error)
	ProductsByCategory(ctx context.Context, category string, q gateway.ProductQuery) ([]model.Product, error)
	Product(ctx context.Context, id string) (*model.Product, error)

	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*model.Order, error)
	Orders(ctx context.Context) ([]model.Order, error)
	Order(ctx context.Context, id string) (*model.Order, error)
	CancelOrder(ctx context.Context, id string) (*model.Order, error)
	OrderStatus(ctx context.Context, id string) (model.OrderStatus, error)

	Addresses(ctx context.Context) ([]model.Address, error)
	CreateAddress(ctx context.Context, addr model.Address) (*model.Address, error)
	UpdateAddress(ctx context.Context, addr model.Address) (*model.Address, error)
	FindOrCreateAddress(ctx context.Context, addr model.Address) (*model.Address, error)
	DeleteAddress(ctx context.Context, id string) error

	ValidateDiscount(ctx context.Context, code string, subtotal decimal.Decimal) (*model.Discount, error)
	ApplyDiscount(ctx context.Context, code, orderID string, subtotal decimal.Decimal) (*model.Discount, error)
}

var _ Gateway = (*gateway.Client)(nil)

// DefaultDetailTimeout 商品详情请求的默认超时。
const DefaultDetailTimeout = 8 * time.Second

// Coordinator 持有会话、购物车、收藏夹与商品缓存状态。
// 状态锁从不跨越网络调用，并发请求以最后返回者为准。
type Coordinator struct {
	mu       sync.RWMutex
	cart     model.Cart
	wishlist model.Wishlist

	gw        Gateway
	session   *auth.Manager
	products  *cache.ProductCache
	storage   store.Storage
	cartRec   store.Record[model.Cart]
	wishRec   store.Record[model.Wishlist]
	formRec   store.Record[model.CheckoutForm]
	notifier  Notifier
	navigator Navigator
	logger    *zap.Logger

	clock         clock.Clock
	schedCfg      auth.SchedulerConfig
	cacheCfg      cache.Config
	detailTimeout time.Duration
	unsubscribe   func()
	closeOnce     sync.Once
}

// Option 配置 Coordinator。
type Option func(*Coordinator)

// WithNotifier 设置提示渲染方。
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithNavigator 设置登录跳转处理方。
func WithNavigator(n Navigator) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.navigator = n
		}
	}
}

// WithLogger 注入日志。
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock 替换时钟，会话调度与商品缓存共用。
func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithSchedulerConfig 设置令牌刷新调度参数。
func WithSchedulerConfig(cfg auth.SchedulerConfig) Option {
	return func(c *Coordinator) {
		c.schedCfg = cfg
	}
}

// WithCacheConfig 设置商品缓存阈值。
func WithCacheConfig(cfg cache.Config) Option {
	return func(c *Coordinator) {
		c.cacheCfg = cfg
	}
}

// WithDetailTimeout 设置商品详情请求超时。
func WithDetailTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.detailTimeout = d
		}
	}
}

// New 创建协调器。storage 为 nil 时使用内存存储。
func New(gw Gateway, storage store.Storage, opts ...Option) *Coordinator {
	if storage == nil {
		storage = store.NewMemory()
	}
	c := &Coordinator{
		cart:          model.Cart{},
		wishlist:      model.Wishlist{},
		gw:            gw,
		storage:       storage,
		cartRec:       store.NewRecord[model.Cart](storage, store.KeyCart),
		wishRec:       store.NewRecord[model.Wishlist](storage, store.KeyWishlist),
		formRec:       store.NewRecord[model.CheckoutForm](storage, store.KeyCheckoutAddress),
		notifier:      nopNotifier{},
		navigator:     nopNavigator{},
		logger:        zap.NewNop(),
		clock:         clock.Real{},
		schedCfg:      auth.DefaultSchedulerConfig(),
		cacheCfg:      cache.DefaultConfig(),
		detailTimeout: DefaultDetailTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.session = auth.NewManager(gw, storage,
		auth.WithClock(c.clock),
		auth.WithLogger(c.logger.Named("session")),
		auth.WithSchedulerConfig(c.schedCfg),
	)
	c.products = cache.New(cache.WithClock(c.clock), cache.WithConfig(c.cacheCfg))
	c.unsubscribe = c.session.Subscribe(c.onSessionExpired)
	return c
}

// Session 返回会话管理器，供 HTTP 层取令牌与触发刷新。
func (c *Coordinator) Session() *auth.Manager {
	return c.session
}

// ProductCache 返回商品缓存。
func (c *Coordinator) ProductCache() *cache.ProductCache {
	return c.products
}

// Close 取消失效订阅并停止刷新调度。
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		c.unsubscribe()
		c.session.Close()
	})
}

// onSessionExpired 是失效广播的唯一顶层监听方：要求重新认证，仅对原先已登录的用户提示一次。
func (c *Coordinator) onSessionExpired(ev auth.ExpiredEvent) {
	c.navigator.RedirectToLogin(ev.Message)
	if ev.HadUser {
		c.notifier.Notify(LevelWarning, ev.Message)
	}
}

// Login 登录，成功后从服务端同步购物车与收藏夹。
func (c *Coordinator) Login(ctx context.Context, creds model.Credentials) Result {
	if _, err := c.session.Login(ctx, creds); err != nil {
		return c.fail("login", err, "")
	}
	c.resync(ctx)
	c.notifier.Notify(LevelSuccess, MsgSignedIn)
	return ok(MsgSignedIn)
}

// Register 注册并登录，行为与 Login 对称。
func (c *Coordinator) Register(ctx context.Context, reg model.Registration) Result {
	if _, err := c.session.Register(ctx, reg); err != nil {
		return c.fail("register", err, "")
	}
	c.resync(ctx)
	c.notifier.Notify(LevelSuccess, MsgRegistered)
	return ok(MsgRegistered)
}

// Logout 登出并清空内存中的购物车与收藏夹，永不失败。
func (c *Coordinator) Logout(ctx context.Context) Result {
	c.session.Logout(ctx)
	c.mu.Lock()
	c.cart = model.Cart{}
	c.wishlist = model.Wishlist{}
	c.mu.Unlock()
	c.notifier.Notify(LevelInfo, MsgSignedOut)
	return ok(MsgSignedOut)
}

// UpdateProfile 更新资料。
func (c *Coordinator) UpdateProfile(ctx context.Context, patch model.ProfilePatch) Result {
	if !c.guard("profile") {
		return failed(MsgLoginRequired)
	}
	if _, err := c.session.UpdateProfile(ctx, patch); err != nil {
		return c.fail("update profile", err, "")
	}
	c.notifier.Notify(LevelSuccess, MsgProfileUpdated)
	return ok(MsgProfileUpdated)
}

// CheckAuthStatus 启动时确认会话并恢复购物车与收藏夹。
func (c *Coordinator) CheckAuthStatus(ctx context.Context) auth.State {
	state := c.session.CheckAuthStatus(ctx)
	c.RestoreCart(ctx)
	if state == auth.StateAuthenticated {
		c.FetchWishlistFromServer(ctx)
	} else {
		c.restoreWishlist()
	}
	return state
}

// OnUserActivity 在失效信号之后的用户活动时重新确认会话。
func (c *Coordinator) OnUserActivity(ctx context.Context) auth.State {
	return c.session.OnUserActivity(ctx)
}

// User 返回当前用户，未登录时为 nil。
func (c *Coordinator) User() *model.User {
	return c.session.User()
}

// State 返回会话状态。
func (c *Coordinator) State() auth.State {
	return c.session.State()
}

// Authenticated 判断是否已登录。
func (c *Coordinator) Authenticated() bool {
	return c.session.Authenticated()
}

func (c *Coordinator) resync(ctx context.Context) {
	c.RestoreCart(ctx)
	c.FetchWishlistFromServer(ctx)
}

// guard 拒绝未登录用户的操作：提示并要求跳转登录，不发出网络请求。
func (c *Coordinator) guard(op string) bool {
	if c.session.Authenticated() {
		return true
	}
	c.logger.Debug("operation requires sign-in", zap.String("op", op))
	c.notifier.Notify(LevelWarning, MsgLoginRequired)
	c.navigator.RedirectToLogin(MsgLoginRequired)
	return false
}

// fail 记录错误、通知用户并返回失败结果。
func (c *Coordinator) fail(op string, err error, fallback string) Result {
	msg := messageFor(err, fallback)
	c.logger.Warn(op+" failed", zap.Error(err))
	c.notifier.Notify(LevelError, msg)
	return failed(msg)
}

func (c *Coordinator) hasToken() bool {
	return c.session.Token() != ""
}

// stale 判断请求发出后会话是否已切换（登出、失效或重新登录）。
func (c *Coordinator) stale(epoch uint64, op string) bool {
	if c.session.Epoch() == epoch {
		return false
	}
	c.logger.Debug("dropping response from previous session", zap.String("op", op))
	return true
}

func isNotFound(err error) bool {
	return gateway.KindOf(err) == gateway.KindNotFound
}

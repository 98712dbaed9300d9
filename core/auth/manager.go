package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/coconature/storefront/core/clock"
	coreerrors "github.com/coconature/storefront/core/errors"
	"github.com/coconature/storefront/core/gateway"
	"github.com/coconature/storefront/core/metrics"
	"github.com/coconature/storefront/core/model"
	"github.com/coconature/storefront/core/store"
)

var (
	// ErrUnauthenticated 在需要会话但当前未登录时返回。
	ErrUnauthenticated = coreerrors.New(coreerrors.ErrCodeUnauthenticated, "auth: 未登录")
	// ErrMissingCredentials 在邮箱或密码为空时返回。
	ErrMissingCredentials = coreerrors.New(coreerrors.ErrCodeInvalidArgument, "auth: 邮箱和密码不能为空")
	// ErrEmptyProfilePatch 在资料更新不含任何字段时返回。
	ErrEmptyProfilePatch = coreerrors.New(coreerrors.ErrCodeInvalidArgument, "auth: 资料更新为空")
	// ErrGatewayNil 未配置后端客户端时返回。
	ErrGatewayNil = coreerrors.New(coreerrors.ErrCodeInvalidConfig, "auth: 未配置后端客户端")
)

// DefaultExpiredMessage 会话失效时展示给用户的提示。
const DefaultExpiredMessage = "Your session has expired. Please sign in again."

// Gateway 为会话管理所需的后端接口。
type Gateway interface {
	Login(ctx context.Context, creds model.Credentials) (*gateway.AuthGrant, error)
	Register(ctx context.Context, reg model.Registration) (*gateway.AuthGrant, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*model.User, error)
	UpdateProfile(ctx context.Context, patch model.ProfilePatch) (*model.User, error)
	RefreshToken(ctx context.Context) (*gateway.AuthGrant, error)
}

// Manager 负责会话的建立、确认、刷新与销毁。
type Manager struct {
	mu        sync.RWMutex
	refreshMu sync.Mutex
	session   *Session
	state     State
	epoch     uint64

	gateway   Gateway
	storage   store.Storage
	user      store.Record[model.User]
	adminUser store.Record[model.User]
	scheduler *Scheduler
	events    *Broadcaster
	clock     clock.Clock
	logger    *zap.Logger
	schedCfg  SchedulerConfig
}

// Option 配置 Manager。
type Option func(*Manager)

// WithClock 替换时钟，测试中注入 clock.Fake。
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger 注入日志。
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithSchedulerConfig 设置刷新调度参数。
func WithSchedulerConfig(cfg SchedulerConfig) Option {
	return func(m *Manager) {
		m.schedCfg = cfg
	}
}

// WithBroadcaster 共享外部的失效广播器。
func WithBroadcaster(b *Broadcaster) Option {
	return func(m *Manager) {
		if b != nil {
			m.events = b
		}
	}
}

// NewManager 创建 Manager，初始状态为 loading。
func NewManager(gw Gateway, storage store.Storage, opts ...Option) *Manager {
	if storage == nil {
		storage = store.NewMemory()
	}
	m := &Manager{
		state:     StateLoading,
		gateway:   gw,
		storage:   storage,
		user:      store.NewRecord[model.User](storage, store.KeyUser),
		adminUser: store.NewRecord[model.User](storage, store.KeyAdminUser),
		events:    NewBroadcaster(),
		clock:     clock.Real{},
		logger:    zap.NewNop(),
		schedCfg:  DefaultSchedulerConfig(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.scheduler = NewScheduler(m.Refresh, refreshFatal, m.schedCfg, m.clock, m.logger.Named("refresh"))
	return m
}

// Login 登录并建立会话，启动刷新调度。
func (m *Manager) Login(ctx context.Context, creds model.Credentials) (*model.User, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return nil, ErrMissingCredentials
	}
	if m.gateway == nil {
		return nil, ErrGatewayNil
	}
	grant, err := m.gateway.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return m.establish(ctx, grant)
}

// Register 注册并建立会话，与 Login 对称。
func (m *Manager) Register(ctx context.Context, reg model.Registration) (*model.User, error) {
	if strings.TrimSpace(reg.Email) == "" || reg.Password == "" {
		return nil, ErrMissingCredentials
	}
	if m.gateway == nil {
		return nil, ErrGatewayNil
	}
	grant, err := m.gateway.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	return m.establish(ctx, grant)
}

func (m *Manager) establish(ctx context.Context, grant *gateway.AuthGrant) (*model.User, error) {
	m.mu.Lock()
	m.epoch++
	epoch := m.epoch
	m.session = m.newSession(grant.Token, grant.User)
	m.state = StateAuthenticated
	m.mu.Unlock()

	user := grant.User
	if user == nil {
		// 部分接口只返回令牌，补拉一次资料
		profile, err := m.gateway.Profile(ctx)
		if err != nil {
			m.abandon(epoch)
			return nil, err
		}
		user = profile
		m.mu.Lock()
		if m.epoch != epoch || m.session == nil {
			// 补拉期间已登出或重新登录
			m.mu.Unlock()
			return nil, ErrUnauthenticated
		}
		m.session.User = user.Clone()
		m.mu.Unlock()
	}
	m.persist(grant.Token, user)
	m.scheduler.Start()
	m.logger.Info("session established", zap.String("user", user.ID), zap.String("role", user.Role))
	return user.Clone(), nil
}

// abandon 撤销补拉资料失败的登录，清除凭证并停止刷新。
// epoch 已变化时说明其他流程接管了会话，不做处理。
func (m *Manager) abandon(epoch uint64) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	m.epoch++
	m.session = nil
	m.state = StateAnonymous
	m.mu.Unlock()

	m.scheduler.Stop()
	if err := store.ClearCredentials(m.storage); err != nil {
		m.logger.Warn("clear credentials failed", zap.Error(err))
	}
}

// Logout 停止刷新、尽力通知后端并清除本地会话。对调用方永不失败。
func (m *Manager) Logout(ctx context.Context) {
	m.scheduler.Stop()

	if m.Token() != "" && m.gateway != nil {
		if err := m.gateway.Logout(ctx); err != nil {
			m.logger.Warn("remote logout failed", zap.Error(err))
		}
	}

	m.mu.Lock()
	m.epoch++
	m.session = nil
	m.state = StateAnonymous
	m.mu.Unlock()

	if err := store.ClearSession(m.storage); err != nil {
		m.logger.Warn("clear session storage failed", zap.Error(err))
	}
	m.logger.Info("logged out")
}

// UpdateProfile 更新资料，成功后替换内存与存储中的用户。
func (m *Manager) UpdateProfile(ctx context.Context, patch model.ProfilePatch) (*model.User, error) {
	if !m.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if patch.Empty() {
		return nil, ErrEmptyProfilePatch
	}
	user, err := m.gateway.UpdateProfile(ctx, patch)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return nil, ErrUnauthenticated
	}
	m.session.User = user.Clone()
	token := m.session.Token
	m.mu.Unlock()
	m.persist(token, user)
	return user.Clone(), nil
}

// CheckAuthStatus 启动时（或失效后用户再次活动时）确认存储中的令牌。
// 无令牌进入 anonymous；有令牌先乐观地恢复缓存用户，再向后端确认，确认失败即清除凭证并广播失效。
func (m *Manager) CheckAuthStatus(ctx context.Context) State {
	token, ok, err := m.storage.Get(store.KeyToken)
	if err != nil {
		m.logger.Warn("read token failed", zap.Error(err))
	}
	if !ok || token == "" {
		m.mu.Lock()
		m.session = nil
		m.state = StateAnonymous
		m.mu.Unlock()
		return StateAnonymous
	}

	var cached *model.User
	if u, err := m.user.Load(); err == nil {
		cached = &u
	} else if !errors.Is(err, store.ErrNotFound) {
		m.logger.Warn("cached user unreadable", zap.Error(err))
	}

	m.mu.Lock()
	m.epoch++
	epoch := m.epoch
	m.session = m.newSession(token, cached)
	m.state = StateAuthenticated
	m.mu.Unlock()

	if m.gateway == nil {
		return StateAuthenticated
	}
	user, err := m.gateway.Profile(ctx)
	if err != nil {
		m.logger.Info("stored token not confirmed", zap.Error(err))
		m.expire(epoch, DefaultExpiredMessage)
		return m.State()
	}

	m.mu.Lock()
	if m.epoch != epoch || m.session == nil {
		state := m.state
		m.mu.Unlock()
		return state
	}
	m.session.User = user.Clone()
	token = m.session.Token
	m.mu.Unlock()

	m.persist(token, user)
	m.scheduler.Start()
	return StateAuthenticated
}

// OnUserActivity 在失效信号之后的首次用户活动时重新确认会话。
func (m *Manager) OnUserActivity(ctx context.Context) State {
	if m.State() != StateExpired {
		return m.State()
	}
	return m.CheckAuthStatus(ctx)
}

// Refresh 调用刷新接口换取新令牌。认证被拒时会话失效（清除凭证并广播一次）。
func (m *Manager) Refresh(ctx context.Context) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	m.mu.RLock()
	epoch := m.epoch
	hasToken := m.session != nil && m.session.Token != ""
	m.mu.RUnlock()
	if !hasToken {
		return ErrUnauthenticated
	}
	if m.gateway == nil {
		return ErrGatewayNil
	}

	grant, err := m.gateway.RefreshToken(ctx)
	if err != nil {
		if gateway.IsUnauthorized(err) || gateway.KindOf(err) == gateway.KindForbidden {
			m.expire(epoch, DefaultExpiredMessage)
			return coreerrors.Wrap(coreerrors.ErrCodeUnauthenticated, "auth: 刷新令牌被拒绝", err)
		}
		return err
	}

	m.mu.Lock()
	if m.epoch != epoch || m.session == nil {
		// 刷新期间已登出或重新登录，丢弃结果
		m.mu.Unlock()
		return ErrUnauthenticated
	}
	user := m.session.User
	if grant.User != nil {
		user = grant.User.Clone()
	}
	m.session = m.newSession(grant.Token, user)
	m.mu.Unlock()

	m.persist(grant.Token, user)
	m.logger.Debug("token refreshed")
	return nil
}

// expire 清除凭证、进入 expired 并广播。同一代会话只广播一次。
func (m *Manager) expire(epoch uint64, message string) {
	m.mu.Lock()
	if m.epoch != epoch || m.state != StateAuthenticated {
		m.mu.Unlock()
		return
	}
	m.epoch++
	hadUser := m.session != nil && m.session.User != nil
	m.session = nil
	m.state = StateExpired
	m.mu.Unlock()

	m.scheduler.Stop()
	if err := store.ClearCredentials(m.storage); err != nil {
		m.logger.Warn("clear credentials failed", zap.Error(err))
	}
	metrics.SessionExpiredTotal.Inc()
	m.logger.Info("session expired", zap.Bool("hadUser", hadUser))
	m.events.Publish(ExpiredEvent{Message: message, HadUser: hadUser, At: m.clock.Now()})
}

// refreshFatal 判断刷新失败是否应停止调度而非重试。
func refreshFatal(err error) bool {
	if gateway.IsUnauthorized(err) {
		return true
	}
	switch coreerrors.CodeOf(err) {
	case coreerrors.ErrCodeUnauthenticated, coreerrors.ErrCodeInvalidConfig:
		return true
	}
	return false
}

func (m *Manager) newSession(token string, user *model.User) *Session {
	s := &Session{Token: token, User: user.Clone()}
	if claims, err := ParseClaims(token); err == nil {
		s.ExpiresAt = claims.ExpiresAt
		if s.User != nil && s.User.Role == "" {
			s.User.Role = claims.Role
		}
	}
	return s
}

// persist 写入令牌与用户；管理员账号同时写入 admin 镜像键。
func (m *Manager) persist(token string, user *model.User) {
	var errs []error
	errs = append(errs, m.storage.Set(store.KeyToken, token))
	if user != nil {
		errs = append(errs, m.user.Save(*user))
	}
	if user.IsAdmin() {
		errs = append(errs, m.storage.Set(store.KeyAdminToken, token), m.adminUser.Save(*user))
	} else {
		errs = append(errs, store.RemoveAll(m.storage, store.KeyAdminToken, store.KeyAdminUser))
	}
	if err := errors.Join(errs...); err != nil {
		m.logger.Warn("persist session failed", zap.Error(err))
	}
}

// Token 返回当前令牌，未登录时为空串。
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.Token
}

// User 返回当前用户副本。
func (m *Manager) User() *model.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	return m.session.User.Clone()
}

// Epoch 返回会话代号。登录、登出与失效都会使其递增，令牌刷新不会。
func (m *Manager) Epoch() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch
}

// State 返回当前会话状态。
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Session 返回当前会话副本。
func (m *Manager) Session() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Clone()
}

// Authenticated 判断是否持有令牌与用户。
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateAuthenticated && m.session != nil && m.session.Token != "" && m.session.User != nil
}

// Subscribe 订阅会话失效广播。
func (m *Manager) Subscribe(fn ExpiredListener) func() {
	return m.events.Subscribe(fn)
}

// RefreshScheduled 判断是否有待触发的刷新。
func (m *Manager) RefreshScheduled() bool {
	return m.scheduler.Active()
}

// Close 停止刷新调度，进行中的刷新调用会被取消。
func (m *Manager) Close() {
	m.scheduler.Close()
}

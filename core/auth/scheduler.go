package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/coconature/storefront/core/clock"
	"github.com/coconature/storefront/core/metrics"
)

// SchedulerConfig 刷新调度参数。
type SchedulerConfig struct {
	// Interval 两次成功刷新之间的间隔。
	Interval time.Duration
	// RetryDelay 可重试失败后的重试间隔。
	RetryDelay time.Duration
	// MaxRetries 连续失败的最大重试次数，超过后放弃直到下次 Start。
	MaxRetries int
	// Timeout 单次刷新调用的超时，0 表示不限制。
	Timeout time.Duration
}

// DefaultSchedulerConfig 返回默认调度参数。
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:   55 * time.Minute,
		RetryDelay: 60 * time.Second,
		MaxRetries: 5,
		Timeout:    30 * time.Second,
	}
}

// Scheduler 令牌刷新调度器。任意时刻至多一个待触发定时器。
type Scheduler struct {
	mu       sync.Mutex
	cfg      SchedulerConfig
	clock    clock.Clock
	refresh  func(ctx context.Context) error
	fatal    func(error) bool
	logger   *zap.Logger
	timer    clock.Timer
	gen      uint64
	failures int
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewScheduler 创建调度器。fatal 返回 true 的错误（认证被拒）不再重试。
func NewScheduler(refresh func(ctx context.Context) error, fatal func(error) bool, cfg SchedulerConfig, clk clock.Clock, logger *zap.Logger) *Scheduler {
	def := DefaultSchedulerConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if fatal == nil {
		fatal = func(error) bool { return false }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:     cfg,
		clock:   clk,
		refresh: refresh,
		fatal:   fatal,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start 取消已有定时器并在 Interval 后安排首次刷新。
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	s.stopLocked()
	s.failures = 0
	s.scheduleLocked(s.cfg.Interval)
	s.logger.Debug("token refresh scheduled", zap.Duration("in", s.cfg.Interval))
}

// Stop 取消待触发的定时器。已触发但尚未执行到的回调会因代数不符而放弃。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Close 停止调度并取消进行中的刷新调用。
func (s *Scheduler) Close() {
	s.Stop()
	s.cancel()
}

// Active 判断是否有待触发的刷新。
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Failures 返回当前连续失败次数。
func (s *Scheduler) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

func (s *Scheduler) stopLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) scheduleLocked(d time.Duration) {
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() { s.fire(gen) })
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	ctx := s.ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	err := s.refresh(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// 刷新期间被 Stop/Start，结果交由新的一代处理
		return
	}
	switch {
	case err == nil:
		metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
		s.failures = 0
		s.scheduleLocked(s.cfg.Interval)
	case s.fatal(err):
		metrics.TokenRefreshTotal.WithLabelValues("rejected").Inc()
		s.logger.Info("token refresh rejected, scheduler stopped", zap.Error(err))
	default:
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		s.failures++
		if s.failures > s.cfg.MaxRetries {
			s.logger.Warn("token refresh giving up", zap.Int("attempts", s.failures), zap.Error(err))
			return
		}
		s.logger.Warn("token refresh failed, retrying",
			zap.Int("attempt", s.failures),
			zap.Duration("in", s.cfg.RetryDelay),
			zap.Error(err))
		s.scheduleLocked(s.cfg.RetryDelay)
	}
}

// 商城客户端交互式命令行入口
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/coconature/storefront/core/auth"
	"github.com/coconature/storefront/core/cache"
	"github.com/coconature/storefront/core/config"
	"github.com/coconature/storefront/core/gateway"
	"github.com/coconature/storefront/core/httpclient"
	"github.com/coconature/storefront/core/logger"
	"github.com/coconature/storefront/core/store"
	"github.com/coconature/storefront/core/storefront"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, closeStorage, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStorage()

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	ui := newConsole(os.Stdout)
	coord := newCoordinator(cfg, storage, log, ui)
	defer coord.Close()

	checkCtx, cancel := context.WithTimeout(ctx, cfg.API.Timeout)
	state := coord.CheckAuthStatus(checkCtx)
	cancel()
	ui.printf("session: %s\n", state)
	if u := coord.User(); u != nil {
		ui.printf("signed in as %s <%s>\n", u.Name, u.Email)
	}

	return repl(ctx, coord, ui, cfg.API.Timeout*2)
}

// newCoordinator 组装 HTTP 客户端、网关与协调器。
// 401 刷新与令牌来源都依赖协调器中的会话管理器，因此通过闭包延迟引用。
func newCoordinator(cfg *config.Config, storage store.Storage, log *zap.Logger, ui *console) *storefront.Coordinator {
	var coord *storefront.Coordinator
	sugar := log.Named("http").Sugar()

	retryCfg := httpclient.DefaultRetryConfig()
	retryCfg.MaxRetries = cfg.API.MaxRetries
	retryCfg.Logger = sugar
	retryCfg.Refresh = func(ctx context.Context) error {
		return coord.Session().Refresh(ctx)
	}

	httpCli := httpclient.NewClient(
		httpclient.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		httpclient.WithRetryPolicy(httpclient.NewExponentialBackoffRetry(retryCfg)),
		httpclient.WithLogger(sugar),
	)
	gw := gateway.NewClient(
		gateway.WithHTTPClient(httpCli),
		gateway.WithLogger(sugar),
		gateway.WithBaseURL(cfg.API.BaseURL),
		gateway.WithTokenSource(func() string {
			return coord.Session().Token()
		}),
	)
	if cfg.API.RateLimitQPS > 0 {
		httpCli.Limiter = httpclient.NewTokenBucketLimiter(cfg.API.RateLimitQPS, cfg.API.RateLimitBurst, gw.RouteLabel)
	}

	coord = storefront.New(gw, storage,
		storefront.WithLogger(log),
		storefront.WithNotifier(ui),
		storefront.WithNavigator(ui),
		storefront.WithSchedulerConfig(auth.SchedulerConfig{
			Interval:   cfg.Session.RefreshInterval,
			RetryDelay: cfg.Session.RetryDelay,
			MaxRetries: cfg.Session.MaxRefreshRetries,
			Timeout:    cfg.API.Timeout,
		}),
		storefront.WithCacheConfig(cache.Config{
			FreshTTL:         cfg.Cache.FreshTTL,
			ErrorGrace:       cfg.Cache.ErrorGrace,
			FailureThreshold: cfg.Cache.FailureThreshold,
			FailureTTL:       cfg.Cache.FailureTTL,
		}),
		storefront.WithDetailTimeout(cfg.Cache.DetailTimeout),
	)
	return coord
}

// openStorage 按驱动打开持久化存储，返回的关闭函数总是可调用。
func openStorage(ctx context.Context, cfg config.Storage) (store.Storage, func(), error) {
	noop := func() {}
	switch cfg.Driver {
	case config.StorageMemory:
		return store.NewMemory(), noop, nil
	case config.StorageRedis:
		r, err := store.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, store.WithRedisPrefix(cfg.RedisPrefix))
		if err != nil {
			return nil, noop, err
		}
		return r, func() { _ = r.Close() }, nil
	default:
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, noop, fmt.Errorf("create storage dir: %w", err)
			}
		}
		f, err := store.OpenFile(cfg.Path, store.WithSecret(cfg.Secret))
		if err != nil {
			return nil, noop, err
		}
		return f, noop, nil
	}
}

func serveMetrics(addr string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("metrics listening", zap.String("addr", addr))
	return srv
}

func repl(ctx context.Context, coord *storefront.Coordinator, ui *console, timeout time.Duration) error {
	ui.printf("type 'help' for commands\n")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		ui.printf("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			return nil
		}
		cmdCtx, cancel := context.WithTimeout(ctx, timeout)
		if coord.State() == auth.StateExpired {
			coord.OnUserActivity(cmdCtx)
		}
		dispatch(cmdCtx, coord, ui, scanner, args)
		cancel()
		if ctx.Err() != nil {
			return nil
		}
	}
}

package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/freshfast/foodhub/internal/auth"
	"github.com/freshfast/foodhub/internal/cart"
	"github.com/freshfast/foodhub/internal/cartstore"
	"github.com/freshfast/foodhub/internal/catalog"
	"github.com/freshfast/foodhub/internal/config"
	"github.com/freshfast/foodhub/internal/database"
	"github.com/freshfast/foodhub/internal/favorite"
	"github.com/freshfast/foodhub/internal/handler"
	"github.com/freshfast/foodhub/internal/logger"
	"github.com/freshfast/foodhub/internal/metrics"
	"github.com/freshfast/foodhub/internal/middleware"
	"github.com/freshfast/foodhub/internal/model"
	"github.com/freshfast/foodhub/internal/order"
	"github.com/freshfast/foodhub/internal/repository"
	"github.com/freshfast/foodhub/internal/security"
	"github.com/freshfast/foodhub/internal/user"
	"github.com/freshfast/foodhub/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// buildCartPersister は設定に応じたカート永続化アダプタを構築する。
// 2つ目の戻り値はワーカーの掃除ジョブ用のStalePurger
// （redisバックエンドはTTLで自前管理するため掃除対象を返す）。
func buildCartPersister(cfg *config.Config) (*cartstore.Adapter, cartstore.StalePurger, error) {
	var kv cartstore.KV
	var purger cartstore.StalePurger

	switch cfg.CartBackend {
	case config.CartBackendMemory:
		mem := cartstore.NewMemoryKV()
		kv, purger = mem, mem
	case config.CartBackendFile:
		fileKV, err := cartstore.NewFileKV(cfg.CartDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open cart dir: %w", err)
		}
		kv, purger = fileKV, fileKV
	case config.CartBackendRedis:
		redisKV, err := cartstore.NewRedisKV(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		kv, purger = redisKV, redisKV
	default:
		return nil, nil, fmt.Errorf("unknown cart backend: %q", cfg.CartBackend)
	}

	return cartstore.NewAdapter(kv, slog.Default()), purger, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	productRepo := repository.NewPostgresProductRepo(db)
	orderRepo := repository.NewPostgresOrderRepo(db)
	favoriteRepo := repository.NewPostgresFavoriteRepo(db)

	// 3. カートストアとレジストリの初期化
	cartPersister, _, err := buildCartPersister(cfg)
	if err != nil {
		return err
	}

	registryCfg := cart.DefaultRegistryConfig()
	registryCfg.IdleTTL = cfg.CartIdleTTL
	registry := cart.NewRegistry(cartPersister, registryCfg)
	defer registry.Stop()

	// 4. メトリクスの初期化とフック接続
	promReg := prometheus.NewRegistry()
	collector := metrics.NewCollector(promReg)

	registry.SetCreateHook(func(ctl *cart.Controller) {
		ctl.SetMergeHook(collector.RecordCartMerge)
	})
	registry.SetSizeHook(collector.RecordActiveCartSessions)
	cartPersister.SetFailureHook(collector.RecordCartPersistFailure)

	// 5. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 6. ドメインサービスの初期化
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		oauthProvider, userRepo, identRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	imageFinder := catalog.NewImageFinder(ssrfGuard, cfg.ImageFetchTimeout, cfg.ImageFetchMaxSize)
	catalogService := catalog.NewService(productRepo, sanitizer, imageFinder)

	orderService := order.NewService(orderRepo)
	orderService.SetPlacedHook(func(o *model.Order) {
		collector.RecordOrderPlaced(o.Total)
	})
	favoriteService := favorite.NewService(favoriteRepo, productRepo)
	userService := user.NewService(userRepo, sessionRepo, favoriteRepo, cartPersister)

	// 7. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.CheckoutRate = rate.Limit(float64(cfg.RateLimitCheckout) / 60.0)
	rateLimiterCfg.CheckoutBurst = cfg.RateLimitCheckout
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		HealthChecker:  db,
		MetricsHandler: metrics.Handler(promReg),
		StatusRecorder: collector.RecordHTTPStatus,
		CartMetrics:    collector,

		SessionFinder:     sessionRepo,
		UserFinder:        userRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		GuestCookie: middleware.GuestCookieConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
			MaxAge:       int(cfg.GuestCartTTL / time.Second),
		},

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		CartRegistry:  registry,
		ProductFinder: productRepo,
		OrderFinder:   orderRepo,

		CatalogService: catalogService,

		OrderService: orderService,
		UserLoader:   userRepo,

		FavoriteService: favoriteService,
		UserService:     userService,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、期限切れセッションと放置ゲストカートの
// クリーンアップジョブを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. カートストアの初期化（掃除対象のバックエンドに接続する）
	_, cartPurger, err := buildCartPersister(cfg)
	if err != nil {
		return err
	}

	// メモリバックエンドはプロセスを跨がないため掃除対象にしない
	if cfg.CartBackend == config.CartBackendMemory {
		cartPurger = nil
	}

	// 3. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, cartPurger, slog.Default())
	cleanupJob.GuestCartTTL = cfg.GuestCartTTL

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Duration("guest_cart_ttl", cfg.GuestCartTTL),
	)

	// 起動直後に1回実行
	if err := cleanupJob.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped gracefully")
			return nil
		case <-ticker.C:
			if err := cleanupJob.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}

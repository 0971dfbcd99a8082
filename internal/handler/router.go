package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freshfast/foodhub/internal/cart"
	"github.com/freshfast/foodhub/internal/middleware"
)

// HealthChecker はヘルスチェックで疎通確認する依存のインターフェース。
// *sql.DB をそのまま渡せる。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	MetricsHandler    http.Handler   // nilの場合/metricsは公開しない
	StatusRecorder    func(int)      // nilの場合ステータスコード計測をスキップ
	CartMetrics       CartOpRecorder // nilの場合カート操作計測をスキップ
	SessionFinder     middleware.SessionFinder
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	GuestCookie       middleware.GuestCookieConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// カート
	CartRegistry  *cart.Registry
	ProductFinder ProductFinder
	OrderFinder   OrderFinder

	// 商品カタログ
	CatalogService CatalogServiceInterface

	// 注文
	OrderService OrderServiceInterface
	UserLoader   UserLoader

	// お気に入り
	FavoriteService FavoriteServiceInterface

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → GuestIDMiddleware → (Optional)SessionMiddleware
//	  → RateLimitMiddleware(General) → CSRFMiddleware
//
// ゲストも使うルート（商品閲覧・カート）はOptionalSessionMiddlewareで
// ログイン状態だけ注入し、未ログインでも弾かない。
// 認証ルート（/auth/*）はミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewStatusMetricsMiddleware(deps.StatusRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.CartRegistry, deps.AuthConfig)
	cartHandler := NewCartHandler(deps.CartRegistry, deps.ProductFinder, deps.OrderFinder)
	if deps.CartMetrics != nil {
		cartHandler.SetMetrics(deps.CartMetrics)
	}
	productHandler := NewProductHandler(deps.CatalogService)
	orderHandler := NewOrderHandler(deps.OrderService, deps.UserLoader, deps.CartRegistry)
	favoriteHandler := NewFavoriteHandler(deps.FavoriteService)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)

	guestMW := middleware.NewGuestIDMiddleware(deps.GuestCookie)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheusメトリクス
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// CSRFトークン取得
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- ゲストも使えるルート ---
	// ミドルウェアスタック: Guest → OptionalSession → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(guestMW)
		r.Use(middleware.NewOptionalSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// メニュー閲覧
		r.Route("/api/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/{id}", productHandler.GetProduct)
		})

		// カート操作（状態変更を含むためCSRF保護を追加）
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

			r.Route("/api/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.Clear)

				r.Post("/lines", cartHandler.AddLine)
				r.Put("/lines/{productID}", cartHandler.SetQuantity)
				r.Delete("/lines/{productID}", cartHandler.RemoveLine)

				r.Post("/reorder", cartHandler.Reorder)
			})
		})
	})

	// --- ログインが必要なルート ---
	// ミドルウェアスタック: Guest → Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(guestMW)
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// 注文
		r.Route("/api/orders", func(r chi.Router) {
			// POST /api/orders - チェックアウト（専用レート制限を追加）
			r.With(deps.RateLimiter.CheckoutMiddleware()).Post("/", orderHandler.PlaceOrder)

			r.Get("/", orderHandler.ListOrders)
			r.Get("/{id}", orderHandler.TrackOrder)
		})

		// お気に入り
		r.Route("/api/favorites", func(r chi.Router) {
			r.Get("/", favoriteHandler.ListFavorites)

			r.Put("/{productID}", favoriteHandler.Like)
			r.Delete("/{productID}", favoriteHandler.Unlike)
		})

		// 退会
		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	// --- 管理者専用ルート ---
	// ミドルウェアスタック: Session → RequireAdmin → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewRequireAdminMiddleware(deps.UserFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Route("/api/admin", func(r chi.Router) {
			// 商品管理
			r.Route("/products", func(r chi.Router) {
				r.Post("/", productHandler.CreateProduct)
				r.Post("/image-lookup", productHandler.LookupImage)

				r.Route("/{id}", func(r chi.Router) {
					r.Put("/", productHandler.UpdateProduct)
					r.Delete("/", productHandler.DeleteProduct)
				})
			})

			// 注文管理
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", orderHandler.ListAllOrders)
				r.Put("/{id}/status", orderHandler.UpdateOrderStatus)
			})

			// ユーザー管理
			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.ListUsers)
				r.Put("/{id}/role", userHandler.UpdateUserRole)
			})
		})
	})

	return r
}

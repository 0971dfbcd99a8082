// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CartBackend はカート永続化バックエンドの種別を表す。
type CartBackend string

const (
	// CartBackendMemory はプロセス内メモリ。開発・テスト用。
	CartBackendMemory CartBackend = "memory"
	// CartBackendFile はローカルファイル。単一インスタンス運用向け。
	CartBackendFile CartBackend = "file"
	// CartBackendRedis はRedis。本番運用向け。
	CartBackendRedis CartBackend = "redis"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	SessionSecret string
	SessionMaxAge int

	// Cart
	CartBackend     CartBackend
	CartDir         string        // fileバックエンドの保存先ディレクトリ
	RedisURL        string        // redisバックエンドの接続URL
	GuestCartTTL    time.Duration // 放置されたゲストスロットの保持期間
	CartIdleTTL     time.Duration // メモリ上のカートコントローラを破棄するまでの期間
	CleanupInterval time.Duration // ワーカーのクリーンアップ実行間隔

	// Image lookup
	ImageFetchTimeout time.Duration
	ImageFetchMaxSize int64

	// Rate Limit
	RateLimitGeneral  int
	RateLimitCheckout int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	if cfg.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}

	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	if cfg.GoogleRedirectURL == "" {
		missing = append(missing, "GOOGLE_REDIRECT_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Cart backend
	backend := CartBackend(getEnvString("CART_BACKEND", string(CartBackendMemory)))
	switch backend {
	case CartBackendMemory, CartBackendFile, CartBackendRedis:
		cfg.CartBackend = backend
	default:
		return nil, fmt.Errorf("invalid CART_BACKEND: %q (must be memory, file or redis)", backend)
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.CartBackend == CartBackendRedis && cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required when CART_BACKEND=redis")
	}
	cfg.CartDir = getEnvString("CART_DIR", "./data/carts")

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.GuestCartTTL = getEnvDuration("GUEST_CART_TTL", 7*24*time.Hour)
	cfg.CartIdleTTL = getEnvDuration("CART_IDLE_TTL", 30*time.Minute)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 1*time.Hour)
	cfg.ImageFetchTimeout = getEnvDuration("IMAGE_FETCH_TIMEOUT", 10*time.Second)
	cfg.ImageFetchMaxSize = getEnvInt64("IMAGE_FETCH_MAX_SIZE", 2097152)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitCheckout = getEnvInt("RATE_LIMIT_CHECKOUT", 5)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

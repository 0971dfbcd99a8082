package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

const guestCookieName = "guest_id"

// guestIDContextKey はリクエストコンテキストに端末IDを格納するためのキー。
var guestIDContextKey = contextKey("guest_id")

// GuestCookieConfig はゲストCookieの発行設定。
type GuestCookieConfig struct {
	CookieSecure bool
	CookieDomain string
	MaxAge       int // 秒。ゲストカートのTTLに合わせる
}

// NewGuestIDMiddleware はゲスト端末を識別するguest_id Cookieを保証する
// ミドルウェアを返す。Cookieが無ければ新規発行し、端末IDを
// リクエストコンテキストに注入する。
// 同じ端末からのリクエストは同じ端末IDに解決される。
func NewGuestIDMiddleware(config GuestCookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var guestID string

			cookie, err := r.Cookie(guestCookieName)
			if err == nil && cookie.Value != "" {
				guestID = cookie.Value
			} else {
				guestID = uuid.New().String()
				http.SetCookie(w, &http.Cookie{
					Name:     guestCookieName,
					Value:    guestID,
					Path:     "/",
					Domain:   config.CookieDomain,
					MaxAge:   config.MaxAge,
					HttpOnly: true,
					Secure:   config.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), guestIDContextKey, guestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GuestIDFromContext はリクエストコンテキストから端末IDを取得する。
// GuestIDMiddlewareを通過したリクエストでのみ有効。
func GuestIDFromContext(ctx context.Context) (string, error) {
	guestID, ok := ctx.Value(guestIDContextKey).(string)
	if !ok || guestID == "" {
		return "", fmt.Errorf("guest ID not found in context")
	}
	return guestID, nil
}

// ContextWithGuestID はコンテキストに端末IDを注入する。テスト用。
func ContextWithGuestID(ctx context.Context, guestID string) context.Context {
	return context.WithValue(ctx, guestIDContextKey, guestID)
}

package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freshfast/foodhub/internal/middleware"
	"github.com/freshfast/foodhub/internal/model"
)

// FavoriteServiceInterface はお気に入りハンドラーが必要とするサービスインターフェース。
type FavoriteServiceInterface interface {
	Like(ctx context.Context, userID, productID string) error
	Unlike(ctx context.Context, userID, productID string) error
	List(ctx context.Context, userID string) ([]*model.Product, error)
}

// FavoriteHandler はお気に入り商品のHTTPハンドラー。
type FavoriteHandler struct {
	service FavoriteServiceInterface
}

// NewFavoriteHandler はFavoriteHandlerを生成する。
func NewFavoriteHandler(service FavoriteServiceInterface) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

// Like は商品をお気に入りに追加する。冪等。
// PUT /api/favorites/{productID}
func (h *FavoriteHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	productID := chi.URLParam(r, "productID")

	if err := h.service.Like(r.Context(), userID, productID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unlike は商品をお気に入りから外す。冪等。
// DELETE /api/favorites/{productID}
func (h *FavoriteHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	productID := chi.URLParam(r, "productID")

	if err := h.service.Unlike(r.Context(), userID, productID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListFavorites はログインユーザーのお気に入り商品一覧を返す。
// GET /api/favorites
func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	products, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]productResponse, len(products))
	for i, p := range products {
		results[i] = toProductResponse(p)
	}

	writeJSON(w, http.StatusOK, results)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freshfast/foodhub/internal/cart"
	"github.com/freshfast/foodhub/internal/middleware"
	"github.com/freshfast/foodhub/internal/model"
)

// ProductFinder はカート追加時の商品検索に必要なインターフェース。
// repository.ProductRepositoryの部分集合として定義する。
type ProductFinder interface {
	FindByID(ctx context.Context, id string) (*model.Product, error)
}

// OrderFinder は再注文時の注文検索に必要なインターフェース。
// repository.OrderRepositoryの部分集合として定義する。
type OrderFinder interface {
	FindByID(ctx context.Context, id string) (*model.Order, error)
}

// CartOpRecorder はカート操作の計測フック。
// metrics.Collectorの部分集合として定義する。
type CartOpRecorder interface {
	RecordCartOperation(op string)
}

// CartHandler はカート操作のHTTPハンドラー。
// リクエストごとに端末IDとログイン状態からスコープを解決し、
// 端末のカート同期コントローラへ配信してから操作する。
type CartHandler struct {
	registry *cart.Registry
	products ProductFinder
	orders   OrderFinder
	metrics  CartOpRecorder // nilの場合は計測しない
}

// NewCartHandler はCartHandlerを生成する。
func NewCartHandler(registry *cart.Registry, products ProductFinder, orders OrderFinder) *CartHandler {
	return &CartHandler{
		registry: registry,
		products: products,
		orders:   orders,
	}
}

// SetMetrics はカート操作の計測フックを設定する。
func (h *CartHandler) SetMetrics(m CartOpRecorder) {
	h.metrics = m
}

// recordOp はカート操作メトリクスを記録する。
func (h *CartHandler) recordOp(op string) {
	if h.metrics != nil {
		h.metrics.RecordCartOperation(op)
	}
}

// addLineRequest はカート明細追加リクエストのボディ。
type addLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// setQuantityRequest は数量変更リクエストのボディ。
type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// reorderRequest は再注文リクエストのボディ。
type reorderRequest struct {
	OrderID string `json:"orderId"`
}

// cartResponse はカートのAPIレスポンス。
type cartResponse struct {
	Lines      []model.CartLine `json:"lines"`
	TotalItems int              `json:"totalItems"`
	TotalPrice int64            `json:"totalPrice"`
}

// resolveController はリクエストの端末IDとログイン状態から
// カート同期コントローラを解決する。
func (h *CartHandler) resolveController(r *http.Request) (*cart.Controller, error) {
	terminalID, err := middleware.GuestIDFromContext(r.Context())
	if err != nil {
		return nil, err
	}

	scope := model.GuestScope(terminalID)
	if userID, err := middleware.UserIDFromContext(r.Context()); err == nil {
		scope = model.UserScope(userID)
	}

	return h.registry.Resolve(r.Context(), terminalID, scope), nil
}

// GetCart は現在のカート内容を返す。
// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctl, err := h.resolveController(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(ctl.Store().Cart()))
}

// AddLine は商品をカートに追加する。
// 明細は追加時点の商品スナップショット（名前・単価・画像URL）を保持する。
// POST /api/cart/lines
func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	ctl, err := h.resolveController(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req addLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	// 数量未指定は1個。負数は受け付けない。
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidQuantityError(req.Quantity))
		return
	}

	product, err := h.products.FindByID(r.Context(), req.ProductID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if product == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewProductNotFoundError(req.ProductID))
		return
	}

	ctl.Store().AddLine(r.Context(), product.CartLine(quantity))
	h.recordOp("add")

	writeJSON(w, http.StatusOK, toCartResponse(ctl.Store().Cart()))
}

// SetQuantity はカート明細の数量を変更する。
// 1未満の数量は400で拒否する（ストア層の無操作セマンティクスとは別に、
// APIクライアントへ明示的なフィードバックを返す）。
// PUT /api/cart/lines/{productID}
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	ctl, err := h.resolveController(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	if req.Quantity < 1 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidQuantityError(req.Quantity))
		return
	}

	productID := chi.URLParam(r, "productID")
	ctl.Store().SetQuantity(r.Context(), productID, req.Quantity)
	h.recordOp("set_quantity")

	writeJSON(w, http.StatusOK, toCartResponse(ctl.Store().Cart()))
}

// RemoveLine はカートから明細を削除する。
// DELETE /api/cart/lines/{productID}
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	ctl, err := h.resolveController(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	productID := chi.URLParam(r, "productID")
	ctl.Store().RemoveLine(r.Context(), productID)
	h.recordOp("remove")

	writeJSON(w, http.StatusOK, toCartResponse(ctl.Store().Cart()))
}

// Clear はカートを空にする。
// DELETE /api/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctl, err := h.resolveController(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	ctl.Store().Clear(r.Context())
	h.recordOp("clear")

	writeJSON(w, http.StatusOK, toCartResponse(ctl.Store().Cart()))
}

// Reorder は過去の注文の明細を現在のカートへ一括追加する。
// 明細の価格は注文時点のスナップショットをそのまま使う。
// POST /api/cart/reorder
func (h *CartHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	ctl, err := h.resolveController(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	order, err := h.orders.FindByID(r.Context(), req.OrderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if order == nil || order.UserID != userID {
		// 他人の注文は存在自体を秘匿する
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewOrderNotFoundError(req.OrderID))
		return
	}

	ctl.Store().AddLines(r.Context(), order.Lines)
	h.recordOp("reorder")

	writeJSON(w, http.StatusOK, toCartResponse(ctl.Store().Cart()))
}

// toCartResponse はmodel.CartからAPIレスポンスに変換する。
func toCartResponse(c model.Cart) cartResponse {
	lines := c.Lines
	if lines == nil {
		lines = []model.CartLine{}
	}
	return cartResponse{
		Lines:      lines,
		TotalItems: c.TotalItemCount(),
		TotalPrice: c.TotalPrice(),
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freshfast/foodhub/internal/cart"
	"github.com/freshfast/foodhub/internal/middleware"
	"github.com/freshfast/foodhub/internal/model"
)

// OrderServiceInterface は注文ハンドラーが必要とするサービスインターフェース。
type OrderServiceInterface interface {
	Place(ctx context.Context, user *model.User, cart model.Cart, delivery model.DeliveryDetails) (*model.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Order, error)
	Track(ctx context.Context, orderID string, requester *model.User) (*model.Order, error)
	ListAll(ctx context.Context, status model.OrderStatus) ([]*model.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error)
}

// UserLoader は注文ハンドラーが要求元ユーザーを取得するためのインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserLoader interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// OrderHandler は注文のHTTPハンドラー。
// チェックアウトでは端末のカート同期コントローラから現在のカートを取り出し、
// 確定成功後にカートを空にする。
type OrderHandler struct {
	service  OrderServiceInterface
	users    UserLoader
	registry *cart.Registry
}

// NewOrderHandler はOrderHandlerを生成する。
func NewOrderHandler(service OrderServiceInterface, users UserLoader, registry *cart.Registry) *OrderHandler {
	return &OrderHandler{
		service:  service,
		users:    users,
		registry: registry,
	}
}

// placeOrderRequest はチェックアウトリクエストのボディ。
type placeOrderRequest struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Area          string `json:"area"`
	DeliveryTime  string `json:"deliveryTime"`
	PaymentMethod string `json:"paymentMethod"`
}

// updateOrderStatusRequest は注文ステータス更新リクエストのボディ。
type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// orderResponse は注文のAPIレスポンス。
type orderResponse struct {
	ID            string           `json:"id"`
	UserEmail     string           `json:"userEmail"`
	Name          string           `json:"name"`
	Phone         string           `json:"phone"`
	Address       string           `json:"address"`
	Area          string           `json:"area"`
	DeliveryTime  string           `json:"deliveryTime"`
	PaymentMethod string           `json:"paymentMethod"`
	Lines         []model.CartLine `json:"lines"`
	Total         int64            `json:"total"`
	Status        string           `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// requester はリクエストコンテキストのユーザーIDから要求元ユーザーを取得する。
func (h *OrderHandler) requester(r *http.Request) (*model.User, error) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		return nil, err
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// PlaceOrder はカートの内容から注文を確定する。
// POST /api/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	user, err := h.requester(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	// 端末のカートをユーザースコープへ解決してから現在の内容を取り出す
	terminalID, err := middleware.GuestIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	ctl := h.registry.Resolve(r.Context(), terminalID, model.UserScope(user.ID))

	delivery := model.DeliveryDetails{
		Name:          req.Name,
		Phone:         req.Phone,
		Address:       req.Address,
		Area:          req.Area,
		DeliveryTime:  req.DeliveryTime,
		PaymentMethod: req.PaymentMethod,
	}

	order, err := h.service.Place(r.Context(), user, ctl.Store().Cart(), delivery)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 確定成功後にカートを空にする
	ctl.Store().Clear(r.Context())

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// ListOrders はログインユーザー自身の注文履歴を返す。
// GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	orders, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

// TrackOrder は注文の現在の状態を返す。注文者本人または管理者のみ参照できる。
// GET /api/orders/{id}
func (h *OrderHandler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	user, err := h.requester(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	orderID := chi.URLParam(r, "id")

	order, err := h.service.Track(r.Context(), orderID, user)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// ListAllOrders は全注文を返す。管理画面用。statusクエリで絞り込める。
// GET /api/admin/orders?status=xxx
func (h *OrderHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	status := model.OrderStatus(r.URL.Query().Get("status"))

	orders, err := h.service.ListAll(r.Context(), status)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

// UpdateOrderStatus は注文のステータスを更新する。管理画面用。
// PUT /api/admin/orders/{id}/status
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), orderID, model.OrderStatus(req.Status))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// toOrderResponse はmodel.OrderからAPIレスポンスに変換する。
func toOrderResponse(o *model.Order) orderResponse {
	lines := o.Lines
	if lines == nil {
		lines = []model.CartLine{}
	}
	return orderResponse{
		ID:            o.ID,
		UserEmail:     o.UserEmail,
		Name:          o.Delivery.Name,
		Phone:         o.Delivery.Phone,
		Address:       o.Delivery.Address,
		Area:          o.Delivery.Area,
		DeliveryTime:  o.Delivery.DeliveryTime,
		PaymentMethod: o.Delivery.PaymentMethod,
		Lines:         lines,
		Total:         o.Total,
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
	}
}

// toOrderResponses は注文スライスをAPIレスポンスに変換する。
func toOrderResponses(orders []*model.Order) []orderResponse {
	results := make([]orderResponse, len(orders))
	for i, o := range orders {
		results[i] = toOrderResponse(o)
	}
	return results
}

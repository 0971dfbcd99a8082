// Package order は注文確定・照会のドメインロジックを提供する。
package order

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/freshfast/foodhub/internal/model"
	"github.com/freshfast/foodhub/internal/repository"
)

// Service は注文のサービス層。
// カートのスナップショット化 → 検証 → 保存のフローを統括する。
type Service struct {
	orderRepo repository.OrderRepository
	onPlaced  func(order *model.Order)
}

// NewService はorder.Serviceの新しいインスタンスを生成する。
func NewService(orderRepo repository.OrderRepository) *Service {
	return &Service{orderRepo: orderRepo}
}

// SetPlacedHook は注文確定時に呼ばれるフックを設定する。メトリクス計測用。
func (s *Service) SetPlacedHook(hook func(order *model.Order)) {
	s.onPlaced = hook
}

// Place はカートの内容から注文を確定する。
// 明細は確定時点のスナップショットとして保存され、以後のカタログ変更の影響を受けない。
// 合計金額はサーバー側で明細から再計算する。
func (s *Service) Place(ctx context.Context, user *model.User, cart model.Cart, delivery model.DeliveryDetails) (*model.Order, error) {
	if cart.IsEmpty() {
		return nil, model.NewEmptyCartError()
	}
	if err := validateDelivery(delivery); err != nil {
		return nil, err
	}
	for _, line := range cart.Lines {
		if line.Quantity < 1 {
			return nil, model.NewInvalidQuantityError(line.Quantity)
		}
	}

	if delivery.DeliveryTime == "" {
		delivery.DeliveryTime = "ASAP"
	}
	if delivery.PaymentMethod == "" {
		delivery.PaymentMethod = "cash"
	}

	now := time.Now()
	order := &model.Order{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		UserEmail: user.Email,
		Delivery:  delivery,
		Lines:     cart.Clone().Lines,
		Total:     cart.TotalPrice(),
		Status:    model.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("注文の保存に失敗しました: %w", err)
	}

	slog.Info("注文を受け付けました",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
		slog.Int("line_count", len(order.Lines)),
		slog.Int64("total", order.Total),
	)

	if s.onPlaced != nil {
		s.onPlaced(order)
	}

	return order, nil
}

// ListByUser はユーザー自身の注文履歴を取得する。
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("注文履歴の取得に失敗しました: %w", err)
	}
	return orders, nil
}

// Track は注文を取得する。注文者本人または管理者のみ参照できる。
func (s *Service) Track(ctx context.Context, orderID string, requester *model.User) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("注文の取得に失敗しました: %w", err)
	}
	if order == nil {
		return nil, model.NewOrderNotFoundError(orderID)
	}
	if order.UserID != requester.ID && requester.Role != model.RoleAdmin {
		return nil, model.NewForbiddenError()
	}
	return order, nil
}

// ListAll は全注文を取得する。管理画面用。statusが空でない場合は絞り込む。
func (s *Service) ListAll(ctx context.Context, status model.OrderStatus) ([]*model.Order, error) {
	if status != "" && !model.ValidOrderStatus(status) {
		return nil, model.NewInvalidOrderStatusError(string(status))
	}
	orders, err := s.orderRepo.ListAll(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("注文一覧の取得に失敗しました: %w", err)
	}
	return orders, nil
}

// UpdateStatus は注文のステータスを更新する。管理画面用。
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error) {
	if !model.ValidOrderStatus(status) {
		return nil, model.NewInvalidOrderStatusError(string(status))
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("注文の取得に失敗しました: %w", err)
	}
	if order == nil {
		return nil, model.NewOrderNotFoundError(orderID)
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, fmt.Errorf("注文ステータスの更新に失敗しました: %w", err)
	}

	order.Status = status
	order.UpdatedAt = time.Now()

	slog.Info("注文ステータスを更新しました",
		slog.String("order_id", orderID),
		slog.String("status", string(status)),
	)

	return order, nil
}

// validateDelivery は配達情報の必須項目を検証する。
func validateDelivery(d model.DeliveryDetails) error {
	var missing []string
	if strings.TrimSpace(d.Name) == "" {
		missing = append(missing, "氏名")
	}
	if strings.TrimSpace(d.Phone) == "" {
		missing = append(missing, "電話番号")
	}
	if strings.TrimSpace(d.Address) == "" {
		missing = append(missing, "配達先住所")
	}
	if len(missing) > 0 {
		return model.NewInvalidDeliveryError(strings.Join(missing, "、"))
	}
	return nil
}

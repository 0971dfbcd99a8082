// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/freshfast/foodhub/internal/model"
	"github.com/freshfast/foodhub/internal/repository"
)

// FavoriteDeleter はお気に入りの一括削除インターフェース。
type FavoriteDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// CartSlotRemover はユーザーのカートスロット削除インターフェース。
// cartstore.Adapterを抽象化する。
type CartSlotRemover interface {
	Remove(ctx context.Context, scope model.Scope)
}

// Service はユーザー管理のサービス層。
// 退会処理とロール管理のビジネスロジックを提供する。
type Service struct {
	userRepo        repository.UserRepository
	sessionRepo     repository.SessionRepository
	favoriteDeleter FavoriteDeleter
	cartRemover     CartSlotRemover
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	favoriteDeleter FavoriteDeleter,
	cartRemover CartSlotRemover,
) *Service {
	return &Service{
		userRepo:        userRepo,
		sessionRepo:     sessionRepo,
		favoriteDeleter: favoriteDeleter,
		cartRemover:     cartRemover,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: favorites → sessions → カートスロット → user（+ CASCADE: identities, orders）
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. お気に入りを削除
	if s.favoriteDeleter != nil {
		if err := s.favoriteDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
		}
	}

	// 2. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 3. 永続化済みカートスロットを削除
	if s.cartRemover != nil {
		s.cartRemover.Remove(ctx, model.UserScope(userID))
	}

	// 4. ユーザーを削除（identities, ordersはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}

// ListUsers は全ユーザーを取得する。管理画面用。
func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// UpdateRole は指定ユーザーのロールを変更する。管理画面用。
func (s *Service) UpdateRole(ctx context.Context, userID string, role model.Role) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, model.NewInvalidRoleError(string(role))
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return nil, fmt.Errorf("ロールの更新に失敗しました: %w", err)
	}

	user.Role = role

	slog.Info("ユーザーロールを更新しました",
		slog.String("user_id", userID),
		slog.String("role", string(role)),
	)

	return user, nil
}

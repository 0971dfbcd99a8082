// Package favorite はお気に入り商品のドメインロジックを提供する。
package favorite

import (
	"context"
	"fmt"

	"github.com/freshfast/foodhub/internal/model"
	"github.com/freshfast/foodhub/internal/repository"
)

// Service はお気に入りのサービス層。
type Service struct {
	favoriteRepo repository.FavoriteRepository
	productRepo  repository.ProductRepository
}

// NewService はfavorite.Serviceの新しいインスタンスを生成する。
func NewService(favoriteRepo repository.FavoriteRepository, productRepo repository.ProductRepository) *Service {
	return &Service{
		favoriteRepo: favoriteRepo,
		productRepo:  productRepo,
	}
}

// Like は商品をお気に入りに追加する。既に追加済みの場合は何もしない（冪等）。
func (s *Service) Like(ctx context.Context, userID, productID string) error {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if product == nil {
		return model.NewProductNotFoundError(productID)
	}

	if err := s.favoriteRepo.Add(ctx, userID, productID); err != nil {
		return fmt.Errorf("お気に入りの追加に失敗しました: %w", err)
	}
	return nil
}

// Unlike は商品をお気に入りから外す。未追加の場合も何もしない（冪等）。
func (s *Service) Unlike(ctx context.Context, userID, productID string) error {
	if err := s.favoriteRepo.Remove(ctx, userID, productID); err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	return nil
}

// List はユーザーのお気に入り商品一覧を取得する。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Product, error) {
	products, err := s.favoriteRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	return products, nil
}

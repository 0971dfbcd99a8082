package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/freshfast/foodhub/internal/model"
	"github.com/freshfast/foodhub/internal/repository"
)

// Sanitizer は商品説明HTMLのサニタイズインターフェース。
// security.ContentSanitizerServiceを抽象化してテスタビリティを向上させる。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// ImageLookup は商品画像URLの解決インターフェース。
type ImageLookup interface {
	FindImageURL(ctx context.Context, inputURL string) (string, error)
}

// ProductInput は商品作成・更新の入力を表す。
type ProductInput struct {
	Name        string
	Description string // 生HTML。保存前にサニタイズされる
	Price       int64  // UGX
	Category    string
	ImageURL    string
}

// Service はメニュー商品のサービス層。
// 入力検証 → 説明サニタイズ → 保存のフローを統括する。
type Service struct {
	productRepo repository.ProductRepository
	sanitizer   Sanitizer
	imageFinder ImageLookup
}

// NewService はcatalog.Serviceの新しいインスタンスを生成する。
func NewService(productRepo repository.ProductRepository, sanitizer Sanitizer, imageFinder ImageLookup) *Service {
	return &Service{
		productRepo: productRepo,
		sanitizer:   sanitizer,
		imageFinder: imageFinder,
	}
}

// ListProducts は商品一覧を取得する。categoryが空でない場合は絞り込む。
func (s *Service) ListProducts(ctx context.Context, category string) ([]*model.Product, error) {
	products, err := s.productRepo.List(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}
	return products, nil
}

// GetProduct は指定IDの商品を取得する。
func (s *Service) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(id)
	}
	return product, nil
}

// CreateProduct は商品を検証・サニタイズして作成する。
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (*model.Product, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	now := time.Now()
	product := &model.Product{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(input.Name),
		Description: s.sanitizeDescription(input.Description),
		Price:       input.Price,
		Category:    strings.TrimSpace(input.Category),
		ImageURL:    input.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("商品の保存に失敗しました: %w", err)
	}

	return product, nil
}

// UpdateProduct は既存商品を検証・サニタイズして上書き更新する。
func (s *Service) UpdateProduct(ctx context.Context, id string, input ProductInput) (*model.Product, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(id)
	}

	product.Name = strings.TrimSpace(input.Name)
	product.Description = s.sanitizeDescription(input.Description)
	product.Price = input.Price
	product.Category = strings.TrimSpace(input.Category)
	product.ImageURL = input.ImageURL
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("商品の更新に失敗しました: %w", err)
	}

	return product, nil
}

// DeleteProduct は指定IDの商品を削除する。
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if product == nil {
		return model.NewProductNotFoundError(id)
	}

	if err := s.productRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("商品の削除に失敗しました: %w", err)
	}
	return nil
}

// LookupImage は入力URLから商品画像URLを解決する。管理画面の画像検出機能用。
func (s *Service) LookupImage(ctx context.Context, inputURL string) (string, error) {
	if s.imageFinder == nil {
		return "", model.NewInvalidImageURLError("画像検出機能が無効です")
	}
	return s.imageFinder.FindImageURL(ctx, inputURL)
}

// sanitizeDescription は商品説明HTMLをサニタイズする。
func (s *Service) sanitizeDescription(raw string) string {
	if s.sanitizer == nil {
		return raw
	}
	return s.sanitizer.Sanitize(raw)
}

// validateInput は商品入力の妥当性を検証する。
func validateInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return model.NewInvalidProductError("商品名が入力されていません")
	}
	if input.Price < 1 {
		return model.NewInvalidProductError(fmt.Sprintf("価格が不正です: %d", input.Price))
	}
	if strings.TrimSpace(input.Category) == "" {
		return model.NewInvalidProductError("カテゴリが入力されていません")
	}
	return nil
}

// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/freshfast/foodhub/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// ListAll は全ユーザーを作成日時降順で取得する。管理画面用。
	ListAll(ctx context.Context) ([]*model.User, error)

	// UpdateRole は指定ユーザーのロールを更新する。
	UpdateRole(ctx context.Context, id string, role model.Role) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、sessions、orders、favoritesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// ProductRepository はメニュー商品の永続化インターフェース。
type ProductRepository interface {
	// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// List は商品一覧を作成日時降順で取得する。
	// categoryが空でない場合はそのカテゴリに絞り込む。
	List(ctx context.Context, category string) ([]*model.Product, error)

	// Create は商品を作成する。
	Create(ctx context.Context, product *model.Product) error

	// Update は商品情報を上書き更新する。
	Update(ctx context.Context, product *model.Product) error

	// DeleteByID は指定IDの商品を削除する。
	DeleteByID(ctx context.Context, id string) error
}

// OrderRepository は注文の永続化インターフェース。
type OrderRepository interface {
	// Create は注文と明細を同一トランザクションで作成する。
	// 明細の順序はLines内の並び順のまま保存される。
	Create(ctx context.Context, order *model.Order) error

	// FindByID は指定IDの注文を明細付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Order, error)

	// ListByUserID はユーザーの注文一覧を作成日時降順・明細付きで取得する。
	ListByUserID(ctx context.Context, userID string) ([]*model.Order, error)

	// ListAll は全注文を作成日時降順・明細付きで取得する。管理画面用。
	// statusが空でない場合はそのステータスに絞り込む。
	ListAll(ctx context.Context, status model.OrderStatus) ([]*model.Order, error)

	// UpdateStatus は注文のステータスを更新する。
	// 注文が存在しない場合はエラーを返す。
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) error
}

// FavoriteRepository はお気に入りの永続化インターフェース。
type FavoriteRepository interface {
	// Add はお気に入りを冪等に追加する。
	// UNIQUE(user_id, product_id)制約を利用したINSERT ON CONFLICTで実装する。
	Add(ctx context.Context, userID, productID string) error

	// Remove はお気に入りを削除する。存在しない場合もエラーにしない。
	Remove(ctx context.Context, userID, productID string) error

	// ListByUserID はユーザーのお気に入り商品を追加日時降順で取得する。
	ListByUserID(ctx context.Context, userID string) ([]*model.Product, error)

	// DeleteByUserID はユーザーの全お気に入りを削除する。退会処理用。
	DeleteByUserID(ctx context.Context, userID string) error
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

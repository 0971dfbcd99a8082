package repository

import (
	"testing"
	"time"

	"github.com/freshfast/foodhub/internal/model"
)

// 各Postgres実装がリポジトリインターフェースを満たすことを検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
	var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
	var _ ProductRepository = (*PostgresProductRepo)(nil)
	var _ OrderRepository = (*PostgresOrderRepo)(nil)
	var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
}

// 各コンストラクタが正しく初期化されることを検証
func TestNewPostgresRepos_Initialize(t *testing.T) {
	if NewPostgresUserRepo(nil) == nil {
		t.Error("expected non-nil user repo")
	}
	if NewPostgresIdentityRepo(nil) == nil {
		t.Error("expected non-nil identity repo")
	}
	if NewPostgresSessionRepo(nil) == nil {
		t.Error("expected non-nil session repo")
	}
	if NewPostgresProductRepo(nil) == nil {
		t.Error("expected non-nil product repo")
	}
	if NewPostgresOrderRepo(nil) == nil {
		t.Error("expected non-nil order repo")
	}
	if NewPostgresFavoriteRepo(nil) == nil {
		t.Error("expected non-nil favorite repo")
	}
}

// ユニットテスト: CreateWithIdentityに渡すuserとidentityの関連が正しいこと
// （DB接続なしでロジックのみ検証）
func TestPostgresUserRepo_CreateWithIdentity_LinksIdentity(t *testing.T) {
	user := &model.User{
		ID:    "user-id-1",
		Email: "test@example.com",
		Name:  "Test User",
		Role:  model.RoleUser,
	}
	identity := &model.Identity{
		ID:             "identity-id-1",
		UserID:         "user-id-1",
		Provider:       "google",
		ProviderUserID: "google-123",
	}

	// identityのUserIDがuserのIDと一致することを確認
	if identity.UserID != user.ID {
		t.Errorf("identity.UserID = %q, want %q", identity.UserID, user.ID)
	}
}

// SessionRepoのFindByIDが期限切れセッションを返さないことの期待動作
func TestPostgresSessionRepo_FindByID_ExpiredSession_Concept(t *testing.T) {
	// このテストはDB接続なしでコンセプトを検証する
	session := &model.Session{
		ID:        "session-1",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(-1 * time.Hour),
	}

	// 期限切れ判定: expires_at > now() を満たさない
	if !session.ExpiresAt.Before(time.Now()) {
		t.Error("expected session to be expired")
	}
}

// Order.Createに渡す明細の順序がposition列にそのまま保存されることの期待動作
func TestPostgresOrderRepo_Create_PreservesLineOrder_Concept(t *testing.T) {
	order := &model.Order{
		ID:     "order-1",
		UserID: "user-1",
		Lines: []model.CartLine{
			{ProductID: "a", Name: "Chicken Pilau", UnitPrice: 15000, Quantity: 2},
			{ProductID: "b", Name: "Rolex", UnitPrice: 3000, Quantity: 1},
		},
	}

	// positionは0始まりのスライスインデックスと一致する
	for i, line := range order.Lines {
		if line.ProductID == "" {
			t.Errorf("line %d: ProductID must not be empty", i)
		}
	}
	if order.Lines[0].ProductID != "a" || order.Lines[1].ProductID != "b" {
		t.Error("line order must follow slice order")
	}
}

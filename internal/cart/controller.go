package cart

import (
	"context"
	"log/slog"
	"sync"

	"github.com/freshfast/foodhub/internal/model"
)

// State は同期コントローラの状態を表す。
type State string

const (
	// StateUninitialized はアイデンティティ未解決の初期状態。
	StateUninitialized State = "uninitialized"
	// StateGuestActive はゲストスコープのカートがアクティブな状態。
	StateGuestActive State = "guest_active"
	// StateUserActive は認証済みユーザーのカートがアクティブな状態。
	StateUserActive State = "user_active"
)

// Controller は1端末分のカート同期の状態機械。
// アイデンティティの遷移イベントを受けてアクティブな永続化スロットを
// 切り替え、ログイン遷移ごとに高々1回だけゲストカートをユーザーカートへ
// マージする。終端状態はなく、セッションの生存期間中動き続ける。
type Controller struct {
	mu         sync.Mutex
	store      *Store
	persister  Persister
	guestScope model.Scope
	state      State

	// lastScope は最後に処理したスコープ。同一アイデンティティの
	// 重複配信をスキップする再マージ防止ガード（このガードがないと
	// 同一ログインイベントの二重配信で数量が膨張する）。
	lastScope *model.Scope

	// onMerge はマージ実行時のフック。メトリクス記録用。省略可。
	onMerge func()
}

// NewController は端末IDに対応するControllerを生成する。
// UIがアイデンティティ解決を待たずに動けるよう、生成時点で
// ゲストスコープのカートを安全なデフォルトとして読み込む。
func NewController(persister Persister, terminalID string) *Controller {
	guestScope := model.GuestScope(terminalID)
	store := NewStore(persister, guestScope)
	store.replace(guestScope, persister.Load(context.Background(), guestScope))

	return &Controller{
		store:      store,
		persister:  persister,
		guestScope: guestScope,
		state:      StateUninitialized,
	}
}

// SetMergeHook はマージ実行時に呼ばれるフックを登録する。
func (c *Controller) SetMergeHook(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMerge = fn
}

// Store は配下のカートStoreを返す。
func (c *Controller) Store() *Store {
	return c.store
}

// State は現在の状態を返す。
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Resolve はアイデンティティの現在値を配信する。
// 購読直後の即時配信を含め、値が変わるたびに呼び出されることを想定する。
// 直前に処理したスコープと同一の場合は何もしない（冪等）。
//
// ゲストへの遷移: ゲストスロットを読み込みメモリ上のカートを差し替える。
// ユーザーuへの遷移: uのスロットとゲストスロットを読み込み、
// ゲストカートが空でなければマージしてuのスロットへ保存した上で
// ゲストスロットを削除する。空であればuのカートをそのまま採用する。
func (c *Controller) Resolve(ctx context.Context, scope model.Scope) {
	c.mu.Lock()
	if c.lastScope != nil && *c.lastScope == scope {
		c.mu.Unlock()
		return
	}

	if !scope.IsUser() {
		// ゲスト端末IDはコントローラ生成時に固定されている
		scope = c.guestScope
		guestCart := c.persister.Load(ctx, c.guestScope)
		c.state = StateGuestActive
		c.lastScope = &scope
		c.mu.Unlock()

		c.store.replace(c.guestScope, guestCart)
		return
	}

	userCart := c.persister.Load(ctx, scope)
	guestCart := c.persister.Load(ctx, c.guestScope)

	if !guestCart.IsEmpty() {
		merged := Merge(userCart, guestCart)
		c.persister.Save(ctx, scope, merged)
		c.persister.Remove(ctx, c.guestScope)
		userCart = merged

		if c.onMerge != nil {
			c.onMerge()
		}
		slog.Info("ゲストカートをユーザーカートへマージしました",
			slog.String("user_id", scope.ID),
			slog.Int("merged_lines", len(merged.Lines)),
		)
	}

	c.state = StateUserActive
	c.lastScope = &scope
	c.mu.Unlock()

	c.store.replace(scope, userCart)
}

// ResetOnLogout はログアウト時の明示的なカート破棄を行う。
// 表示中カートの意図的な消去であり、ゲストスコープへの自動遷移とは
// 区別される（直前のゲストの残骸を表面化させないため）。
// メモリ上のカートを空にし、現在スコープのスロットも削除する。
// 再マージ防止ガードもリセットし、同一ユーザーの再ログインで
// 永続化済みカートが再読み込みされるようにする。
func (c *Controller) ResetOnLogout(ctx context.Context) {
	c.mu.Lock()
	c.lastScope = nil
	c.mu.Unlock()

	scope := c.store.Scope()
	c.store.Clear(ctx)
	c.persister.Remove(ctx, scope)
}

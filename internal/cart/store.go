// Package cart はカートのドメインロジックを提供する。
// メモリ上のカートを正として保持するStore、ゲストカートの
// ログイン時マージ規則、アイデンティティ遷移に反応して
// アクティブスコープを切り替えるControllerからなる。
package cart

import (
	"context"
	"sync"

	"github.com/freshfast/foodhub/internal/model"
)

// Persister はスコープごとのカートスロットへの読み書きインターフェース。
// cartstore.Adapterの部分集合として定義する。
// 読み込み失敗は空カート、書き込み失敗は握りつぶしが実装側の契約であり、
// Storeはいずれの失敗にも関知しない。
type Persister interface {
	Load(ctx context.Context, scope model.Scope) model.Cart
	Save(ctx context.Context, scope model.Scope, cart model.Cart)
	Remove(ctx context.Context, scope model.Scope)
}

// Observer はカートの変更通知を受け取るコールバック。
// 各ミューテーションの完了後（永続化書き込み後）に呼び出される。
type Observer func(scope model.Scope)

// Store はアクティブなスコープのカートをメモリ上に保持し、
// アトミックなミューテーション操作を公開する。
// すべてのミューテーションはアクティブスコープのスロットへの
// ライトスルー保存を伴う。読み取り操作は書き込みを発生させない。
type Store struct {
	mu        sync.Mutex
	scope     model.Scope
	cart      model.Cart
	persister Persister
	observers []Observer
}

// NewStore は指定スコープの空カートを持つStoreを生成する。
// 永続化済みカートの読み込みと差し替えはControllerが行う。
func NewStore(persister Persister, scope model.Scope) *Store {
	return &Store{
		persister: persister,
		scope:     scope,
	}
}

// Subscribe は変更オブザーバを登録する。
// ミューテーションおよびスコープ差し替えの完了後に呼び出される。
func (s *Store) Subscribe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// AddLine は明細を追加する。同一ProductIDの明細が既にある場合は
// 数量を加算し、なければ末尾に追加する。数量が1未満の場合は1として扱う。
func (s *Store) AddLine(ctx context.Context, line model.CartLine) {
	s.mu.Lock()
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	s.cart = addLine(s.cart, line)
	s.persistLocked(ctx)
	s.mu.Unlock()
	s.notify()
}

// AddLines は複数明細を入力順に追加する。再注文フローで使用される。
// 永続化書き込みは全明細の適用後に1回だけ行う（明細ごとの書き込みは
// 中間状態のちらつきを生むため行わない）。
func (s *Store) AddLines(ctx context.Context, lines []model.CartLine) {
	s.mu.Lock()
	for _, line := range lines {
		if line.Quantity < 1 {
			line.Quantity = 1
		}
		s.cart = addLine(s.cart, line)
	}
	s.persistLocked(ctx)
	s.mu.Unlock()
	s.notify()
}

// RemoveLine は指定ProductIDの明細を削除する。
// 存在しない場合は何もしない（エラーではない）。
func (s *Store) RemoveLine(ctx context.Context, productID string) {
	s.mu.Lock()
	lines := make([]model.CartLine, 0, len(s.cart.Lines))
	for _, l := range s.cart.Lines {
		if l.ProductID != productID {
			lines = append(lines, l)
		}
	}
	s.cart = model.Cart{Lines: lines}
	s.persistLocked(ctx)
	s.mu.Unlock()
	s.notify()
}

// SetQuantity は指定明細の数量を更新する。
// quantityが1未満の場合は状態を変更しない（意図的なno-op。
// 数量1での減算は呼び出し側がRemoveLineを使うか操作を無効化する設計）。
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) {
	if quantity < 1 {
		return
	}

	s.mu.Lock()
	for i, l := range s.cart.Lines {
		if l.ProductID == productID {
			s.cart.Lines[i].Quantity = quantity
			break
		}
	}
	s.persistLocked(ctx)
	s.mu.Unlock()
	s.notify()
}

// Clear はカートを空にし、空の状態を永続化する。
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.cart = model.Cart{}
	s.persistLocked(ctx)
	s.mu.Unlock()
	s.notify()
}

// Cart は現在のカートの複製を返す。副作用なし。
func (s *Store) Cart() model.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Scope は現在のアクティブスコープを返す。
func (s *Store) Scope() model.Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

// TotalItemCount は全明細の数量合計を返す。副作用なし。
func (s *Store) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalItemCount()
}

// TotalPrice は全明細の小計合計を返す。副作用なし。
func (s *Store) TotalPrice() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalPrice()
}

// replace はアクティブスコープとメモリ上のカートを差し替える。
// Controllerのスコープ遷移専用。永続化書き込みは行わない
// （遷移時の保存要否はController側の遷移規則が決める）。
func (s *Store) replace(scope model.Scope, cart model.Cart) {
	s.mu.Lock()
	s.scope = scope
	s.cart = cart.Clone()
	s.mu.Unlock()
	s.notify()
}

// persistLocked は現在のカートをアクティブスコープへライトスルー保存する。
// 呼び出し元がs.muを保持していること。
func (s *Store) persistLocked(ctx context.Context) {
	s.persister.Save(ctx, s.scope, s.cart)
}

// notify は登録済みオブザーバへ変更を通知する。
func (s *Store) notify() {
	s.mu.Lock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	scope := s.scope
	s.mu.Unlock()

	for _, fn := range observers {
		fn(scope)
	}
}

// addLine はカートへの明細追加規則を適用した新しいカートを返す。
// 同一ProductIDがあれば数量を加算し、なければ末尾に追加する。
func addLine(cart model.Cart, line model.CartLine) model.Cart {
	for i, l := range cart.Lines {
		if l.ProductID == line.ProductID {
			cart.Lines[i].Quantity += line.Quantity
			return cart
		}
	}
	cart.Lines = append(cart.Lines, line)
	return cart
}

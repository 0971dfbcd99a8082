package cartstore

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/freshfast/foodhub/internal/model"
)

const (
	// keyPrefix は全カートスロットに共通するキー接頭辞。
	keyPrefix = "foodhub:cart:"
	// GuestKeyPrefix はゲストスコープのスロットに共通するキー接頭辞。
	// クリーンアップジョブの掃除対象を限定するために公開する。
	GuestKeyPrefix = keyPrefix + "guest:"
	// userKeyPrefix はユーザースコープのスロットに共通するキー接頭辞。
	userKeyPrefix = keyPrefix + "user:"

	// schemaVersion は永続化フォーマットのバージョン。
	// 互換性のない変更を加えた場合にインクリメントする。
	schemaVersion = 1
)

// envelope はカートの永続化フォーマット。
// バージョンタグ付きのJSONとして書き込まれ、
// バージョン不一致のペイロードは空カートとして扱われる。
type envelope struct {
	Version int              `json:"version"`
	Lines   []model.CartLine `json:"lines"`
}

// KeyFor はスコープに対応するスロットキーを返す。
// ゲストと各ユーザーのキーは互いに衝突しない。
func KeyFor(scope model.Scope) string {
	if scope.IsUser() {
		return userKeyPrefix + scope.ID
	}
	return GuestKeyPrefix + scope.ID
}

// Adapter はスコープごとのカートスロットへの読み書きを提供する。
// カートの永続化は利便性であって正当性要件ではないため、
// 読み込み失敗・破損ペイロードは空カートに縮退し、
// 書き込み失敗はログに記録するだけで呼び出し元へは伝播しない。
// セッション中のカートの正はあくまでメモリ上の状態である。
type Adapter struct {
	kv     KV
	logger *slog.Logger

	// onFailure は書き込み失敗時のフック。メトリクス計上用。省略可。
	onFailure func()
}

// NewAdapter はAdapterを生成する。
func NewAdapter(kv KV, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{kv: kv, logger: logger}
}

// SetFailureHook は書き込み失敗時に呼ばれるフックを登録する。
func (a *Adapter) SetFailureHook(fn func()) {
	a.onFailure = fn
}

func (a *Adapter) recordFailure() {
	if a.onFailure != nil {
		a.onFailure()
	}
}

// Load はスコープのカートを読み込む。
// スロットが存在しない・ペイロードが破損している・バージョンが
// 一致しない場合はいずれも空カートを返し、エラーは返さない。
func (a *Adapter) Load(ctx context.Context, scope model.Scope) model.Cart {
	key := KeyFor(scope)

	raw, found, err := a.kv.Get(ctx, key)
	if err != nil {
		a.logger.Warn("カートスロットの読み込みに失敗したため空カートとして扱います",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return model.Cart{}
	}
	if !found {
		return model.Cart{}
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		a.logger.Warn("カートスロットのペイロードが破損しているため空カートとして扱います",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return model.Cart{}
	}
	if env.Version != schemaVersion {
		a.logger.Warn("カートスロットのスキーマバージョンが一致しないため空カートとして扱います",
			slog.String("key", key),
			slog.Int("version", env.Version),
		)
		return model.Cart{}
	}

	return model.Cart{Lines: env.Lines}
}

// Save はスコープのカートをシリアライズして書き込む。
// 書き込み失敗はログに記録するだけでエラーは伝播しない（リトライなし）。
func (a *Adapter) Save(ctx context.Context, scope model.Scope, cart model.Cart) {
	key := KeyFor(scope)

	lines := cart.Lines
	if lines == nil {
		lines = []model.CartLine{}
	}
	data, err := json.Marshal(envelope{Version: schemaVersion, Lines: lines})
	if err != nil {
		a.logger.Error("カートのシリアライズに失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := a.kv.Set(ctx, key, string(data)); err != nil {
		a.logger.Error("カートスロットの書き込みに失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		a.recordFailure()
	}
}

// Remove はスコープのスロットを削除する。
// マージ済みゲストカートの再マージ防止に使用される。
func (a *Adapter) Remove(ctx context.Context, scope model.Scope) {
	key := KeyFor(scope)
	if err := a.kv.Delete(ctx, key); err != nil {
		a.logger.Error("カートスロットの削除に失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		a.recordFailure()
	}
}

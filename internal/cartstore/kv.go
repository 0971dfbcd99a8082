// Package cartstore はカートの永続化アダプタを提供する。
// スコープ（ゲスト端末または認証済みユーザー）ごとのスロットに
// シリアライズ済みカートを書き込む、同期的な文字列キーバリュー境界。
// バックエンドはメモリ・ファイル・Redisから設定で選択できる。
package cartstore

import (
	"context"
	"time"
)

// KV はカート永続化に使う文字列キーバリューストアのインターフェース。
// キー間のトランザクション保証は提供しない。
type KV interface {
	// Get は指定キーの値を返す。キーが存在しない場合は found=false を返す。
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set は指定キーへ値を書き込む。既存の値は上書きされる。
	Set(ctx context.Context, key, value string) error

	// Delete は指定キーを削除する。キーが存在しない場合もエラーにしない。
	Delete(ctx context.Context, key string) error
}

// StalePurger は長期間更新のないエントリの掃除をサポートするKVの拡張。
// ワーカーのクリーンアップジョブから利用される。
type StalePurger interface {
	// PurgeStale はprefixに一致するキーのうち、最終書き込みから
	// maxAgeを超過したエントリを削除し、削除件数を返す。
	PurgeStale(ctx context.Context, prefix string, maxAge time.Duration) (int, error)
}

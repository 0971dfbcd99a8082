// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 有効期限を過ぎたセッションと、長期間更新のないゲストカートスロットを
// 日次バッチで削除する。ユーザーカートスロットは掃除対象にしない。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/freshfast/foodhub/internal/cartstore"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は期限切れセッションと放置ゲストカートの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db     Executor
	carts  cartstore.StalePurger // nilの場合カート掃除はスキップ
	logger *slog.Logger

	// GuestCartTTL は最終更新からゲストカートスロットを保持する期間（デフォルト: 14日）。
	GuestCartTTL time.Duration
}

// NewCleanupJob は新しいCleanupJobを生成する。
// cartsにnilを渡すとゲストカートの掃除をスキップする
// （メモリバックエンドはプロセス終了で消えるため掃除不要）。
func NewCleanupJob(db Executor, carts cartstore.StalePurger, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:           db,
		carts:        carts,
		logger:       logger,
		GuestCartTTL: 14 * 24 * time.Hour,
	}
}

// Run は期限切れセッションと放置ゲストカートを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
// セッション削除に失敗した場合もカート掃除は実行し、最初のエラーを返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	sessionCount, sessionErr := j.deleteExpiredSessions(ctx)
	cartCount, cartErr := j.purgeStaleGuestCarts(ctx)

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_sessions", sessionCount),
		slog.Int("deleted_guest_carts", cartCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	if sessionErr != nil {
		return sessionErr
	}
	return cartErr
}

// deleteExpiredSessions は有効期限を過ぎたセッションをDELETEする。
func (j *CleanupJob) deleteExpiredSessions(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < now()`
	result, err := j.db.ExecContext(ctx, query)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	return deletedCount, nil
}

// purgeStaleGuestCarts は最終更新からGuestCartTTLを超過した
// ゲストカートスロットを削除する。
func (j *CleanupJob) purgeStaleGuestCarts(ctx context.Context) (int, error) {
	if j.carts == nil {
		return 0, nil
	}

	count, err := j.carts.PurgeStale(ctx, cartstore.GuestKeyPrefix, j.GuestCartTTL)
	if err != nil {
		j.logger.Error("ゲストカートスロットの掃除に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("ゲストカートスロットの掃除に失敗: %w", err)
	}

	return count, nil
}

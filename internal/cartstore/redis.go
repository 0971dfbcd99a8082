package cartstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV はRedisによるKV実装。本番想定のバックエンド。
// 複数インスタンスでカートスロットを共有できる。
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV は接続URL（例: "redis://localhost:6379/0"）からRedisKVを生成する。
func NewRedisKV(redisURL string) (*RedisKV, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &RedisKV{client: redis.NewClient(opts)}, nil
}

// NewRedisKVWithClient は既存のクライアントからRedisKVを生成する。テスト用。
func NewRedisKVWithClient(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

// Ping はRedisへの疎通を確認する。
func (r *RedisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close は接続を閉じる。
func (r *RedisKV) Close() error {
	return r.client.Close()
}

// Get は指定キーの値を返す。
func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cart slot: %w", err)
	}
	return value, true, nil
}

// Set は指定キーへ値を書き込む。
func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set cart slot: %w", err)
	}
	return nil
}

// Delete は指定キーを削除する。
func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cart slot: %w", err)
	}
	return nil
}

// PurgeStale はprefixに一致するTTLなしキーへEXPIREを設定する。
// Redisは書き込み時刻を保持しないため、次のクリーンアップ周期までに
// 更新されなかったキーをTTL経過で失効させる2段階方式をとる。
func (r *RedisKV) PurgeStale(ctx context.Context, prefix string, maxAge time.Duration) (int, error) {
	var marked int
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()

	for iter.Next(ctx) {
		key := iter.Val()
		ttl, err := r.client.TTL(ctx, key).Result()
		if err != nil {
			return marked, fmt.Errorf("failed to inspect cart slot TTL: %w", err)
		}
		// TTL未設定のキーにのみ失効期限を付与する。
		// go-redisはTTLコマンドの特殊値をナノ秒単位の負のDurationで返す
		// （TTL未設定: -1、キー消滅: -2）。
		// 以後Setで上書きされればTTLは消える。
		if ttl == -1*time.Nanosecond {
			if err := r.client.Expire(ctx, key, maxAge).Err(); err != nil {
				return marked, fmt.Errorf("failed to expire cart slot: %w", err)
			}
			marked++
		}
	}
	if err := iter.Err(); err != nil {
		return marked, fmt.Errorf("failed to scan cart slots: %w", err)
	}
	return marked, nil
}

// compile-time interface check
var (
	_ KV          = (*RedisKV)(nil)
	_ StalePurger = (*RedisKV)(nil)
)

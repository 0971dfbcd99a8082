package cartstore

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memoryEntry は値と最終書き込み時刻を保持する。
type memoryEntry struct {
	value     string
	writtenAt time.Time
}

// MemoryKV はプロセス内マップによるKV実装。
// 開発・テスト用。プロセス終了でデータは失われる。
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	// now はテストで時刻を差し替えるためのフック。
	now func() time.Time
}

// NewMemoryKV はMemoryKVを生成する。
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get は指定キーの値を返す。
func (m *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set は指定キーへ値を書き込む。
func (m *MemoryKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, writtenAt: m.now()}
	return nil
}

// Delete は指定キーを削除する。
func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// PurgeStale は最終書き込みからmaxAgeを超過したエントリを削除する。
func (m *MemoryKV) PurgeStale(ctx context.Context, prefix string, maxAge time.Duration) (int, error) {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for key, e := range m.entries {
		if strings.HasPrefix(key, prefix) && e.writtenAt.Before(cutoff) {
			delete(m.entries, key)
			purged++
		}
	}
	return purged, nil
}

// compile-time interface check
var (
	_ KV          = (*MemoryKV)(nil)
	_ StalePurger = (*MemoryKV)(nil)
)

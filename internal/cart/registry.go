package cart

import (
	"context"
	"sync"
	"time"

	"github.com/freshfast/foodhub/internal/model"
)

// RegistryConfig はコントローラレジストリの設定を保持する。
type RegistryConfig struct {
	IdleTTL         time.Duration // アクセスのないコントローラを破棄するまでの期間
	CleanupInterval time.Duration // 破棄処理の実行間隔
}

// DefaultRegistryConfig はデフォルトのレジストリ設定を返す。
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		IdleTTL:         30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// registryEntry はコントローラと最終アクセス時刻を保持する。
type registryEntry struct {
	controller *Controller
	lastAccess time.Time
}

// Registry は端末IDごとのControllerを管理する。
// コントローラは初回アクセス時に生成され、メモリ上のカートは
// アイドル期間の経過で破棄される（永続化スロットは残るため、
// 再アクセス時に同じ内容が復元される）。
type Registry struct {
	config    RegistryConfig
	persister Persister

	mu      sync.Mutex
	entries map[string]*registryEntry

	// onCreate は新規コントローラ生成時のフック。オブザーバ登録用。省略可。
	onCreate func(*Controller)

	// onSize は保持コントローラ数の変化時のフック。メトリクス計上用。省略可。
	// ロック保持中に呼ばれるためRegistryを再入呼び出ししてはならない。
	onSize func(count int)

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRegistry は新しいRegistryを生成し、バックグラウンドで
// アイドルコントローラの破棄を開始する。
func NewRegistry(persister Persister, config RegistryConfig) *Registry {
	r := &Registry{
		config:    config,
		persister: persister,
		entries:   make(map[string]*registryEntry),
		stopCh:    make(chan struct{}),
	}

	go r.cleanupLoop()

	return r
}

// SetCreateHook は新規コントローラ生成時に呼ばれるフックを登録する。
// メトリクスオブザーバの接続などに使用する。
func (r *Registry) SetCreateHook(fn func(*Controller)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onCreate = fn
}

// SetSizeHook は保持コントローラ数の変化時に呼ばれるフックを登録する。
func (r *Registry) SetSizeHook(fn func(count int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSize = fn
}

// Get は端末IDに対応するControllerを返す。存在しない場合は生成する。
func (r *Registry) Get(terminalID string) *Controller {
	r.mu.Lock()
	entry, ok := r.entries[terminalID]
	if !ok {
		entry = &registryEntry{
			controller: NewController(r.persister, terminalID),
		}
		r.entries[terminalID] = entry
		if r.onCreate != nil {
			r.onCreate(entry.controller)
		}
		if r.onSize != nil {
			r.onSize(len(r.entries))
		}
	}
	entry.lastAccess = time.Now()
	r.mu.Unlock()

	return entry.controller
}

// Resolve は端末のコントローラへアイデンティティの現在値を配信する。
func (r *Registry) Resolve(ctx context.Context, terminalID string, scope model.Scope) *Controller {
	ctl := r.Get(terminalID)
	ctl.Resolve(ctx, scope)
	return ctl
}

// ResetOnLogout は端末のコントローラへログアウト時のカート破棄を指示する。
func (r *Registry) ResetOnLogout(ctx context.Context, terminalID string) {
	r.Get(terminalID).ResetOnLogout(ctx)
}

// Stop はバックグラウンドの破棄ゴルーチンを停止する。
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
}

// cleanupLoop はアイドル期間を超過したコントローラを定期的に破棄する。
func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

// evictIdle はIdleTTLを超過したエントリを削除する。
func (r *Registry) evictIdle() {
	cutoff := time.Now().Add(-r.config.IdleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := false
	for id, entry := range r.entries {
		if entry.lastAccess.Before(cutoff) {
			delete(r.entries, id)
			evicted = true
		}
	}
	if evicted && r.onSize != nil {
		r.onSize(len(r.entries))
	}
}

package cartstore

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// fileExt はFileKVが書き込むファイルの拡張子。
const fileExt = ".cart"

// FileKV はディレクトリ内の1キー1ファイルによるKV実装。
// ブラウザのlocalStorage相当をデスクトップ・CLIターゲットで代替する。
// キーはファイル名として安全になるようbase64urlでエンコードする。
type FileKV struct {
	dir string
}

// NewFileKV はdir配下にデータを保存するFileKVを生成する。
// ディレクトリが存在しない場合は作成する。
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cart storage dir: %w", err)
	}
	return &FileKV{dir: dir}, nil
}

// pathFor はキーに対応するファイルパスを返す。
func (f *FileKV) pathFor(key string) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(key)) + fileExt
	return filepath.Join(f.dir, name)
}

// Get は指定キーの値を返す。
func (f *FileKV) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(f.pathFor(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cart slot: %w", err)
	}
	return string(data), true, nil
}

// Set は指定キーへ値を書き込む。
// 一時ファイルへ書いてからリネームし、部分書き込みを残さない。
func (f *FileKV) Set(ctx context.Context, key, value string) error {
	path := f.pathFor(key)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, []byte(value), 0o600); err != nil {
		return fmt.Errorf("failed to write cart slot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit cart slot: %w", err)
	}
	return nil
}

// Delete は指定キーを削除する。
func (f *FileKV) Delete(ctx context.Context, key string) error {
	err := os.Remove(f.pathFor(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cart slot: %w", err)
	}
	return nil
}

// PurgeStale は最終更新からmaxAgeを超過したスロットを削除する。
// 最終更新時刻はファイルのmtimeで判定する。
func (f *FileKV) PurgeStale(ctx context.Context, prefix string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list cart storage dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	purged := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}

		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(entry.Name(), fileExt))
		if err != nil || !strings.HasPrefix(string(raw), prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(f.dir, entry.Name())); err == nil {
				purged++
			}
		}
	}
	return purged, nil
}

// compile-time interface check
var (
	_ KV          = (*FileKV)(nil)
	_ StalePurger = (*FileKV)(nil)
)

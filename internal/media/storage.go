package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound は指定キーのオブジェクトが存在しない場合に返される。
var ErrNotFound = errors.New("media object not found")

// Storage は画像ファイルの保存先インターフェース。
// キーは"posts/<uuid>.<ext>"のようなスラッシュ区切りの相対パス。
type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// LocalStorage はローカルファイルシステムに保存するStorage実装。
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage はLocalStorageを生成する。
// rootは保存先ディレクトリ、baseURLは公開URLの接頭辞（例: "/media/"）。
func NewLocalStorage(root, baseURL string) *LocalStorage {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &LocalStorage{root: root, baseURL: baseURL}
}

// Root は保存先ディレクトリを返す。
func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Put はデータをファイルとして書き込む。
func (s *LocalStorage) Put(_ context.Context, key string, data []byte, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("failed to write media file: %w", err)
	}
	return nil
}

// Get はファイルの内容を返す。
func (s *LocalStorage) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read media file: %w", err)
	}
	return data, nil
}

// Delete はファイルを削除する。存在しない場合は何もしない。
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete media file: %w", err)
	}
	return nil
}

// URL はキーに対応する公開URLを返す。
func (s *LocalStorage) URL(key string) string {
	return s.baseURL + strings.TrimPrefix(key, "/")
}

var _ Storage = (*LocalStorage)(nil)

// contentTypeFor は拡張子からContent-Typeを推定する。
func contentTypeFor(ext string) string {
	switch ext {
	case "jpg", "jpe", "jfif":
		ext = "jpeg"
	case "tif":
		ext = "tiff"
	}
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return "image/" + ext
}

package media

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	postsPrefix      = "posts/"
	thumbnailsPrefix = "posts/thumbs/"
)

// Service は投稿画像の保存と削除を行う。
// 元画像はアップロードされたバイト列をそのまま保存し、
// 一覧表示用のサムネイルを別キーに保存する。
type Service struct {
	storage Storage
	logger  *slog.Logger
}

// NewService はServiceを生成する。
func NewService(storage Storage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{storage: storage, logger: logger}
}

// Save は元画像とサムネイルを保存し、元画像のキーを返す。
func (s *Service) Save(ctx context.Context, upload *Upload) (string, error) {
	ext := upload.Ext()
	key := postsPrefix + uuid.NewString() + "." + ext

	if err := s.storage.Put(ctx, key, upload.Data, contentTypeFor(ext)); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	thumb, err := Thumbnail(upload.Data)
	if err != nil {
		// サムネイルがなくても元画像で表示できる
		s.logger.Warn("thumbnail generation failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return key, nil
	}
	if err := s.storage.Put(ctx, ThumbnailKey(key), thumb, "image/jpeg"); err != nil {
		s.logger.Warn("thumbnail store failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return key, nil
}

// Remove は元画像とサムネイルを削除する。keyが空の場合は何もしない。
func (s *Service) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, ThumbnailKey(key)); err != nil {
		return err
	}
	return nil
}

// Open は保存済みの元画像を返す。
func (s *Service) Open(ctx context.Context, key string) ([]byte, error) {
	return s.storage.Get(ctx, key)
}

// URL は元画像の公開URLを返す。
func (s *Service) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.storage.URL(key)
}

// ThumbnailURL はサムネイルの公開URLを返す。
func (s *Service) ThumbnailURL(key string) string {
	if key == "" {
		return ""
	}
	return s.storage.URL(ThumbnailKey(key))
}

// ThumbnailKey は元画像キーに対応するサムネイルのキーを返す。
func ThumbnailKey(key string) string {
	base := strings.TrimSuffix(path.Base(key), path.Ext(key))
	return thumbnailsPrefix + base + ".jpg"
}

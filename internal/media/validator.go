// Package media は投稿画像の検証、サムネイル生成、保存を扱う。
package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// AllowedExtensions は受け付ける画像ファイルの拡張子。
// いずれもサーバー側でデコード可能な形式に限定している。
var AllowedExtensions = []string{"bmp", "gif", "jfif", "jpe", "jpg", "jpeg", "png", "tif", "tiff", "webp"}

// DefaultMaxUploadSize はアップロードサイズ上限の既定値（5MiB）。
const DefaultMaxUploadSize int64 = 5 << 20

// Upload はフォームから受け取ったファイルを表す。
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Ext は小文字化したドットなしの拡張子を返す。
func (u *Upload) Ext() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(u.Filename), "."))
}

// Size はファイルのバイト数を返す。
func (u *Upload) Size() int64 {
	return int64(len(u.Data))
}

// Validator はアップロード画像を検証するozzo-validationのルール。
type Validator struct {
	MaxSize int64
}

// NewValidator はValidatorを生成する。maxSizeが0以下の場合は既定値を使用する。
func NewValidator(maxSize int64) *Validator {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &Validator{MaxSize: maxSize}
}

// Validate は拡張子、サイズ、画像としてデコードできるかを順に検証する。
// 未アップロード（nil）の場合は検証しない。
func (v *Validator) Validate(value interface{}) error {
	upload, ok := value.(*Upload)
	if !ok || upload == nil {
		return nil
	}

	ext := upload.Ext()
	if !isAllowed(ext) {
		return validation.NewError("validation_image_extension",
			fmt.Sprintf("ファイル形式 '%s' はサポートされていません。サポートされている形式: '%s'。",
				ext, strings.Join(AllowedExtensions, ", ")))
	}
	if upload.Size() == 0 {
		return validation.NewError("validation_image_empty", "送信されたファイルは空です。")
	}
	if upload.Size() > v.MaxSize {
		return validation.NewError("validation_image_too_large",
			fmt.Sprintf("ファイルサイズが上限（%dMB）を超えています。", v.MaxSize>>20))
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(upload.Data)); err != nil {
		return validation.NewError("validation_image_invalid",
			"有効な画像をアップロードしてください。アップロードしたファイルは画像でないか、破損しています。")
	}
	return nil
}

func isAllowed(ext string) bool {
	for _, a := range AllowedExtensions {
		if a == ext {
			return true
		}
	}
	return false
}

var _ validation.Rule = (*Validator)(nil)

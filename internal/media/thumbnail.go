package media

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// 一覧表示用サムネイルの寸法
const (
	ThumbnailWidth  = 960
	ThumbnailHeight = 339
)

// Thumbnail は画像を中央基準で切り抜いた960x339のJPEGを返す。
func Thumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("cannot decode image: %w", err)
	}

	thumb := imaging.Fill(img, ThumbnailWidth, ThumbnailHeight, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("cannot encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testGIF は2x1ピクセルのGIF画像を生成する。
func testGIF(t *testing.T) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 2, 1), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("gif encode: %v", err)
	}
	return buf.Bytes()
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(0)

	tests := []struct {
		name    string
		value   interface{}
		wantErr string
	}{
		{"未アップロードは検証しない", (*Upload)(nil), ""},
		{"GIF画像は受け付ける", &Upload{Filename: "small.gif", Data: testGIF(t)}, ""},
		{"拡張子の大文字は区別しない", &Upload{Filename: "SMALL.GIF", Data: testGIF(t)}, ""},
		{
			"テキストファイルは拡張子で拒否",
			&Upload{Filename: "text.txt", Data: []byte("hello")},
			"ファイル形式 'txt' はサポートされていません。サポートされている形式: 'bmp, gif, jfif, jpe, jpg, jpeg, png, tif, tiff, webp'。",
		},
		{"画像でない内容は拒否", &Upload{Filename: "fake.png", Data: []byte("not an image")}, "有効な画像をアップロードしてください"},
		{"空ファイルは拒否", &Upload{Filename: "empty.png"}, "送信されたファイルは空です。"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.value)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidator_RejectsOversizedUpload(t *testing.T) {
	v := NewValidator(10)
	err := v.Validate(&Upload{Filename: "big.gif", Data: testGIF(t)})
	if err == nil {
		t.Fatal("expected size error")
	}
}

func TestThumbnail_Dimensions(t *testing.T) {
	thumb, err := Thumbnail(testPNG(t, 1200, 800))
	if err != nil {
		t.Fatalf("Thumbnail error: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %q, want jpeg", format)
	}
	if cfg.Width != ThumbnailWidth || cfg.Height != ThumbnailHeight {
		t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, ThumbnailWidth, ThumbnailHeight)
	}
}

func TestService_SaveKeepsOriginalBytes(t *testing.T) {
	root := t.TempDir()
	svc := NewService(NewLocalStorage(root, "/media/"), nil)
	ctx := context.Background()
	data := testGIF(t)

	key, err := svc.Save(ctx, &Upload{Filename: "small.gif", Data: data})
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if !strings.HasPrefix(key, "posts/") || !strings.HasSuffix(key, ".gif") {
		t.Errorf("key = %q, want posts/<uuid>.gif", key)
	}

	stored, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(key)))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if len(stored) != len(data) || !bytes.Equal(stored, data) {
		t.Errorf("stored size = %d, want %d (unchanged bytes)", len(stored), len(data))
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(ThumbnailKey(key)))); err != nil {
		t.Errorf("thumbnail missing: %v", err)
	}

	if got := svc.URL(key); got != "/media/"+key {
		t.Errorf("URL = %q", got)
	}
	if got := svc.ThumbnailURL(""); got != "" {
		t.Errorf("ThumbnailURL(\"\") = %q, want empty", got)
	}

	if err := svc.Remove(ctx, key); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if _, err := svc.Open(ctx, key); err != ErrNotFound {
		t.Errorf("Open after Remove error = %v, want ErrNotFound", err)
	}
}

func TestLocalStorage_KeysStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStorage(root, "/media")
	if err := s.Put(context.Background(), "../../escape.txt", []byte("x"), "text/plain"); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escape.txt")); err != nil {
		t.Errorf("file was not written inside root: %v", err)
	}
	if got := s.URL("posts/a.gif"); got != "/media/posts/a.gif" {
		t.Errorf("URL = %q", got)
	}
}

func TestThumbnailKey(t *testing.T) {
	if got := ThumbnailKey("posts/abc.png"); got != "posts/thumbs/abc.jpg" {
		t.Errorf("ThumbnailKey = %q", got)
	}
}

package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hitoshi/yatube/internal/form"
	"github.com/hitoshi/yatube/internal/media"
	"github.com/hitoshi/yatube/internal/middleware"
)

// multipartMemory はParseMultipartFormがメモリに保持するサイズの上限。
const multipartMemory = 8 << 20

// parsePostInput はフォームから投稿入力を読み取る。
// maxUploadを超える画像は先頭maxUpload+1バイトだけ読み込み、サイズ検証に委ねる。
func parsePostInput(r *http.Request, maxUpload int64) (form.PostInput, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return form.PostInput{}, fmt.Errorf("failed to parse form: %w", err)
	}

	in := form.PostInput{
		Text:       r.PostFormValue("text"),
		Group:      r.PostFormValue("group"),
		ClearImage: r.PostFormValue("image-clear") != "",
	}

	upload, err := readUpload(r, "image", maxUpload)
	if err != nil {
		return form.PostInput{}, err
	}
	in.Image = upload
	return in, nil
}

// badForm はフォームを解析できなかったリクエストに応答する。
// ボディサイズの上限超過は413、それ以外は400を返す。
func badForm(w http.ResponseWriter, r *http.Request, err error) {
	if middleware.IsBodyTooLarge(err) {
		middleware.RequestTooLarge(w, r)
		return
	}
	http.Error(w, "bad request", http.StatusBadRequest)
}

// readUpload はフォームのファイルフィールドを読み取る。
// ファイルが送信されていない場合はnilを返す。
func readUpload(r *http.Request, field string, maxUpload int64) (*media.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	if header.Filename == "" && header.Size == 0 {
		return nil, nil
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return &media.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

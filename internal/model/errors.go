// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind はアプリケーションエラーの分類を表す。
// ハンドラーは分類に応じて404ページ、フォーム再表示、リダイレクトを選択する。
type ErrorKind string

const (
	// KindNotFound は識別子に対応するリソースが存在しないことを表す。
	KindNotFound ErrorKind = "not_found"
	// KindValidation はフォーム入力が不正であることを表す。
	KindValidation ErrorKind = "validation"
	// KindForbidden は操作の権限がないことを表す。
	KindForbidden ErrorKind = "forbidden"
	// KindUnauthenticated はログインが必要であることを表す。
	KindUnauthenticated ErrorKind = "unauthenticated"
)

// AppError は統一エラーフォーマットを表す。
// 画面に表示する原因カテゴリと対処方法を含む。
type AppError struct {
	Kind     ErrorKind
	Code     string              // エラーコード
	Message  string              // エラーメッセージ
	Category string              // カテゴリ: auth, validation, content, system
	Action   string              // ユーザー向け対処方法
	Fields   map[string][]string // フィールド単位のエラー（KindValidationのみ）
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return fmt.Sprintf("[%s] %s (%s)", e.Code, e.Message, strings.Join(parts, "; "))
}

// 定義済みエラーコード
const (
	ErrCodePostNotFound  = "POST_NOT_FOUND"
	ErrCodeGroupNotFound = "GROUP_NOT_FOUND"
	ErrCodeUserNotFound  = "USER_NOT_FOUND"
	ErrCodeValidation    = "VALIDATION_FAILED"
	ErrCodeNotAuthor     = "NOT_AUTHOR"
	ErrCodeLoginRequired = "LOGIN_REQUIRED"
	ErrCodeInvalidLogin  = "INVALID_LOGIN"
	ErrCodeUsernameTaken = "USERNAME_TAKEN"
	ErrCodeDuplicateSlug = "DUPLICATE_SLUG"
)

// IsKind はerrがAppErrorであり指定の分類に一致するかを判定する。
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}

// AsAppError はエラーチェーンからAppErrorを取り出す。
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
func NewPostNotFoundError(postID string) *AppError {
	return &AppError{
		Kind:     KindNotFound,
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", postID),
		Category: "content",
		Action:   "URLを確認してください。",
	}
}

// NewGroupNotFoundError はグループ未検出エラーを生成する。
func NewGroupNotFoundError(slug string) *AppError {
	return &AppError{
		Kind:     KindNotFound,
		Code:     ErrCodeGroupNotFound,
		Message:  fmt.Sprintf("指定されたグループが見つかりません: %s", slug),
		Category: "content",
		Action:   "グループのURLを確認してください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(username string) *AppError {
	return &AppError{
		Kind:     KindNotFound,
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %s", username),
		Category: "content",
		Action:   "ユーザー名を確認してください。",
	}
}

// NewValidationError はフィールド単位のエラーを持つ入力エラーを生成する。
func NewValidationError(fields map[string][]string) *AppError {
	return &AppError{
		Kind:     KindValidation,
		Code:     ErrCodeValidation,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "エラーが表示された項目を修正してください。",
		Fields:   fields,
	}
}

// NewNotAuthorError は投稿者以外による編集操作のエラーを生成する。
func NewNotAuthorError(postID int64) *AppError {
	return &AppError{
		Kind:     KindForbidden,
		Code:     ErrCodeNotAuthor,
		Message:  fmt.Sprintf("投稿 %d を編集できるのは投稿者のみです。", postID),
		Category: "auth",
		Action:   "投稿者のアカウントでログインしてください。",
	}
}

// NewLoginRequiredError はログインが必要な操作のエラーを生成する。
func NewLoginRequiredError() *AppError {
	return &AppError{
		Kind:     KindUnauthenticated,
		Code:     ErrCodeLoginRequired,
		Message:  "この操作にはログインが必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidLoginError はユーザー名またはパスワードの不一致エラーを生成する。
func NewInvalidLoginError() *AppError {
	return &AppError{
		Kind:     KindValidation,
		Code:     ErrCodeInvalidLogin,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
		Fields:   map[string][]string{"__all__": {"ユーザー名またはパスワードが正しくありません。"}},
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError(username string) *AppError {
	return &AppError{
		Kind:     KindValidation,
		Code:     ErrCodeUsernameTaken,
		Message:  fmt.Sprintf("ユーザー名 %s は既に使われています。", username),
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
		Fields:   map[string][]string{"username": {"このユーザー名は既に使われています。"}},
	}
}

// NewDuplicateSlugError はグループのスラッグ重複エラーを生成する。
func NewDuplicateSlugError(slug string) *AppError {
	return &AppError{
		Kind:     KindValidation,
		Code:     ErrCodeDuplicateSlug,
		Message:  fmt.Sprintf("スラッグ %s のグループは既に存在します。", slug),
		Category: "validation",
		Action:   "別のスラッグを指定してください。",
		Fields:   map[string][]string{"slug": {"このスラッグは既に使われています。"}},
	}
}

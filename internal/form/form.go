// Package form はユーザー入力の束縛と検証を行う。
// 検証にはozzo-validationを使い、結果をフィールド名ごとのエラーメッセージに変換する。
package form

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/hitoshi/yatube/internal/media"
)

// 共通エラーメッセージ
const (
	MsgRequired      = "この項目は必須です。"
	MsgInvalidChoice = "正しく選択してください。選択したものは候補にありません。"
)

var (
	digitsRe   = regexp.MustCompile(`^[0-9]+$`)
	usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)
	slugRe     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// ReservedUsernames はURLの固定パスと衝突するため登録できないユーザー名。
var ReservedUsernames = []string{"auth", "follow", "group", "health", "media", "metrics", "new"}

// MsgReservedUsername は予約済みユーザー名のエラーメッセージ。
const MsgReservedUsername = "このユーザー名は使用できません。"

// notReserved はユーザー名が予約語でないことを検証する。
var notReserved = validation.By(func(value interface{}) error {
	name, _ := value.(string)
	for _, reserved := range ReservedUsernames {
		if strings.EqualFold(name, reserved) {
			return errors.New(MsgReservedUsername)
		}
	}
	return nil
})

// PostInput は投稿作成・編集フォームの入力。
type PostInput struct {
	Text       string        `json:"text"`
	Group      string        `json:"group"` // グループIDの文字列。未選択は空文字列
	Image      *media.Upload `json:"image"`
	ClearImage bool          `json:"-"`
}

// Normalize は前後の空白を除去する。
func (in *PostInput) Normalize() {
	in.Text = strings.TrimSpace(in.Text)
	in.Group = strings.TrimSpace(in.Group)
}

// Validate は入力を検証する。imageRuleには画像検証ルールを渡す。
func (in PostInput) Validate(imageRule validation.Rule) error {
	imageRules := []validation.Rule{}
	if imageRule != nil {
		imageRules = append(imageRules, imageRule)
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Text, validation.Required.Error(MsgRequired)),
		validation.Field(&in.Group, validation.Match(digitsRe).Error(MsgInvalidChoice)),
		validation.Field(&in.Image, imageRules...),
	)
}

// CommentInput はコメントフォームの入力。
type CommentInput struct {
	Text string `json:"text"`
}

// Validate は入力を検証する。
func (in CommentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Text,
			validation.Required.Error(MsgRequired),
			validation.RuneLength(0, 300).Error("300文字以下で入力してください。"),
		),
	)
}

// GroupInput はグループ作成の入力。
type GroupInput struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// Validate は入力を検証する。
func (in GroupInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title,
			validation.Required.Error(MsgRequired),
			validation.RuneLength(1, 200).Error("200文字以下で入力してください。"),
		),
		validation.Field(&in.Slug,
			validation.Required.Error(MsgRequired),
			validation.RuneLength(1, 50).Error("50文字以下で入力してください。"),
			validation.Match(slugRe).Error("スラッグには英数字、ハイフン、アンダースコアのみ使用できます。"),
		),
	)
}

// LoginInput はログインフォームの入力。
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate は入力を検証する。
func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required.Error(MsgRequired)),
		validation.Field(&in.Password, validation.Required.Error(MsgRequired)),
	)
}

// SignupInput はユーザー登録フォームの入力。
type SignupInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

// Validate は入力を検証する。
func (in SignupInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FirstName, validation.RuneLength(0, 150)),
		validation.Field(&in.LastName, validation.RuneLength(0, 150)),
		validation.Field(&in.Username,
			validation.Required.Error(MsgRequired),
			validation.RuneLength(1, 150).Error("150文字以下で入力してください。"),
			validation.Match(usernameRe).Error("ユーザー名には英数字と @/./+/-/_ のみ使用できます。"),
			notReserved,
		),
		validation.Field(&in.Email, is.Email.Error("有効なメールアドレスを入力してください。")),
		validation.Field(&in.Password1,
			validation.Required.Error(MsgRequired),
			validation.RuneLength(8, 128).Error("パスワードは8文字以上で入力してください。"),
		),
		validation.Field(&in.Password2,
			validation.Required.Error(MsgRequired),
			validation.By(func(value interface{}) error {
				if value.(string) != in.Password1 {
					return errors.New("確認用パスワードが一致しません。")
				}
				return nil
			}),
		),
	)
}

// Errors はフィールド名ごとのエラーメッセージ。
// フォーム全体に対するエラーはキー"__all__"に格納する。
type Errors map[string][]string

// Add はフィールドにメッセージを追加する。
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Get はフィールドの最初のメッセージを返す。
func (e Errors) Get(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Fields はエラーを持つフィールド名を昇順で返す。
func (e Errors) Fields() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FieldErrors はozzo-validationの検証結果をErrorsに変換する。
// 検証エラー以外（内部エラー）の場合はfalseを返す。
func FieldErrors(err error) (Errors, bool) {
	if err == nil {
		return Errors{}, true
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	out := Errors{}
	for field, fe := range verrs {
		if fe == nil {
			continue
		}
		out.Add(field, fe.Error())
	}
	return out, true
}

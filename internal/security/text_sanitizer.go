// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は投稿やコメントとして送信されたテキストからHTMLマークアップを取り除く。
// 出力はテンプレート側で改めてエスケープされるプレーンテキストとして扱う。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は送信テキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize はタグとその属性を除去したプレーンテキストを返す。
	// script/styleの中身は除去し、改行は保持する。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはゴルーチン間で共有しても安全。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はbluemondayのStrictPolicyを用いたTextSanitizerを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はHTMLを除去し、bluemondayが付与した実体参照を元の文字に戻す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

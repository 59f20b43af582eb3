// Package model はドメインモデルを定義する。
package model

import (
	"time"
	"unicode/utf8"
)

// Group は投稿を分類するスラッグ付きのグループを表す。
// slugは作成後に変更しない。
type Group struct {
	ID          int64
	Title       string
	Slug        string
	Description string
}

// Post はユーザーの投稿を表す。
// 一覧はPubDateの降順で並べる。
type Post struct {
	ID       int64
	Text     string
	PubDate  time.Time
	AuthorID int64
	GroupID  *int64
	Image    string // メディアストレージ上のキー。画像なしの場合は空文字列

	// 読み取り時にJOINで補完される関連エンティティ
	Author *User
	Group  *Group
}

// Excerpt は本文の先頭15文字を返す。ログ出力などの短い表示に使う。
func (p *Post) Excerpt() string {
	if utf8.RuneCountInString(p.Text) <= 15 {
		return p.Text
	}
	return string([]rune(p.Text)[:15])
}

// Comment は投稿へのコメントを表す。
// PostIDとAuthorIDはどちらも欠落しうる。
type Comment struct {
	ID       int64
	PostID   *int64
	AuthorID *int64
	Text     string
	Created  time.Time

	Author *User
}

// Follow はフォロー関係（UserID → AuthorID）を表す。
// ユーザー削除時は該当する参照がnilになり、行自体は残る。
type Follow struct {
	ID        int64
	UserID    *int64
	AuthorID  *int64
	CreatedAt time.Time
}

// Int64Ptr はint64値へのポインタを返す。
func Int64Ptr(v int64) *int64 {
	return &v
}

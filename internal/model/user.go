// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID           int64
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    time.Time
}

// FullName は姓名を連結した表示名を返す。未設定の場合はユーザー名を返す。
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// AuthorStats はプロフィールや投稿詳細に表示する著者の集計値。
type AuthorStats struct {
	Author         *User
	PostCount      int
	FollowerCount  int // この著者をフォローしているユーザー数
	FollowingCount int // この著者がフォローしている著者数
}

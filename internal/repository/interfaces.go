// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/yatube/internal/model"
)

// ErrDuplicate は一意制約に違反した場合に返される。
var ErrDuplicate = errors.New("duplicate key")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成し、採番したIDを設定する。
	// ユーザー名が重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 同一トランザクションでフォローの参照をNULLにし、本人のコメント、
	// 本人の投稿へのコメント、投稿、セッションを削除する。
	// 削除対象が存在しない場合はfalseを返す。
	DeleteByID(ctx context.Context, id int64) (bool, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID int64) error
	// DeleteExpired は期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// GroupRepository はグループデータの永続化インターフェース。
type GroupRepository interface {
	// Create はグループを作成し、採番したIDを設定する。
	// スラッグが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, group *model.Group) error

	// FindByID は指定IDのグループを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Group, error)

	// FindBySlug はスラッグでグループを検索する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Group, error)

	// ListAll はタイトル順に全グループを返す。
	ListAll(ctx context.Context) ([]*model.Group, error)

	// DeleteBySlug はグループを削除する。
	// 所属していた投稿のグループ参照は同一トランザクションでNULLにする。
	// 削除対象が存在しない場合はfalseを返す。
	DeleteBySlug(ctx context.Context, slug string) (bool, error)
}

// PostRepository は投稿データの永続化インターフェース。
// 一覧系メソッドはすべてpub_date降順（同時刻はID降順）で返し、
// AuthorとGroupを補完する。
type PostRepository interface {
	// Create は投稿を作成し、採番したIDと公開日時を設定する。
	Create(ctx context.Context, post *model.Post) error

	// Update は投稿の本文、グループ、画像を更新する。
	Update(ctx context.Context, post *model.Post) error

	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Post, error)

	// CountAll は全投稿数を返す。
	CountAll(ctx context.Context) (int, error)
	// ListAll は全投稿をlimit/offsetで切り出して返す。
	ListAll(ctx context.Context, limit, offset int) ([]*model.Post, error)

	// CountByGroup はグループに属する投稿数を返す。
	CountByGroup(ctx context.Context, groupID int64) (int, error)
	// ListByGroup はグループに属する投稿を返す。
	ListByGroup(ctx context.Context, groupID int64, limit, offset int) ([]*model.Post, error)

	// CountByAuthor は著者の投稿数を返す。
	CountByAuthor(ctx context.Context, authorID int64) (int, error)
	// ListByAuthor は著者の投稿を返す。
	ListByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]*model.Post, error)

	// CountFollowedBy はuserIDがフォローしている著者の投稿数を返す。
	CountFollowedBy(ctx context.Context, userID int64) (int, error)
	// ListFollowedBy はuserIDがフォローしている著者の投稿を返す。
	ListFollowedBy(ctx context.Context, userID int64, limit, offset int) ([]*model.Post, error)

	// DeleteByID は投稿とそのコメントを同一トランザクションで削除する。
	// 削除対象が存在しない場合はfalseを返す。
	DeleteByID(ctx context.Context, id int64) (bool, error)
}

// CommentRepository はコメントデータの永続化インターフェース。
type CommentRepository interface {
	// Create はコメントを作成し、採番したIDと作成日時を設定する。
	Create(ctx context.Context, comment *model.Comment) error

	// ListByPost は投稿のコメントを作成日時の降順で返す。Authorを補完する。
	ListByPost(ctx context.Context, postID int64) ([]*model.Comment, error)

	// CountByPost は投稿のコメント数を返す。
	CountByPost(ctx context.Context, postID int64) (int, error)
}

// FollowRepository はフォロー関係の永続化インターフェース。
// 作成と削除はいずれも単一の原子的な操作として実装する。
type FollowRepository interface {
	// Create は(userID, authorID)の関係が存在しない場合のみ作成する。
	// 新規作成した場合はtrueを返す。
	Create(ctx context.Context, userID, authorID int64) (bool, error)

	// Delete は(userID, authorID)の関係が存在すれば削除する。
	// 削除した場合はtrueを返す。
	Delete(ctx context.Context, userID, authorID int64) (bool, error)

	// Exists は(userID, authorID)の関係が存在するかを返す。
	Exists(ctx context.Context, userID, authorID int64) (bool, error)

	// CountFollowers はauthorIDをフォローしているユーザー数を返す。
	CountFollowers(ctx context.Context, authorID int64) (int, error)

	// CountFollowing はuserIDがフォローしている著者数を返す。
	CountFollowing(ctx context.Context, userID int64) (int, error)

	// ListFollowedAuthors はuserIDがフォローしている著者をユーザー名順に返す。
	ListFollowedAuthors(ctx context.Context, userID int64) ([]*model.User, error)
}

// Store はアプリケーションが使用する全リポジトリをまとめたもの。
// STORAGE_TYPEに応じてPostgreSQL実装またはメモリ実装で構築される。
type Store struct {
	Users    UserRepository
	Sessions SessionRepository
	Groups   GroupRepository
	Posts    PostRepository
	Comments CommentRepository
	Follows  FollowRepository

	// Ping はストレージの疎通確認を行う。
	Ping func(ctx context.Context) error
}

package repository

import "database/sql"

// NewPostgresStore はPostgreSQL実装の全リポジトリを構築する。
func NewPostgresStore(db *sql.DB) *Store {
	return &Store{
		Users:    NewPostgresUserRepo(db),
		Sessions: NewPostgresSessionRepo(db),
		Groups:   NewPostgresGroupRepo(db),
		Posts:    NewPostgresPostRepo(db),
		Comments: NewPostgresCommentRepo(db),
		Follows:  NewPostgresFollowRepo(db),
		Ping:     db.PingContext,
	}
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/hitoshi/yatube/internal/database"
	"github.com/hitoshi/yatube/internal/model"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// NewPostgresStoreが全リポジトリを初期化することを検証
func TestNewPostgresStore_Initializes(t *testing.T) {
	store := NewPostgresStore(&sql.DB{})
	if store.Users == nil || store.Sessions == nil || store.Groups == nil ||
		store.Posts == nil || store.Comments == nil || store.Follows == nil {
		t.Fatalf("store has nil repository: %+v", store)
	}
	if store.Ping == nil {
		t.Fatal("expected non-nil Ping")
	}
}

// openTestDB はマイグレーション済みのテスト用DBを返す。
// TEST_DATABASE_URLが未設定または接続できない場合はスキップする。
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL が未設定のためスキップ")
	}

	db, err := database.Open(dbURL)
	if err != nil {
		t.Fatalf("データベースへの接続に失敗: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("テスト用データベースに接続できません（スキップ）: %v", err)
	}
	if err := database.RunMigrations(dbURL); err != nil {
		db.Close()
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE follows, comments, posts, groups, sessions, users RESTART IDENTITY CASCADE`); err != nil {
		db.Close()
		t.Fatalf("クリーンアップに失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustCreateUser(t *testing.T, repo *PostgresUserRepo, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, PasswordHash: "hash"}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("ユーザー作成に失敗: %v", err)
	}
	return u
}

func TestPostgresUserRepo_CreateAndFind(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresUserRepo(db)
	ctx := context.Background()

	u := mustCreateUser(t, repo, "alice")
	if u.ID == 0 {
		t.Fatal("expected generated ID")
	}

	got, err := repo.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername error: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("FindByUsername = %+v, want ID %d", got, u.ID)
	}

	missing, err := repo.FindByID(ctx, u.ID+1000)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing user, got %+v", missing)
	}

	err = repo.Create(ctx, &model.User{Username: "alice", PasswordHash: "x"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate username error = %v, want ErrDuplicate", err)
	}
}

func TestPostgresUserRepo_DeleteByID_AppliesDeletionPolicy(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewPostgresUserRepo(db)
	posts := NewPostgresPostRepo(db)
	comments := NewPostgresCommentRepo(db)
	follows := NewPostgresFollowRepo(db)

	alice := mustCreateUser(t, users, "alice")
	bob := mustCreateUser(t, users, "bob")

	bobPost := &model.Post{Text: "bob's post", AuthorID: bob.ID}
	alicePost := &model.Post{Text: "alice's post", AuthorID: alice.ID}
	for _, p := range []*model.Post{bobPost, alicePost} {
		if err := posts.Create(ctx, p); err != nil {
			t.Fatalf("投稿作成に失敗: %v", err)
		}
	}
	// aliceの投稿へのコメントと、bobがaliceの投稿に書いたコメント
	for _, c := range []*model.Comment{
		{PostID: model.Int64Ptr(alicePost.ID), AuthorID: model.Int64Ptr(alice.ID), Text: "self"},
		{PostID: model.Int64Ptr(alicePost.ID), AuthorID: model.Int64Ptr(bob.ID), Text: "from bob"},
		{PostID: model.Int64Ptr(bobPost.ID), AuthorID: model.Int64Ptr(bob.ID), Text: "bob on bob"},
	} {
		if err := comments.Create(ctx, c); err != nil {
			t.Fatalf("コメント作成に失敗: %v", err)
		}
	}
	if _, err := follows.Create(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("フォロー作成に失敗: %v", err)
	}

	deleted, err := users.DeleteByID(ctx, bob.ID)
	if err != nil {
		t.Fatalf("DeleteByID error: %v", err)
	}
	if !deleted {
		t.Fatal("expected deleted = true")
	}

	var n int
	db.QueryRow(`SELECT count(*) FROM posts WHERE author_id = $1`, bob.ID).Scan(&n)
	if n != 0 {
		t.Errorf("bobの投稿が残存: %d", n)
	}
	db.QueryRow(`SELECT count(*) FROM comments`).Scan(&n)
	if n != 1 {
		t.Errorf("残存コメント数 = %d, want 1 (aliceの自投稿へのコメントのみ)", n)
	}
	db.QueryRow(`SELECT count(*) FROM follows WHERE user_id = $1 AND author_id IS NULL`, alice.ID).Scan(&n)
	if n != 1 {
		t.Errorf("参照がNULLになったフォロー行 = %d, want 1", n)
	}

	again, err := users.DeleteByID(ctx, bob.ID)
	if err != nil {
		t.Fatalf("second DeleteByID error: %v", err)
	}
	if again {
		t.Error("expected deleted = false for missing user")
	}
}

func TestPostgresSessionRepo_DeleteExpired(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, NewPostgresUserRepo(db), "carol")
	repo := NewPostgresSessionRepo(db)

	if _, err := db.Exec(`INSERT INTO sessions (id, user_id, expires_at) VALUES
		('expired', $1, now() - interval '1 hour'),
		('alive', $1, now() + interval '1 hour')`, u.ID); err != nil {
		t.Fatalf("セッション挿入に失敗: %v", err)
	}

	if s, _ := repo.FindByID(ctx, "expired"); s != nil {
		t.Errorf("期限切れセッションが返された: %+v", s)
	}

	n, err := repo.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired error: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if s, _ := repo.FindByID(ctx, "alive"); s == nil {
		t.Error("有効なセッションが削除された")
	}
}

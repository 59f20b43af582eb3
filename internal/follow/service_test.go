package follow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/repository"
	"github.com/hitoshi/yatube/internal/repository/memory"
)

// --- モック ---

type mockFollowRepo struct {
	repository.FollowRepository
	createFn func(ctx context.Context, userID, authorID int64) (bool, error)
}

func (m *mockFollowRepo) Create(ctx context.Context, userID, authorID int64) (bool, error) {
	return m.createFn(ctx, userID, authorID)
}

type countingMetrics struct {
	follows, unfollows int
}

func (c *countingMetrics) RecordFollowChange(action string) {
	if action == "follow" {
		c.follows++
	} else {
		c.unfollows++
	}
}

func (c *countingMetrics) RecordHTTPRequest(string, string, int, time.Duration) {}
func (c *countingMetrics) RecordPostCreated()                                   {}
func (c *countingMetrics) RecordCommentCreated()                                {}
func (c *countingMetrics) RecordPageCache(bool)                                 {}
func (c *countingMetrics) RecordSessionsCleaned(int64)                          {}

// --- ヘルパー ---

type fixture struct {
	store *repository.Store
	svc   *Service
	m     *countingMetrics
	alice *model.User
	bob   *model.User
	carol *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore().Repositories()
	f := &fixture{store: store, m: &countingMetrics{}}
	f.svc = NewService(store, f.m, 10)
	for _, name := range []string{"alice", "bob", "carol"} {
		u := &model.User{Username: name, PasswordHash: "x"}
		if err := store.Users.Create(context.Background(), u); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		switch name {
		case "alice":
			f.alice = u
		case "bob":
			f.bob = u
		case "carol":
			f.carol = u
		}
	}
	return f
}

func (f *fixture) followCount(t *testing.T) int {
	t.Helper()
	total := 0
	for _, u := range []*model.User{f.alice, f.bob, f.carol} {
		n, err := f.store.Follows.CountFollowing(context.Background(), u.ID)
		if err != nil {
			t.Fatalf("CountFollowing() error = %v", err)
		}
		total += n
	}
	return total
}

// --- テスト ---

// TestService_Follow はフォローで関係が1件だけ作成されることを検証する。
func TestService_Follow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	author, err := f.svc.Follow(ctx, f.bob, "alice")
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if author.ID != f.alice.ID {
		t.Errorf("Follow() returned %q, want alice", author.Username)
	}
	if got := f.followCount(t); got != 1 {
		t.Errorf("follow count = %d, want 1", got)
	}
	exists, _ := f.store.Follows.Exists(ctx, f.bob.ID, f.alice.ID)
	if !exists {
		t.Error("expected bob -> alice relation")
	}

	// 2回目は重複しない
	if _, err := f.svc.Follow(ctx, f.bob, "alice"); err != nil {
		t.Fatalf("second Follow() error = %v", err)
	}
	if got := f.followCount(t); got != 1 {
		t.Errorf("follow count after repeat = %d, want 1", got)
	}
	if f.m.follows != 1 {
		t.Errorf("recorded follows = %d, want 1", f.m.follows)
	}
}

// TestService_Follow_Self は自分自身へのフォローが無視されることを検証する。
func TestService_Follow_Self(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Follow(context.Background(), f.alice, "alice"); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if got := f.followCount(t); got != 0 {
		t.Errorf("follow count = %d, want 0", got)
	}
}

// TestService_Follow_Errors はエラー分類を検証する。
func TestService_Follow_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Follow(ctx, nil, "alice"); !model.IsKind(err, model.KindUnauthenticated) {
		t.Errorf("anonymous Follow() error = %v, want Unauthenticated", err)
	}
	if _, err := f.svc.Follow(ctx, f.bob, "nobody"); !model.IsKind(err, model.KindNotFound) {
		t.Errorf("Follow(nobody) error = %v, want NotFound", err)
	}
	if _, err := f.svc.Unfollow(ctx, f.bob, "nobody"); !model.IsKind(err, model.KindNotFound) {
		t.Errorf("Unfollow(nobody) error = %v, want NotFound", err)
	}
}

// TestService_Follow_RepositoryError はリポジトリエラーがラップされることを検証する。
func TestService_Follow_RepositoryError(t *testing.T) {
	f := newFixture(t)
	dbErr := errors.New("deadlock detected")
	f.store.Follows = &mockFollowRepo{createFn: func(context.Context, int64, int64) (bool, error) {
		return false, dbErr
	}}
	svc := NewService(f.store, nil, 10)

	if _, err := svc.Follow(context.Background(), f.bob, "alice"); !errors.Is(err, dbErr) {
		t.Errorf("error = %v, want wrapped %v", err, dbErr)
	}
}

// TestService_Unfollow はフォロー解除で関係が1件減り、存在しなければ何もしないことを検証する。
func TestService_Unfollow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.svc.Follow(ctx, f.bob, "alice")
	f.svc.Follow(ctx, f.bob, "carol")

	if _, err := f.svc.Unfollow(ctx, f.bob, "alice"); err != nil {
		t.Fatalf("Unfollow() error = %v", err)
	}
	if got := f.followCount(t); got != 1 {
		t.Errorf("follow count = %d, want 1", got)
	}

	if _, err := f.svc.Unfollow(ctx, f.bob, "alice"); err != nil {
		t.Fatalf("repeated Unfollow() error = %v", err)
	}
	if got := f.followCount(t); got != 1 {
		t.Errorf("follow count after repeat = %d, want 1", got)
	}
	if f.m.unfollows != 1 {
		t.Errorf("recorded unfollows = %d, want 1", f.m.unfollows)
	}
}

// TestService_Feed はフォロー中の著者の投稿だけがフィードに含まれることを検証する。
func TestService_Feed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	post := &model.Post{Text: "hello from alice", AuthorID: f.alice.ID}
	if err := f.store.Posts.Create(ctx, post); err != nil {
		t.Fatalf("failed to create post: %v", err)
	}
	f.svc.Follow(ctx, f.bob, "alice")

	feed, err := f.svc.Feed(ctx, f.bob, "")
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(feed.Items) != 1 || feed.Items[0].ID != post.ID {
		t.Errorf("follower feed = %v, want the alice post", feed.Items)
	}

	feed, err = f.svc.Feed(ctx, f.carol, "")
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(feed.Items) != 0 {
		t.Errorf("non-follower feed has %d posts, want 0", len(feed.Items))
	}

	if _, err := f.svc.Feed(ctx, nil, ""); !model.IsKind(err, model.KindUnauthenticated) {
		t.Errorf("anonymous Feed() error = %v, want Unauthenticated", err)
	}
}

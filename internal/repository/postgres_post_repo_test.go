package repository

import (
	"context"
	"testing"

	"github.com/hitoshi/yatube/internal/model"
)

func TestPostgresPostRepo_ImplementsInterface(t *testing.T) {
	var _ PostRepository = (*PostgresPostRepo)(nil)
	var _ GroupRepository = (*PostgresGroupRepo)(nil)
	var _ CommentRepository = (*PostgresCommentRepo)(nil)
	var _ FollowRepository = (*PostgresFollowRepo)(nil)
}

func TestPostgresPostRepo_ListingsAreNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewPostgresUserRepo(db)
	groups := NewPostgresGroupRepo(db)
	posts := NewPostgresPostRepo(db)

	author := mustCreateUser(t, users, "writer")
	g := &model.Group{Title: "Cats", Slug: "cats"}
	if err := groups.Create(ctx, g); err != nil {
		t.Fatalf("グループ作成に失敗: %v", err)
	}

	for i := 0; i < 3; i++ {
		p := &model.Post{Text: "post", AuthorID: author.ID}
		if i > 0 {
			p.GroupID = model.Int64Ptr(g.ID)
		}
		if err := posts.Create(ctx, p); err != nil {
			t.Fatalf("投稿作成に失敗: %v", err)
		}
	}

	all, err := posts.ListAll(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListAll error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID < all[i].ID {
			t.Errorf("投稿が新しい順に並んでいない: %d before %d", all[i-1].ID, all[i].ID)
		}
	}
	if all[0].Author == nil || all[0].Author.Username != "writer" {
		t.Errorf("Author not joined: %+v", all[0].Author)
	}
	if all[0].Group == nil || all[0].Group.Slug != "cats" {
		t.Errorf("Group not joined: %+v", all[0].Group)
	}

	n, err := posts.CountByGroup(ctx, g.ID)
	if err != nil || n != 2 {
		t.Errorf("CountByGroup = %d, %v; want 2", n, err)
	}
	page2, err := posts.ListByGroup(ctx, g.ID, 1, 1)
	if err != nil || len(page2) != 1 {
		t.Errorf("ListByGroup(limit=1, offset=1) = %d items, %v", len(page2), err)
	}
}

func TestPostgresGroupRepo_DeleteBySlug_DetachesPosts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	author := mustCreateUser(t, NewPostgresUserRepo(db), "writer")
	groups := NewPostgresGroupRepo(db)
	posts := NewPostgresPostRepo(db)

	g := &model.Group{Title: "Dogs", Slug: "dogs"}
	if err := groups.Create(ctx, g); err != nil {
		t.Fatalf("グループ作成に失敗: %v", err)
	}
	p := &model.Post{Text: "woof", AuthorID: author.ID, GroupID: model.Int64Ptr(g.ID)}
	if err := posts.Create(ctx, p); err != nil {
		t.Fatalf("投稿作成に失敗: %v", err)
	}

	deleted, err := groups.DeleteBySlug(ctx, "dogs")
	if err != nil || !deleted {
		t.Fatalf("DeleteBySlug = %v, %v", deleted, err)
	}

	got, err := posts.FindByID(ctx, p.ID)
	if err != nil || got == nil {
		t.Fatalf("投稿が削除された: %v", err)
	}
	if got.GroupID != nil || got.Group != nil {
		t.Errorf("group reference = %v, want nil", got.GroupID)
	}
}

func TestPostgresFollowRepo_CreateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewPostgresUserRepo(db)
	follows := NewPostgresFollowRepo(db)
	posts := NewPostgresPostRepo(db)

	reader := mustCreateUser(t, users, "reader")
	author := mustCreateUser(t, users, "author")

	created, err := follows.Create(ctx, reader.ID, author.ID)
	if err != nil || !created {
		t.Fatalf("first Create = %v, %v", created, err)
	}
	created, err = follows.Create(ctx, reader.ID, author.ID)
	if err != nil || created {
		t.Fatalf("second Create = %v, %v; want false, nil", created, err)
	}

	if n, _ := follows.CountFollowing(ctx, reader.ID); n != 1 {
		t.Errorf("CountFollowing = %d, want 1", n)
	}
	if n, _ := follows.CountFollowers(ctx, author.ID); n != 1 {
		t.Errorf("CountFollowers = %d, want 1", n)
	}

	if err := posts.Create(ctx, &model.Post{Text: "news", AuthorID: author.ID}); err != nil {
		t.Fatalf("投稿作成に失敗: %v", err)
	}
	feed, err := posts.ListFollowedBy(ctx, reader.ID, 10, 0)
	if err != nil || len(feed) != 1 {
		t.Errorf("ListFollowedBy = %d items, %v; want 1", len(feed), err)
	}

	removed, err := follows.Delete(ctx, reader.ID, author.ID)
	if err != nil || !removed {
		t.Fatalf("Delete = %v, %v", removed, err)
	}
	removed, err = follows.Delete(ctx, reader.ID, author.ID)
	if err != nil || removed {
		t.Errorf("second Delete = %v, %v; want false, nil", removed, err)
	}
}

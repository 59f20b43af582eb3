package group

import (
	"context"
	"testing"

	"github.com/hitoshi/yatube/internal/form"
	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/repository/memory"
)

// TestService_Create はグループ作成と入力検証を検証する。
func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewStore().Repositories().Groups)

	g, err := svc.Create(ctx, form.GroupInput{Title: " Cats ", Slug: "cats", Description: "about cats"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if g.ID == 0 || g.Title != "Cats" {
		t.Errorf("created group = %+v", g)
	}

	t.Run("スラッグ重複", func(t *testing.T) {
		_, err := svc.Create(ctx, form.GroupInput{Title: "Other", Slug: "cats"})
		appErr, ok := model.AsAppError(err)
		if !ok || appErr.Code != model.ErrCodeDuplicateSlug {
			t.Fatalf("error = %v, want DUPLICATE_SLUG", err)
		}
		if len(appErr.Fields["slug"]) == 0 {
			t.Error("duplicate slug should be reported on the slug field")
		}
	})

	t.Run("タイトル未入力", func(t *testing.T) {
		_, err := svc.Create(ctx, form.GroupInput{Slug: "dogs"})
		appErr, ok := model.AsAppError(err)
		if !ok || appErr.Kind != model.KindValidation {
			t.Fatalf("error = %v, want validation error", err)
		}
		if len(appErr.Fields["title"]) == 0 {
			t.Errorf("Fields = %v, want title error", appErr.Fields)
		}
	})
}

// TestService_Delete はグループ削除で投稿が残りグループ参照が空になることを検証する。
func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore().Repositories()
	svc := NewService(store.Groups)

	g, err := svc.Create(ctx, form.GroupInput{Title: "Cats", Slug: "cats"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	author := &model.User{Username: "alice", PasswordHash: "x"}
	if err := store.Users.Create(ctx, author); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	post := &model.Post{Text: "meow", AuthorID: author.ID, GroupID: model.Int64Ptr(g.ID)}
	if err := store.Posts.Create(ctx, post); err != nil {
		t.Fatalf("failed to create post: %v", err)
	}

	if err := svc.Delete(ctx, "cats"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := store.Posts.FindByID(ctx, post.ID)
	if err != nil || got == nil {
		t.Fatalf("post should survive group deletion: %v", err)
	}
	if got.GroupID != nil {
		t.Errorf("GroupID = %v, want nil", *got.GroupID)
	}

	if err := svc.Delete(ctx, "cats"); !model.IsKind(err, model.KindNotFound) {
		t.Errorf("second Delete() error = %v, want NotFound", err)
	}
}

// TestService_List は全グループが返ることを検証する。
func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewStore().Repositories().Groups)
	for _, slug := range []string{"b", "a"} {
		if _, err := svc.Create(ctx, form.GroupInput{Title: slug, Slug: slug}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	groups, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(groups) != 2 || groups[0].Title != "a" {
		t.Errorf("List() = %v", groups)
	}
}

package memory

import (
	"context"
	"sort"

	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/repository"
)

// CommentRepo はメモリ上のコメントリポジトリ。
type CommentRepo struct {
	s *Store
}

// Create はコメントを作成し、採番したIDと作成日時を設定する。
func (r *CommentRepo) Create(_ context.Context, comment *model.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comment.ID = r.s.id()
	comment.Created = r.s.timestamp()
	c := *comment
	c.Author = nil
	r.s.comments[comment.ID] = &c
	return nil
}

// ListByPost は投稿のコメントを作成日時の降順で返す。
func (r *CommentRepo) ListByPost(_ context.Context, postID int64) ([]*model.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Comment
	for _, c := range r.s.comments {
		if c.PostID == nil || *c.PostID != postID {
			continue
		}
		cc := *c
		if c.AuthorID != nil {
			cc.Author = copyUser(r.s.users[*c.AuthorID])
		}
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// CountByPost は投稿のコメント数を返す。
func (r *CommentRepo) CountByPost(_ context.Context, postID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, c := range r.s.comments {
		if c.PostID != nil && *c.PostID == postID {
			n++
		}
	}
	return n, nil
}

var _ repository.CommentRepository = (*CommentRepo)(nil)

// FollowRepo はメモリ上のフォローリポジトリ。
// 存在確認と挿入は同一ロック内で行う。
type FollowRepo struct {
	s *Store
}

func (r *FollowRepo) find(userID, authorID int64) (int64, bool) {
	for id, f := range r.s.follows {
		if f.UserID != nil && f.AuthorID != nil && *f.UserID == userID && *f.AuthorID == authorID {
			return id, true
		}
	}
	return 0, false
}

// Create は(userID, authorID)の関係が存在しない場合のみ作成する。
func (r *FollowRepo) Create(_ context.Context, userID, authorID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if userID == authorID {
		return false, nil
	}
	if _, ok := r.find(userID, authorID); ok {
		return false, nil
	}
	id := r.s.id()
	r.s.follows[id] = &model.Follow{
		ID:        id,
		UserID:    model.Int64Ptr(userID),
		AuthorID:  model.Int64Ptr(authorID),
		CreatedAt: r.s.timestamp(),
	}
	return true, nil
}

// Delete は(userID, authorID)の関係が存在すれば削除する。
func (r *FollowRepo) Delete(_ context.Context, userID, authorID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.find(userID, authorID)
	if !ok {
		return false, nil
	}
	delete(r.s.follows, id)
	return true, nil
}

// Exists は(userID, authorID)の関係が存在するかを返す。
func (r *FollowRepo) Exists(_ context.Context, userID, authorID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.find(userID, authorID)
	return ok, nil
}

// CountFollowers はauthorIDをフォローしているユーザー数を返す。
func (r *FollowRepo) CountFollowers(_ context.Context, authorID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, f := range r.s.follows {
		if f.AuthorID != nil && *f.AuthorID == authorID && f.UserID != nil {
			n++
		}
	}
	return n, nil
}

// CountFollowing はuserIDがフォローしている著者数を返す。
func (r *FollowRepo) CountFollowing(_ context.Context, userID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.followedAuthorIDs(userID)), nil
}

// ListFollowedAuthors はuserIDがフォローしている著者をユーザー名順に返す。
func (r *FollowRepo) ListFollowedAuthors(_ context.Context, userID int64) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var authors []*model.User
	for id := range r.s.followedAuthorIDs(userID) {
		if u, ok := r.s.users[id]; ok {
			authors = append(authors, copyUser(u))
		}
	}
	sort.Slice(authors, func(i, j int) bool { return authors[i].Username < authors[j].Username })
	return authors, nil
}

var _ repository.FollowRepository = (*FollowRepo)(nil)

package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/repository"
)

// GroupRepo はメモリ上のグループリポジトリ。
type GroupRepo struct {
	s *Store
}

// Create はグループを作成し、採番したIDを設定する。
func (r *GroupRepo) Create(_ context.Context, group *model.Group) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, g := range r.s.groups {
		if g.Slug == group.Slug {
			return fmt.Errorf("failed to create group %q: %w", group.Slug, repository.ErrDuplicate)
		}
	}
	group.ID = r.s.id()
	c := *group
	r.s.groups[group.ID] = &c
	return nil
}

// FindByID は指定IDのグループを取得する。見つからない場合はnilを返す。
func (r *GroupRepo) FindByID(_ context.Context, id int64) (*model.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[id]
	if !ok {
		return nil, nil
	}
	c := *g
	return &c, nil
}

// FindBySlug はスラッグでグループを検索する。見つからない場合はnilを返す。
func (r *GroupRepo) FindBySlug(_ context.Context, slug string) (*model.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, g := range r.s.groups {
		if g.Slug == slug {
			c := *g
			return &c, nil
		}
	}
	return nil, nil
}

// ListAll はタイトル順に全グループを返す。
func (r *GroupRepo) ListAll(_ context.Context) ([]*model.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	groups := make([]*model.Group, 0, len(r.s.groups))
	for _, g := range r.s.groups {
		c := *g
		groups = append(groups, &c)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Title != groups[j].Title {
			return groups[i].Title < groups[j].Title
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}

// DeleteBySlug はグループを削除し、所属投稿のグループ参照をnilにする。
func (r *GroupRepo) DeleteBySlug(_ context.Context, slug string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, g := range r.s.groups {
		if g.Slug != slug {
			continue
		}
		for _, p := range r.s.posts {
			if p.GroupID != nil && *p.GroupID == id {
				p.GroupID = nil
			}
		}
		delete(r.s.groups, id)
		return true, nil
	}
	return false, nil
}

var _ repository.GroupRepository = (*GroupRepo)(nil)

// PostRepo はメモリ上の投稿リポジトリ。
type PostRepo struct {
	s *Store
}

// Create は投稿を作成し、採番したIDと公開日時を設定する。
func (r *PostRepo) Create(_ context.Context, post *model.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[post.AuthorID]; !ok {
		return fmt.Errorf("failed to create post: author %d does not exist", post.AuthorID)
	}
	post.ID = r.s.id()
	post.PubDate = r.s.timestamp()
	c := *post
	c.Author, c.Group = nil, nil
	r.s.posts[post.ID] = &c
	return nil
}

// Update は投稿の本文、グループ、画像を更新する。
func (r *PostRepo) Update(_ context.Context, post *model.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[post.ID]
	if !ok {
		return fmt.Errorf("failed to update post: post %d does not exist", post.ID)
	}
	p.Text = post.Text
	p.GroupID = nil
	if post.GroupID != nil {
		p.GroupID = model.Int64Ptr(*post.GroupID)
	}
	p.Image = post.Image
	return nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostRepo) FindByID(_ context.Context, id int64) (*model.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, nil
	}
	return r.s.hydratePost(p), nil
}

func all(*model.Post) bool { return true }

func byGroup(groupID int64) func(*model.Post) bool {
	return func(p *model.Post) bool { return p.GroupID != nil && *p.GroupID == groupID }
}

func byAuthor(authorID int64) func(*model.Post) bool {
	return func(p *model.Post) bool { return p.AuthorID == authorID }
}

func (r *PostRepo) count(match func(*model.Post) bool) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.selectPosts(match))
}

func (r *PostRepo) list(match func(*model.Post) bool, limit, offset int) []*model.Post {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.page(r.s.selectPosts(match), limit, offset)
}

// CountAll は全投稿数を返す。
func (r *PostRepo) CountAll(_ context.Context) (int, error) {
	return r.count(all), nil
}

// ListAll は全投稿をlimit/offsetで切り出して返す。
func (r *PostRepo) ListAll(_ context.Context, limit, offset int) ([]*model.Post, error) {
	return r.list(all, limit, offset), nil
}

// CountByGroup はグループに属する投稿数を返す。
func (r *PostRepo) CountByGroup(_ context.Context, groupID int64) (int, error) {
	return r.count(byGroup(groupID)), nil
}

// ListByGroup はグループに属する投稿を返す。
func (r *PostRepo) ListByGroup(_ context.Context, groupID int64, limit, offset int) ([]*model.Post, error) {
	return r.list(byGroup(groupID), limit, offset), nil
}

// CountByAuthor は著者の投稿数を返す。
func (r *PostRepo) CountByAuthor(_ context.Context, authorID int64) (int, error) {
	return r.count(byAuthor(authorID)), nil
}

// ListByAuthor は著者の投稿を返す。
func (r *PostRepo) ListByAuthor(_ context.Context, authorID int64, limit, offset int) ([]*model.Post, error) {
	return r.list(byAuthor(authorID), limit, offset), nil
}

// CountFollowedBy はuserIDがフォローしている著者の投稿数を返す。
func (r *PostRepo) CountFollowedBy(_ context.Context, userID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := r.s.followedAuthorIDs(userID)
	return len(r.s.selectPosts(func(p *model.Post) bool { return ids[p.AuthorID] })), nil
}

// ListFollowedBy はuserIDがフォローしている著者の投稿を返す。
func (r *PostRepo) ListFollowedBy(_ context.Context, userID int64, limit, offset int) ([]*model.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := r.s.followedAuthorIDs(userID)
	return r.s.page(r.s.selectPosts(func(p *model.Post) bool { return ids[p.AuthorID] }), limit, offset), nil
}

// DeleteByID は投稿とそのコメントを削除する。
func (r *PostRepo) DeleteByID(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[id]; !ok {
		return false, nil
	}
	for cid, c := range r.s.comments {
		if c.PostID != nil && *c.PostID == id {
			delete(r.s.comments, cid)
		}
	}
	delete(r.s.posts, id)
	return true, nil
}

var _ repository.PostRepository = (*PostRepo)(nil)

// Package memory はプロセス内メモリに保持するリポジトリ実装を提供する。
// 開発環境とテストで使用し、全エンティティを1つのミューテックスで保護する。
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/repository"
)

// Store は全エンティティを保持するインメモリストア。
type Store struct {
	mu sync.Mutex

	users    map[int64]*model.User
	sessions map[string]*model.Session
	groups   map[int64]*model.Group
	posts    map[int64]*model.Post
	comments map[int64]*model.Comment
	follows  map[int64]*model.Follow

	nextID int64
	lastTS time.Time
	now    func() time.Time
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{
		users:    make(map[int64]*model.User),
		sessions: make(map[string]*model.Session),
		groups:   make(map[int64]*model.Group),
		posts:    make(map[int64]*model.Post),
		comments: make(map[int64]*model.Comment),
		follows:  make(map[int64]*model.Follow),
		now:      time.Now,
	}
}

// Repositories はStoreを共有する全リポジトリを返す。
func (s *Store) Repositories() *repository.Store {
	return &repository.Store{
		Users:    &UserRepo{s: s},
		Sessions: &SessionRepo{s: s},
		Groups:   &GroupRepo{s: s},
		Posts:    &PostRepo{s: s},
		Comments: &CommentRepo{s: s},
		Follows:  &FollowRepo{s: s},
		Ping:     func(context.Context) error { return nil },
	}
}

// id は次の採番値を返す。呼び出し側でロックを保持していること。
func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// timestamp は狭義単調増加する現在時刻を返す。呼び出し側でロックを保持していること。
func (s *Store) timestamp() time.Time {
	ts := s.now()
	if !ts.After(s.lastTS) {
		ts = s.lastTS.Add(time.Nanosecond)
	}
	s.lastTS = ts
	return ts
}

func copyUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// hydratePost は投稿のコピーにAuthorとGroupを補完する。
func (s *Store) hydratePost(p *model.Post) *model.Post {
	c := *p
	c.Author = copyUser(s.users[p.AuthorID])
	if p.GroupID != nil {
		gid := *p.GroupID
		c.GroupID = &gid
		if g, ok := s.groups[gid]; ok {
			gc := *g
			c.Group = &gc
		}
	}
	return &c
}

// selectPosts は条件に一致する投稿を新しい順に返す。
func (s *Store) selectPosts(match func(*model.Post) bool) []*model.Post {
	var out []*model.Post
	for _, p := range s.posts {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PubDate.Equal(out[j].PubDate) {
			return out[i].PubDate.After(out[j].PubDate)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) page(posts []*model.Post, limit, offset int) []*model.Post {
	if offset >= len(posts) {
		return nil
	}
	end := offset + limit
	if end > len(posts) {
		end = len(posts)
	}
	result := make([]*model.Post, 0, end-offset)
	for _, p := range posts[offset:end] {
		result = append(result, s.hydratePost(p))
	}
	return result
}

// followedAuthorIDs はuserIDがフォローしている著者IDの集合を返す。
func (s *Store) followedAuthorIDs(userID int64) map[int64]bool {
	ids := make(map[int64]bool)
	for _, f := range s.follows {
		if f.UserID != nil && f.AuthorID != nil && *f.UserID == userID {
			ids[*f.AuthorID] = true
		}
	}
	return ids
}

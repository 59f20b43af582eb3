package memory

import (
	"context"
	"fmt"

	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/repository"
)

// UserRepo はメモリ上のユーザーリポジトリ。
type UserRepo struct {
	s *Store
}

// Create はユーザーを作成し、採番したIDを設定する。
func (r *UserRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == user.Username {
			return fmt.Errorf("failed to create user %q: %w", user.Username, repository.ErrDuplicate)
		}
	}
	user.ID = r.s.id()
	user.CreatedAt = r.s.timestamp()
	r.s.users[user.ID] = copyUser(user)
	return nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *UserRepo) FindByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return copyUser(r.s.users[id]), nil
}

// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
func (r *UserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

// DeleteByID はユーザーと従属データを削除し、フォローの参照をnilにする。
func (r *UserRepo) DeleteByID(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return false, nil
	}

	for _, f := range r.s.follows {
		if f.UserID != nil && *f.UserID == id {
			f.UserID = nil
		}
		if f.AuthorID != nil && *f.AuthorID == id {
			f.AuthorID = nil
		}
	}

	owned := make(map[int64]bool)
	for pid, p := range r.s.posts {
		if p.AuthorID == id {
			owned[pid] = true
		}
	}
	for cid, c := range r.s.comments {
		byUser := c.AuthorID != nil && *c.AuthorID == id
		onOwned := c.PostID != nil && owned[*c.PostID]
		if byUser || onOwned {
			delete(r.s.comments, cid)
		}
	}
	for pid := range owned {
		delete(r.s.posts, pid)
	}
	for sid, sess := range r.s.sessions {
		if sess.UserID == id {
			delete(r.s.sessions, sid)
		}
	}
	delete(r.s.users, id)
	return true, nil
}

var _ repository.UserRepository = (*UserRepo)(nil)

// SessionRepo はメモリ上のセッションリポジトリ。
type SessionRepo struct {
	s *Store
}

// Create はセッションを作成する。
func (r *SessionRepo) Create(_ context.Context, session *model.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *session
	r.s.sessions[session.ID] = &c
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *SessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok || !sess.ExpiresAt.After(r.s.now()) {
		return nil, nil
	}
	c := *sess
	return &c, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *SessionRepo) DeleteByID(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, id)
	return nil
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *SessionRepo) DeleteByUserID(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, sess := range r.s.sessions {
		if sess.UserID == userID {
			delete(r.s.sessions, id)
		}
	}
	return nil
}

// DeleteExpired は期限切れのセッションを削除し、削除件数を返す。
func (r *SessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	var n int64
	for id, sess := range r.s.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

var _ repository.SessionRepository = (*SessionRepo)(nil)

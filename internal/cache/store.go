// Package cache はレンダリング済みページの短期キャッシュを提供する。
package cache

import (
	"context"
	"sync"
	"time"
)

// Entry はキャッシュされたHTTPレスポンスを表す。
type Entry struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Store はページキャッシュの保存先インターフェース。
type Store interface {
	// Get はキーに対応する有効なエントリを返す。存在しない場合はfalseを返す。
	Get(ctx context.Context, key string) (*Entry, bool, error)
	// Set はエントリをttlの間保存する。
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
	// Clear は全エントリを削除する。
	Clear(ctx context.Context) error
}

type memoryItem struct {
	entry     Entry
	expiresAt time.Time
}

// DefaultSweepInterval は期限切れエントリを一括削除する間隔の既定値。
const DefaultSweepInterval = time.Minute

// MemoryStore はプロセス内のマップに保持するStore実装。
// 期限切れのエントリはSetの際にsweepInterval毎にまとめて削除する。
type MemoryStore struct {
	mu            sync.Mutex
	items         map[string]memoryItem
	now           func() time.Time
	sweepInterval time.Duration
	lastSweep     time.Time
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:         make(map[string]memoryItem),
		now:           time.Now,
		sweepInterval: DefaultSweepInterval,
		lastSweep:     time.Now(),
	}
}

// Get はキーに対応する有効なエントリを返す。期限切れのエントリはその場で削除する。
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(item.expiresAt) {
		delete(s.items, key)
		return nil, false, nil
	}
	e := item.entry
	return &e, true, nil
}

// Set はエントリをttlの間保存する。
func (s *MemoryStore) Set(_ context.Context, key string, entry *Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.sweepInterval {
		s.sweepLocked(now)
	}

	e := *entry
	e.Body = append([]byte(nil), entry.Body...)
	s.items[key] = memoryItem{entry: e, expiresAt: now.Add(ttl)}
	return nil
}

// Sweep は期限切れのエントリをすべて削除し、削除件数を返す。
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

// sweepLocked は呼び出し側でロックを保持していること。
func (s *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for key, item := range s.items {
		if !now.Before(item.expiresAt) {
			delete(s.items, key)
			removed++
		}
	}
	s.lastSweep = now
	return removed
}

// Clear は全エントリを削除する。
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]memoryItem)
	return nil
}

// Len は保持しているエントリ数を返す。期限切れのエントリも含む。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

var _ Store = (*MemoryStore)(nil)

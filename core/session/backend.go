package session

import (
	"context"
	"sync"
	"time"

	"CineBot/model"
)

// Backend 会话持久化后端，不负责并发控制，由 Store 串行化同一用户的读写
type Backend interface {
	// Load 不存在时返回 nil, nil
	Load(ctx context.Context, userID int64) (*model.UserSession, error)
	Save(ctx context.Context, s *model.UserSession) error
	Delete(ctx context.Context, userID int64) error
	// Expired 返回 UpdatedAt 早于 before 的用户
	Expired(ctx context.Context, before time.Time) ([]int64, error)
}

// MemoryBackend 进程内会话后端
type MemoryBackend struct {
	mu       sync.RWMutex
	sessions map[int64]*model.UserSession
}

// NewMemoryBackend 创建内存后端
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[int64]*model.UserSession)}
}

func (b *MemoryBackend) Load(ctx context.Context, userID int64) (*model.UserSession, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sessions[userID].Clone(), nil
}

func (b *MemoryBackend) Save(ctx context.Context, s *model.UserSession) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[s.UserID] = s.Clone()
	return nil
}

func (b *MemoryBackend) Delete(ctx context.Context, userID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, userID)
	return nil
}

func (b *MemoryBackend) Expired(ctx context.Context, before time.Time) ([]int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var ids []int64
	for id, s := range b.sessions {
		if s.UpdatedAt.Before(before) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

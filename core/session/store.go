package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"CineBot/logger"
	"CineBot/model"

	"github.com/google/uuid"
)

// ErrNoSession 用户没有进行中的会话
var ErrNoSession = errors.New("no active session")

// ErrStaleSession 操作针对的会话已被替换
var ErrStaleSession = errors.New("session has been replaced")

type userLock struct {
	mu   sync.Mutex
	refs int
}

type boundCancel struct {
	sessionID string
	cancel    context.CancelFunc
}

// Store 会话服务，同一用户的读改写串行执行，不同用户互不影响
type Store struct {
	backend Backend
	ttl     time.Duration

	locksMu sync.Mutex
	locks   map[int64]*userLock

	cancelMu sync.Mutex
	cancels  map[int64]boundCancel

	now func() time.Time
}

// NewStore 创建会话服务
func NewStore(backend Backend, ttl time.Duration) *Store {
	return &Store{
		backend: backend,
		ttl:     ttl,
		locks:   make(map[int64]*userLock),
		cancels: make(map[int64]boundCancel),
		now:     time.Now,
	}
}

// lock 获取用户锁，返回解锁函数；锁在没有持有者时回收
func (s *Store) lock(userID int64) func() {
	s.locksMu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.locksMu.Unlock()
	}
}

// Get 返回会话副本，不存在时返回 ErrNoSession
func (s *Store) Get(ctx context.Context, userID int64) (*model.UserSession, error) {
	unlock := s.lock(userID)
	defer unlock()

	sess, err := s.backend.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("加载会话失败: %w", err)
	}
	if sess == nil {
		return nil, ErrNoSession
	}
	return sess, nil
}

// Create 创建新会话并替换旧会话，旧会话上的下载会被取消
func (s *Store) Create(ctx context.Context, sess *model.UserSession) (*model.UserSession, error) {
	unlock := s.lock(sess.UserID)
	defer unlock()

	s.cancelBound(sess.UserID)

	created := sess.Clone()
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if created.State == "" {
		created.State = model.StateAwaitingQuality
	}
	now := s.now()
	created.CreatedAt = now
	created.UpdatedAt = now

	if err := s.backend.Save(ctx, created); err != nil {
		return nil, fmt.Errorf("保存会话失败: %w", err)
	}
	return created.Clone(), nil
}

// Mutate 在用户锁内修改会话，fn 返回错误时不落盘
func (s *Store) Mutate(ctx context.Context, userID int64, fn func(*model.UserSession) error) (*model.UserSession, error) {
	unlock := s.lock(userID)
	defer unlock()

	sess, err := s.backend.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("加载会话失败: %w", err)
	}
	if sess == nil {
		return nil, ErrNoSession
	}

	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.UpdatedAt = s.now()

	if err := s.backend.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("保存会话失败: %w", err)
	}
	return sess.Clone(), nil
}

// Delete 删除会话并取消进行中的下载
func (s *Store) Delete(ctx context.Context, userID int64) error {
	unlock := s.lock(userID)
	defer unlock()

	s.cancelBound(userID)
	return s.backend.Delete(ctx, userID)
}

// DeleteIf 仅当当前会话仍是 sessionID 时删除，避免误删新会话
func (s *Store) DeleteIf(ctx context.Context, userID int64, sessionID string) (bool, error) {
	unlock := s.lock(userID)
	defer unlock()

	sess, err := s.backend.Load(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("加载会话失败: %w", err)
	}
	if sess == nil || sess.ID != sessionID {
		return false, nil
	}

	s.cancelMu.Lock()
	if b, ok := s.cancels[userID]; ok && b.sessionID == sessionID {
		delete(s.cancels, userID)
	}
	s.cancelMu.Unlock()

	if err := s.backend.Delete(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

// BindCancel 把下载的取消函数绑定到会话；会话已被替换时立即取消并返回 ErrStaleSession
func (s *Store) BindCancel(ctx context.Context, userID int64, sessionID string, cancel context.CancelFunc) error {
	unlock := s.lock(userID)
	defer unlock()

	sess, err := s.backend.Load(ctx, userID)
	if err != nil {
		cancel()
		return fmt.Errorf("加载会话失败: %w", err)
	}
	if sess == nil || sess.ID != sessionID {
		cancel()
		return ErrStaleSession
	}

	s.cancelMu.Lock()
	s.cancels[userID] = boundCancel{sessionID: sessionID, cancel: cancel}
	s.cancelMu.Unlock()
	return nil
}

// Downloading 判断用户是否有进行中的下载
func (s *Store) Downloading(userID int64) bool {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	_, ok := s.cancels[userID]
	return ok
}

func (s *Store) cancelBound(userID int64) {
	s.cancelMu.Lock()
	b, ok := s.cancels[userID]
	delete(s.cancels, userID)
	s.cancelMu.Unlock()
	if ok {
		b.cancel()
	}
}

// Sweep 清理空闲超过 ttl 的会话，返回清理数量
func (s *Store) Sweep(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl)
	ids, err := s.backend.Expired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("查询过期会话失败: %w", err)
	}

	removed := 0
	for _, id := range ids {
		ok, err := s.deleteIdle(ctx, id, cutoff)
		if err != nil {
			logger.Warn("清理会话失败", logger.Int64("userId", id), logger.ErrorField(err))
			continue
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// deleteIdle 在用户锁内复查：正在下载或期间被更新过的会话保留
func (s *Store) deleteIdle(ctx context.Context, userID int64, cutoff time.Time) (bool, error) {
	unlock := s.lock(userID)
	defer unlock()

	if s.Downloading(userID) {
		return false, nil
	}
	sess, err := s.backend.Load(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("加载会话失败: %w", err)
	}
	if sess == nil || !sess.UpdatedAt.Before(cutoff) {
		return false, nil
	}
	if err := s.backend.Delete(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

// Janitor 定期清理过期会话，直到 ctx 结束
func (s *Store) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				logger.Warn("会话清理失败", logger.ErrorField(err))
				continue
			}
			if n > 0 {
				logger.Info("已清理过期会话", logger.Int("count", n))
			}
		}
	}
}

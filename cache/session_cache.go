package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"CineBot/model"

	"github.com/go-redis/redis/v8"
)

const (
	sessionKey        = "session:%d" // String: UserSession JSON
	sessionKeyPattern = "session:*"
	scanBatch         = 100
)

// SessionCache 基于 Redis 的会话后端，key 带 TTL，重启后会话仍然可用
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache 创建会话缓存
func NewSessionCache(client *redis.Client, ttl time.Duration) *SessionCache {
	if client == nil {
		client = RedisClient
	}
	return &SessionCache{client: client, ttl: ttl}
}

// Load 获取会话，不存在时返回 nil
func (c *SessionCache) Load(ctx context.Context, userID int64) (*model.UserSession, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := c.client.Get(ctx, fmt.Sprintf(sessionKey, userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var s model.UserSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// Save 保存会话并刷新过期时间
func (c *SessionCache) Save(ctx context.Context, s *model.UserSession) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return c.client.Set(ctx, fmt.Sprintf(sessionKey, s.UserID), data, c.ttl).Err()
}

// Delete 删除会话
func (c *SessionCache) Delete(ctx context.Context, userID int64) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return c.client.Del(ctx, fmt.Sprintf(sessionKey, userID)).Err()
}

// Expired 扫描所有会话，返回 UpdatedAt 早于 before 的用户
func (c *SessionCache) Expired(ctx context.Context, before time.Time) ([]int64, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	var ids []int64
	iter := c.client.Scan(ctx, 0, sessionKeyPattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		userID, err := strconv.ParseInt(strings.TrimPrefix(iter.Val(), "session:"), 10, 64)
		if err != nil {
			continue
		}
		s, err := c.Load(ctx, userID)
		if err != nil || s == nil {
			continue
		}
		if s.UpdatedAt.Before(before) {
			ids = append(ids, userID)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Count 当前会话数量
func (c *SessionCache) Count(ctx context.Context) (int, error) {
	if c.client == nil {
		return 0, fmt.Errorf("Redis client not initialized")
	}

	n := 0
	iter := c.client.Scan(ctx, 0, sessionKeyPattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n, iter.Err()
}

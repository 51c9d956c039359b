package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"CineBot/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
)

const tokenKey = "AUTH_TOKEN"

// TokenStore 持久化平台 guest token
// token 写回 dotenv 文件，下次启动和其他进程都能复用
type TokenStore struct {
	path string

	mu    sync.RWMutex
	token string
}

// NewTokenStore 创建 token 存储，文件中已有的 token 优先于 initial
func NewTokenStore(path, initial string) (*TokenStore, error) {
	s := &TokenStore{path: path, token: initial}
	if err := s.reload(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("读取 token 文件失败: %w", err)
	}
	return s, nil
}

// Token 返回当前缓存的 token，可能为空
func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SaveToken 更新 token 并写回文件
func (s *TokenStore) SaveToken(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("创建 token 目录失败: %w", err)
	}

	env, err := godotenv.Read(s.path)
	if err != nil {
		env = map[string]string{}
	}
	env[tokenKey] = token
	if err := godotenv.Write(env, s.path); err != nil {
		return fmt.Errorf("写入 token 文件失败: %w", err)
	}
	return nil
}

func (s *TokenStore) reload() error {
	if s.path == "" {
		return nil
	}
	if _, err := os.Stat(s.path); err != nil {
		return err
	}
	env, err := godotenv.Read(s.path)
	if err != nil {
		return err
	}
	if token, ok := env[tokenKey]; ok && token != "" {
		s.mu.Lock()
		s.token = token
		s.mu.Unlock()
	}
	return nil
}

// Watch 监听 token 文件的外部修改并重新加载，直到 ctx 结束
func (s *TokenStore) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建 token 目录失败: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	defer watcher.Close()

	// 监听目录而不是文件，编辑器常用 rename 方式替换文件
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("监听目录失败: %w", err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := s.reload(); err != nil {
				logger.Warn("重新加载 token 文件失败", logger.String("path", s.path), logger.ErrorField(err))
				continue
			}
			logger.Info("token 文件已重新加载", logger.String("path", s.path))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("token 文件监听出错", logger.ErrorField(err))
		}
	}
}

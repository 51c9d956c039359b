package storage

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"time"

	"CineBot/config"
	"CineBot/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const archivePrefix = "archive/"

// ArtifactStore 把超出上传限制的视频归档到 MinIO，并生成临时下载链接
type ArtifactStore struct {
	client  *minio.Client
	bucket  string
	linkTTL time.Duration
}

// ArchivedObject 已归档的对象
type ArchivedObject struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// NewArtifactStore 连接 MinIO 并确保存储桶存在
func NewArtifactStore(ctx context.Context, cfg *config.Config) (*ArtifactStore, error) {
	logger.Info("正在连接 MinIO 服务器",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// 检查存储桶是否存在
	exists, err := client.BucketExists(checkCtx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(checkCtx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("创建存储桶失败: %w", err)
		}
		logger.Info("成功创建存储桶", logger.String("bucket", cfg.MinioBucket))
	}

	ttl := cfg.MinioLinkTTL
	// 预签名链接最长 7 天
	if ttl <= 0 || ttl > 7*24*time.Hour {
		ttl = 7 * 24 * time.Hour
	}
	return &ArtifactStore{client: client, bucket: cfg.MinioBucket, linkTTL: ttl}, nil
}

// ObjectName 归档对象名
func ObjectName(name string) string {
	return archivePrefix + name
}

// Archive 上传文件并返回预签名下载链接
func (s *ArtifactStore) Archive(ctx context.Context, path, name string) (string, error) {
	objectName := ObjectName(name)
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "video/x-matroska"
	}

	info, err := s.client.FPutObject(ctx, s.bucket, objectName, path, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传归档失败: %w", err)
	}
	logger.Info("产物已归档",
		logger.String("object", objectName),
		logger.Int64("size", info.Size))

	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	link, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, s.linkTTL, params)
	if err != nil {
		return "", fmt.Errorf("生成下载链接失败: %w", err)
	}
	return link.String(), nil
}

// List 列出所有归档对象
func (s *ArtifactStore) List(ctx context.Context) ([]ArchivedObject, error) {
	var objects []ArchivedObject
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: archivePrefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		objects = append(objects, ArchivedObject{Name: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	return objects, nil
}

// Remove 删除归档对象
func (s *ArtifactStore) Remove(ctx context.Context, objectName string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}

// Prune 删除早于 before 的归档，返回删除数量
func (s *ArtifactStore) Prune(ctx context.Context, before time.Time) (int, error) {
	objects, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, obj := range objects {
		if !obj.LastModified.Before(before) {
			continue
		}
		if err := s.Remove(ctx, obj.Name); err != nil {
			return removed, fmt.Errorf("删除 %s 失败: %w", obj.Name, err)
		}
		removed++
	}
	return removed, nil
}

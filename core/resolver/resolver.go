package resolver

import (
	"context"
	"fmt"

	"CineBot/core/mpd"
	"CineBot/logger"
	"CineBot/metrics"
	"CineBot/model"
)

// PlatformAPI 平台接口，由 jiocine.Client 实现
type PlatformAPI interface {
	GetContentDetails(ctx context.Context, contentID string) (*model.ContentMetadata, error)
	FetchPlaybackData(ctx context.Context, contentID, token string) ([]model.PlaybackManifestRef, error)
	FetchGuestToken(ctx context.Context) (string, error)
}

// ManifestSource 获取 manifest 原文
type ManifestSource interface {
	GetMPD(ctx context.Context, manifestURL, token string) ([]byte, error)
}

// TokenSaver 持久化刷新后的 token
type TokenSaver interface {
	SaveToken(token string) error
}

// Resolution 解析结果
type Resolution struct {
	Metadata model.ContentMetadata
	Manifest model.PlaybackManifestRef
	// Token 实际取到播放数据的 token
	Token string
}

// Resolver 把内容 ID 解析为元数据和 DASH manifest
type Resolver struct {
	api   PlatformAPI
	saver TokenSaver
}

// NewResolver 创建解析器，saver 可以为 nil
func NewResolver(api PlatformAPI, saver TokenSaver) *Resolver {
	return &Resolver{api: api, saver: saver}
}

// Resolve 解析内容；播放数据失败时最多刷新一次 token 并重试一次
func (r *Resolver) Resolve(ctx context.Context, contentID, cachedToken string) (*Resolution, error) {
	meta, err := r.api.GetContentDetails(ctx, contentID)
	if err != nil {
		return nil, newError(ReasonNotFound, contentID, err)
	}

	token := cachedToken
	refs, err := r.api.FetchPlaybackData(ctx, contentID, token)
	if err != nil {
		logger.Info("播放数据获取失败，刷新 guest token",
			logger.String("contentId", contentID),
			logger.ErrorField(err))

		token, err = r.api.FetchGuestToken(ctx)
		if err != nil {
			return nil, newError(ReasonAuthFailed, contentID, err)
		}
		metrics.TokenRefreshes.Inc()
		if r.saver != nil {
			if err := r.saver.SaveToken(token); err != nil {
				logger.Warn("保存 token 失败", logger.ErrorField(err))
			}
		}

		refs, err = r.api.FetchPlaybackData(ctx, contentID, token)
		if err != nil {
			return nil, newError(ReasonNoPlayback, contentID, err)
		}
	}

	for _, ref := range refs {
		if ref.StreamType == model.StreamTypeDash && ref.URL != "" {
			return &Resolution{Metadata: *meta, Manifest: ref, Token: token}, nil
		}
	}
	return nil, newError(ReasonNoDashManifest, contentID, nil)
}

// LoadManifest 下载并解析 manifest
func LoadManifest(ctx context.Context, src ManifestSource, res *Resolution) (*mpd.Manifest, error) {
	data, err := src.GetMPD(ctx, res.Manifest.URL, res.Token)
	if err != nil {
		return nil, fmt.Errorf("下载 manifest 失败: %w", err)
	}
	return mpd.Parse(data)
}

package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"CineBot/logger"
	"CineBot/model"
)

// DefaultMaxUploadSize 2000 MiB
const DefaultMaxUploadSize int64 = 2000 * 1024 * 1024

// OutcomeKind 下载结果类型
type OutcomeKind string

const (
	OutcomeDelivered OutcomeKind = "delivered"
	OutcomeLocalOnly OutcomeKind = "local_only"
)

// Outcome 一次成功编排的结果
type Outcome struct {
	Kind       OutcomeKind
	Path       string // LocalOnly 时为本地产物路径
	Size       int64
	ArchiveURL string // 配置了归档时的下载链接
}

// Deliverer 把产物发送给用户
type Deliverer interface {
	Deliver(ctx context.Context, path, caption string, progress ProgressFunc) error
}

// Archiver 把超出上传限制的产物转存到对象存储，返回可分享的链接
type Archiver interface {
	Archive(ctx context.Context, path, objectName string) (string, error)
}

// Options 编排参数
type Options struct {
	MaxUploadSize int64
	Timeout       time.Duration
	Archiver      Archiver // 可以为 nil
}

// Orchestrator 执行下载并根据大小决定交付方式
type Orchestrator struct {
	pipeline      Pipeline
	maxUploadSize int64
	timeout       time.Duration
	archiver      Archiver
}

// NewOrchestrator 创建编排器
func NewOrchestrator(pipeline Pipeline, opts Options) *Orchestrator {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = DefaultMaxUploadSize
	}
	return &Orchestrator{
		pipeline:      pipeline,
		maxUploadSize: opts.MaxUploadSize,
		timeout:       opts.Timeout,
		archiver:      opts.Archiver,
	}
}

// Caption 视频说明文字
func Caption(s *model.UserSession) string {
	height := 0
	if s.SelectedQuality != nil {
		height = s.SelectedQuality.Height
	}
	return fmt.Sprintf("🎬 %s\n🎥 %dp\n🔊 Audio: %s", s.Content.SafeTitle(), height, strings.Join(s.SelectedLanguages(), ", "))
}

// NewRequest 由会话生成下载请求，选择不完整时返回错误
func NewRequest(s *model.UserSession) (Request, error) {
	if s.SelectedQuality == nil || len(s.SelectedAudioIDs) == 0 || s.Manifest.URL == "" {
		return Request{}, &DownloadError{Reason: ReasonIncompleteSelection}
	}
	formats := make([]string, 0, len(s.SelectedAudioIDs))
	for _, id := range s.SelectedAudioIDs {
		track, ok := s.Track(id)
		if !ok {
			return Request{}, &DownloadError{Reason: ReasonIncompleteSelection}
		}
		if track.FormatID == "" {
			track.FormatID = track.ID
		}
		formats = append(formats, track.FormatID)
	}
	return Request{
		ManifestURL:    s.Manifest.URL,
		Quality:        *s.SelectedQuality,
		AudioTrackIDs:  append([]string(nil), s.SelectedAudioIDs...),
		AudioFormatIDs: formats,
		AuthToken:      s.AuthToken,
		Title:          s.Content.SafeTitle(),
	}, nil
}

// Run 下载、检查大小并交付
func (o *Orchestrator) Run(ctx context.Context, s *model.UserSession, d Deliverer, progress ProgressFunc) (*Outcome, error) {
	req, err := NewRequest(s)
	if err != nil {
		return nil, err
	}

	dlCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		dlCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	path, err := o.pipeline.Download(dlCtx, req, progress)
	if err != nil {
		return nil, &DownloadError{Reason: ReasonPipelineFailed, Err: err}
	}
	if path == "" {
		return nil, &DownloadError{Reason: ReasonPipelineFailed, Err: fmt.Errorf("empty artifact path")}
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, &DownloadError{Reason: ReasonPipelineFailed, Err: err}
	}

	size := info.Size()
	logger.Info("下载完成",
		logger.String("sessionId", s.ID),
		logger.String("path", path),
		logger.Int64("size", size),
		logger.Duration("elapsed", time.Since(start)))

	if size > o.maxUploadSize {
		outcome := &Outcome{Kind: OutcomeLocalOnly, Path: path, Size: size}
		if o.archiver != nil {
			objectName := fmt.Sprintf("%s/%s", s.ContentID, filepath.Base(path))
			url, err := o.archiver.Archive(ctx, path, objectName)
			if err != nil {
				logger.Warn("归档产物失败", logger.String("path", path), logger.ErrorField(err))
			} else {
				outcome.ArchiveURL = url
			}
		}
		return outcome, nil
	}

	err = d.Deliver(ctx, path, Caption(s), progress)
	// 无论发送成败都不保留产物
	removeArtifact(path)
	if err != nil {
		return nil, &DownloadError{Reason: ReasonDeliveryFailed, Err: err}
	}
	return &Outcome{Kind: OutcomeDelivered, Size: size}, nil
}

// removeArtifact 删除产物，工作目录为空时一并删除
func removeArtifact(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("清理产物失败", logger.String("path", path), logger.ErrorField(err))
	}
	_ = os.Remove(filepath.Dir(path))
}

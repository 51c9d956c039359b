package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"CineBot/core/download"
	"CineBot/core/mpd"
	"CineBot/core/progress"
	"CineBot/core/resolver"
	"CineBot/core/selection"
	"CineBot/core/session"
	"CineBot/logger"
	"CineBot/metrics"
	"CineBot/model"
	"CineBot/repository"
)

// ContentResolver 内容解析
type ContentResolver interface {
	Resolve(ctx context.Context, contentID, cachedToken string) (*resolver.Resolution, error)
}

// Runner 下载编排
type Runner interface {
	Run(ctx context.Context, s *model.UserSession, d download.Deliverer, progress download.ProgressFunc) (*download.Outcome, error)
}

// TokenSource 当前缓存的平台 token
type TokenSource interface {
	Token() string
}

// Options Manager 依赖
type Options struct {
	Resolver         ContentResolver
	Manifests        resolver.ManifestSource
	Runner           Runner
	Store            *session.Store
	Tokens           TokenSource
	History          repository.DownloadRepository // 可以为 nil
	DomainMarker     string
	ProgressInterval time.Duration
	HistoryLimit     int
}

// Manager 对话流程管理器，把聊天输入转换为解析、选择和下载
type Manager struct {
	resolver         ContentResolver
	manifests        resolver.ManifestSource
	runner           Runner
	store            *session.Store
	tokens           TokenSource
	history          repository.DownloadRepository
	domainMarker     string
	progressInterval time.Duration
	historyLimit     int

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager 创建对话管理器
func NewManager(opts Options) *Manager {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		resolver:         opts.Resolver,
		manifests:        opts.Manifests,
		runner:           opts.Runner,
		store:            opts.Store,
		tokens:           opts.Tokens,
		history:          opts.History,
		domainMarker:     opts.DomainMarker,
		progressInterval: opts.ProgressInterval,
		historyLimit:     opts.HistoryLimit,
		baseCtx:          ctx,
		stop:             cancel,
	}
}

// Store 会话服务
func (m *Manager) Store() *session.Store {
	return m.store
}

// edit 修改消息，失败只记录日志
func edit(ctx context.Context, c Conversation, text string, menu *selection.Menu) {
	if err := c.Edit(ctx, text, menu); err != nil {
		logger.Debug("修改消息失败", logger.ErrorField(err))
	}
}

func answer(ctx context.Context, a Answer, text string, alert bool) {
	if a == nil {
		return
	}
	if err := a(ctx, text, alert); err != nil {
		logger.Debug("回应按钮失败", logger.ErrorField(err))
	}
}

// HandleStart 欢迎信息
func (m *Manager) HandleStart(ctx context.Context, c Conversation) {
	metrics.Commands.WithLabelValues("start").Inc()
	if _, err := c.Reply(ctx, msgWelcome); err != nil {
		logger.Debug("发送消息失败", logger.ErrorField(err))
	}
}

// HandleDownload 处理 /dl：解析链接，获取清晰度和音轨，发出清晰度菜单
func (m *Manager) HandleDownload(ctx context.Context, req Request, rawURL string, c Conversation) {
	metrics.Commands.WithLabelValues("dl").Inc()

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		_, _ = c.Reply(ctx, msgUsage)
		return
	}

	status, err := c.Reply(ctx, msgProcessing)
	if err != nil {
		logger.Warn("发送消息失败", logger.Int64("userId", req.UserID), logger.ErrorField(err))
		return
	}

	ref, err := resolver.ParseContentURL(rawURL, m.domainMarker)
	if err != nil {
		edit(ctx, status, msgInvalidURL, nil)
		return
	}

	res, err := m.resolver.Resolve(ctx, ref.ID, m.tokens.Token())
	if err != nil {
		metrics.Resolutions.WithLabelValues("failed").Inc()
		logger.Warn("解析内容失败",
			logger.Int64("userId", req.UserID),
			logger.String("contentId", ref.ID),
			logger.ErrorField(err))

		var rerr *resolver.ResolveError
		if errors.As(err, &rerr) {
			edit(ctx, status, "❌ "+rerr.UserMessage(), nil)
		} else {
			edit(ctx, status, msgInternalError, nil)
		}
		return
	}

	manifest, err := resolver.LoadManifest(ctx, m.manifests, res)
	if err != nil {
		metrics.Resolutions.WithLabelValues("bad_manifest").Inc()
		logger.Warn("读取 manifest 失败", logger.String("contentId", ref.ID), logger.ErrorField(err))
		if errors.Is(err, mpd.ErrMalformedManifest) {
			edit(ctx, status, msgManifestFailed+" (malformed manifest)", nil)
		} else {
			edit(ctx, status, msgManifestFailed, nil)
		}
		return
	}
	if len(manifest.Qualities) == 0 {
		metrics.Resolutions.WithLabelValues("no_qualities").Inc()
		edit(ctx, status, msgNoQualities, nil)
		return
	}
	metrics.Resolutions.WithLabelValues("ok").Inc()

	s, err := m.store.Create(ctx, &model.UserSession{
		UserID:      req.UserID,
		ChatID:      req.ChatID,
		State:       model.StateAwaitingQuality,
		ContentID:   ref.ID,
		Content:     res.Metadata,
		Manifest:    res.Manifest,
		Qualities:   manifest.Qualities,
		AudioTracks: manifest.AudioTracks,
		AuthToken:   res.Token,
	})
	if err != nil {
		logger.Error("创建会话失败", logger.Int64("userId", req.UserID), logger.ErrorField(err))
		edit(ctx, status, msgInternalError, nil)
		return
	}

	logger.Info("会话已创建",
		logger.Int64("userId", req.UserID),
		logger.String("sessionId", s.ID),
		logger.String("contentId", s.ContentID),
		logger.Int("qualities", len(s.Qualities)),
		logger.Int("audioTracks", len(s.AudioTracks)))

	menu := selection.QualityMenu(s)
	edit(ctx, status, menu.Text, menu)
}

// HandleCallback 处理按钮点击
func (m *Manager) HandleCallback(ctx context.Context, req Request, data string, c Conversation, a Answer) {
	action, err := selection.Decode(data)
	if err != nil {
		answer(ctx, a, msgUnknownAction, true)
		return
	}

	var menu *selection.Menu
	s, err := m.store.Mutate(ctx, req.UserID, func(s *model.UserSession) error {
		var err error
		switch act := action.(type) {
		case selection.QualityAction:
			menu, err = selection.SelectQuality(s, act.Height, act.Bitrate)
		case selection.ToggleAudioAction:
			menu, err = selection.ToggleAudio(s, act.TrackID)
		case selection.ConfirmAction:
			err = selection.Confirm(s)
		}
		return err
	})

	var verr *selection.ValidationError
	switch {
	case errors.Is(err, session.ErrNoSession):
		answer(ctx, a, msgSessionExpired, true)
		return
	case errors.As(err, &verr):
		metrics.SelectionRejections.WithLabelValues(string(verr.Reason)).Inc()
		answer(ctx, a, verr.Alert(), true)
		return
	case err != nil:
		logger.Error("更新会话失败", logger.Int64("userId", req.UserID), logger.ErrorField(err))
		answer(ctx, a, msgInternalError, true)
		return
	}

	if _, ok := action.(selection.ConfirmAction); !ok {
		edit(ctx, c, menu.Text, menu)
		answer(ctx, a, "", false)
		return
	}

	answer(ctx, a, msgStartingDownload, false)
	m.startDownload(ctx, s, c)
}

// startDownload 在后台执行下载，下载与会话绑定，会话被替换或 /cancel 时取消
func (m *Manager) startDownload(ctx context.Context, s *model.UserSession, c Conversation) {
	status, err := c.Reply(ctx, msgStartingDownload)
	if err != nil {
		logger.Warn("发送消息失败", logger.Int64("userId", s.UserID), logger.ErrorField(err))
		status = c
	}

	dlCtx, cancel := context.WithCancel(m.baseCtx)
	if err := m.store.BindCancel(ctx, s.UserID, s.ID, cancel); err != nil {
		logger.Info("会话已被替换，放弃下载", logger.String("sessionId", s.ID), logger.ErrorField(err))
		edit(ctx, status, msgCancelled, nil)
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		m.runDownload(dlCtx, s, status)
	}()
}

func (m *Manager) runDownload(ctx context.Context, s *model.UserSession, status Conversation) {
	metrics.ActiveDownloads.Inc()
	defer metrics.ActiveDownloads.Dec()
	start := time.Now()

	edit(ctx, status, msgDownloading, nil)

	sink := func(text string) error {
		return status.Edit(ctx, text, nil)
	}
	downloadReporter := progress.NewReporter(msgDownloadTitle, m.progressInterval, sink)
	uploadReporter := progress.NewReporter(msgUploadTitle, m.progressInterval, sink)
	onProgress := func(stage download.Stage, current, total int64) {
		if stage == download.StageUpload {
			uploadReporter.Report(current, total)
			return
		}
		downloadReporter.Report(current, total)
	}

	outcome, err := m.runner.Run(ctx, s, &deliverer{status: status}, onProgress)
	metrics.DownloadDuration.Observe(time.Since(start).Seconds())

	record := &model.DownloadRecord{
		SessionID: s.ID,
		UserID:    s.UserID,
		ContentID: s.ContentID,
		Title:     s.Content.Title,
		AudioIDs:  model.StringList(s.SelectedAudioIDs),
		Languages: model.StringList(s.SelectedLanguages()),
	}
	if s.SelectedQuality != nil {
		record.Quality = s.SelectedQuality.Height
	}

	// 消息编辑不受下载取消影响
	finishCtx, finishCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer finishCancel()

	switch {
	case err != nil && errors.Is(err, context.Canceled):
		record.Outcome = model.DownloadOutcomeCancelled
		logger.Info("下载已取消", logger.String("sessionId", s.ID))
		edit(finishCtx, status, msgCancelled, nil)
	case err != nil:
		record.Outcome = model.DownloadOutcomeFailed
		var derr *download.DownloadError
		if errors.As(err, &derr) {
			record.Reason = string(derr.Reason)
		}
		logger.Error("下载失败", logger.String("sessionId", s.ID), logger.ErrorField(err))
		edit(finishCtx, status, msgFailed, nil)
	case outcome.Kind == download.OutcomeLocalOnly:
		record.Outcome = model.DownloadOutcomeLocalOnly
		record.SizeBytes = outcome.Size
		record.FilePath = outcome.Path
		record.ArchiveURL = outcome.ArchiveURL
		text := fmt.Sprintf(msgTooLarge, progress.FormatSize(outcome.Size), outcome.Path)
		if outcome.ArchiveURL != "" {
			text += fmt.Sprintf(msgArchived, outcome.ArchiveURL)
		}
		edit(finishCtx, status, text, nil)
	default:
		record.Outcome = model.DownloadOutcomeDelivered
		record.SizeBytes = outcome.Size
		edit(finishCtx, status, msgDone, nil)
	}

	metrics.Downloads.WithLabelValues(record.Outcome).Inc()
	if record.SizeBytes > 0 {
		metrics.ArtifactBytes.Observe(float64(record.SizeBytes))
	}
	m.saveHistory(finishCtx, record)

	if _, err := m.store.DeleteIf(finishCtx, s.UserID, s.ID); err != nil {
		logger.Warn("清理会话失败", logger.String("sessionId", s.ID), logger.ErrorField(err))
	}
}

func (m *Manager) saveHistory(ctx context.Context, record *model.DownloadRecord) {
	if m.history == nil {
		return
	}
	if err := m.history.Create(ctx, record); err != nil {
		logger.Warn("保存下载记录失败", logger.String("sessionId", record.SessionID), logger.ErrorField(err))
	}
}

// HandleCancel 结束当前会话，进行中的下载会被取消
func (m *Manager) HandleCancel(ctx context.Context, req Request, c Conversation) {
	metrics.Commands.WithLabelValues("cancel").Inc()

	text := msgCancelDone
	if _, err := m.store.Get(ctx, req.UserID); errors.Is(err, session.ErrNoSession) {
		text = msgNothingToCancel
	} else if err := m.store.Delete(ctx, req.UserID); err != nil {
		logger.Warn("删除会话失败", logger.Int64("userId", req.UserID), logger.ErrorField(err))
		text = msgInternalError
	}
	_, _ = c.Reply(ctx, text)
}

// HandleHistory 列出最近的下载
func (m *Manager) HandleHistory(ctx context.Context, req Request, c Conversation) {
	metrics.Commands.WithLabelValues("history").Inc()

	if m.history == nil {
		_, _ = c.Reply(ctx, msgHistoryDisabled)
		return
	}
	records, err := m.history.ListByUser(ctx, req.UserID, m.historyLimit)
	if err != nil {
		logger.Warn("查询下载记录失败", logger.Int64("userId", req.UserID), logger.ErrorField(err))
		_, _ = c.Reply(ctx, msgInternalError)
		return
	}
	if len(records) == 0 {
		_, _ = c.Reply(ctx, msgHistoryEmpty)
		return
	}

	var b strings.Builder
	b.WriteString(msgHistoryHeader)
	for _, r := range records {
		fmt.Fprintf(&b, "\n%s %s %dp [%s] %s",
			r.CreatedAt.Format("2006-01-02 15:04"), r.Title, r.Quality,
			strings.Join(r.Languages, ", "), r.Outcome)
	}
	_, _ = c.Reply(ctx, b.String())
}

// Shutdown 取消所有进行中的下载并等待退出
func (m *Manager) Shutdown() {
	m.stop()
	m.wg.Wait()
}

// Wait 等待后台下载结束
func (m *Manager) Wait() {
	m.wg.Wait()
}

// deliverer 通过聊天消息上传产物
type deliverer struct {
	status Conversation
}

func (d *deliverer) Deliver(ctx context.Context, path, caption string, onProgress download.ProgressFunc) error {
	edit(ctx, d.status, msgUploading, nil)
	return d.status.SendVideo(ctx, path, caption, func(current, total int64) {
		if onProgress != nil {
			onProgress(download.StageUpload, current, total)
		}
	})
}

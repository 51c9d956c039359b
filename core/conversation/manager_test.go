package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"CineBot/core/download"
	"CineBot/core/resolver"
	"CineBot/core/selection"
	"CineBot/core/session"
	"CineBot/model"
)

const scenarioManifest = `<?xml version="1.0"?>
<MPD>
  <Period>
    <AdaptationSet mimeType="video/mp4">
      <Representation id="v1" bandwidth="3000000" height="720"/>
      <Representation id="v2" bandwidth="6000000" height="1080"/>
    </AdaptationSet>
    <AdaptationSet id="a1" mimeType="audio/mp4" lang="en">
      <Representation id="a1r" bandwidth="128000"/>
    </AdaptationSet>
    <AdaptationSet id="a2" mimeType="audio/mp4" lang="hi">
      <Representation id="a2r" bandwidth="128000"/>
    </AdaptationSet>
  </Period>
</MPD>`

// chat 记录所有消息修改，Reply 返回共享同一日志的新消息
type chat struct {
	mu     *sync.Mutex
	log    *[]string
	menus  *[]*selection.Menu
	videos *[]string
}

func newChat() *chat {
	return &chat{mu: &sync.Mutex{}, log: &[]string{}, menus: &[]*selection.Menu{}, videos: &[]string{}}
}

func (c *chat) Edit(ctx context.Context, text string, menu *selection.Menu) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.log = append(*c.log, text)
	*c.menus = append(*c.menus, menu)
	return nil
}

func (c *chat) Reply(ctx context.Context, text string) (Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.log = append(*c.log, text)
	return c, nil
}

func (c *chat) SendVideo(ctx context.Context, path, caption string, progress func(current, total int64)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.videos = append(*c.videos, caption)
	return nil
}

func (c *chat) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return (*c.log)[len(*c.log)-1]
}

func (c *chat) lastMenu() *selection.Menu {
	c.mu.Lock()
	defer c.mu.Unlock()
	return (*c.menus)[len(*c.menus)-1]
}

type fakeResolver struct {
	err error
}

func (f *fakeResolver) Resolve(ctx context.Context, contentID, token string) (*resolver.Resolution, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &resolver.Resolution{
		Metadata: model.ContentMetadata{ID: contentID, Title: "Night Shift"},
		Manifest: model.PlaybackManifestRef{StreamType: model.StreamTypeDash, URL: "https://cdn/x.mpd"},
		Token:    "tok",
	}, nil
}

type fakeManifests struct {
	data string
}

func (f *fakeManifests) GetMPD(ctx context.Context, url, token string) ([]byte, error) {
	return []byte(f.data), nil
}

type fakeRunner struct {
	mu      sync.Mutex
	calls   []*model.UserSession
	outcome *download.Outcome
	err     error
	block   bool
}

func (f *fakeRunner) Run(ctx context.Context, s *model.UserSession, d download.Deliverer, progress download.ProgressFunc) (*download.Outcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, &download.DownloadError{Reason: download.ReasonPipelineFailed, Err: ctx.Err()}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.outcome.Kind == download.OutcomeDelivered {
		if err := d.Deliver(ctx, "/tmp/x.mkv", download.Caption(s), progress); err != nil {
			return nil, err
		}
	}
	return f.outcome, nil
}

type staticToken string

func (t staticToken) Token() string { return string(t) }

type fakeHistory struct {
	mu      sync.Mutex
	records []*model.DownloadRecord
}

func (h *fakeHistory) Create(ctx context.Context, r *model.DownloadRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *fakeHistory) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.DownloadRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.records, nil
}

func (h *fakeHistory) CountByOutcome(ctx context.Context) (map[string]int64, error) {
	return nil, nil
}

func newTestManager(runner *fakeRunner, history *fakeHistory) *Manager {
	opts := Options{
		Resolver:     &fakeResolver{},
		Manifests:    &fakeManifests{data: scenarioManifest},
		Runner:       runner,
		Store:        session.NewStore(session.NewMemoryBackend(), time.Hour),
		Tokens:       staticToken(""),
		DomainMarker: "platform.example",
	}
	if history != nil {
		opts.History = history
	}
	return NewManager(opts)
}

func press(t *testing.T, m *Manager, c *chat, data string) (string, bool) {
	t.Helper()
	var text string
	var alert bool
	m.HandleCallback(context.Background(), Request{UserID: 7, ChatID: 70}, data, c,
		func(ctx context.Context, s string, a bool) error {
			text, alert = s, a
			return nil
		})
	return text, alert
}

func TestEndToEndScenario(t *testing.T) {
	runner := &fakeRunner{outcome: &download.Outcome{Kind: download.OutcomeDelivered, Size: 10}}
	history := &fakeHistory{}
	m := newTestManager(runner, history)
	c := newChat()
	ctx := context.Background()

	m.HandleDownload(ctx, Request{UserID: 7, ChatID: 70}, "https://platform.example/movies/x/123456", c)

	menu := c.lastMenu()
	if menu == nil || len(menu.Rows) != 2 {
		t.Fatalf("quality menu=%+v, log=%v", menu, *c.log)
	}
	if menu.Rows[0][0].Data != "quality_1080_6.0" || menu.Rows[1][0].Data != "quality_720_3.0" {
		t.Fatalf("quality buttons=%+v", menu.Rows)
	}

	press(t, m, c, "quality_1080_6.0")
	press(t, m, c, "audio_a1")
	press(t, m, c, "audio_a2")
	if got := c.lastMenu().Rows[2][0].Text; got != "Start Download (2 Audio Tracks)" {
		t.Fatalf("confirm button=%q", got)
	}
	press(t, m, c, "done")
	m.Wait()

	if len(runner.calls) != 1 {
		t.Fatalf("runner calls=%d", len(runner.calls))
	}
	s := runner.calls[0]
	if s.SelectedQuality == nil || s.SelectedQuality.Height != 1080 {
		t.Fatalf("quality=%+v", s.SelectedQuality)
	}
	if strings.Join(s.SelectedAudioIDs, ",") != "a1,a2" {
		t.Fatalf("audio=%v", s.SelectedAudioIDs)
	}
	if s.ContentID != "123456" || s.AuthToken != "tok" {
		t.Fatalf("session=%+v", s)
	}

	if c.last() != msgDone {
		t.Fatalf("last message=%q", c.last())
	}
	if len(*c.videos) != 1 || (*c.videos)[0] != "🎬 Night.Shift\n🎥 1080p\n🔊 Audio: English, Hindi" {
		t.Fatalf("videos=%v", *c.videos)
	}
	if len(history.records) != 1 || history.records[0].Outcome != model.DownloadOutcomeDelivered {
		t.Fatalf("history=%+v", history.records)
	}
	if _, err := m.Store().Get(ctx, 7); !errors.Is(err, session.ErrNoSession) {
		t.Fatal("session should be removed after download")
	}
}

func TestConfirmWithoutAudioAlerts(t *testing.T) {
	runner := &fakeRunner{outcome: &download.Outcome{Kind: download.OutcomeDelivered}}
	m := newTestManager(runner, nil)
	c := newChat()

	m.HandleDownload(context.Background(), Request{UserID: 7}, "https://platform.example/movies/x/1", c)
	press(t, m, c, "quality_720_3.0")
	before := len(*c.log)

	text, alert := press(t, m, c, "done")
	if !alert || text != "Please select at least one audio track!" {
		t.Fatalf("answer=%q alert=%v", text, alert)
	}
	if len(*c.log) != before {
		t.Fatal("menu must stay untouched on validation error")
	}
	if len(runner.calls) != 0 {
		t.Fatal("runner must not be invoked")
	}
}

func TestCallbackWithoutSession(t *testing.T) {
	m := newTestManager(&fakeRunner{}, nil)
	text, alert := press(t, m, newChat(), "audio_a1")
	if !alert || text != msgSessionExpired {
		t.Fatalf("answer=%q alert=%v", text, alert)
	}
}

func TestInvalidURL(t *testing.T) {
	m := newTestManager(&fakeRunner{}, nil)
	c := newChat()
	m.HandleDownload(context.Background(), Request{UserID: 7}, "https://other.example/movies/x/1", c)
	if c.last() != msgInvalidURL {
		t.Fatalf("last=%q", c.last())
	}

	m.HandleDownload(context.Background(), Request{UserID: 7}, "", c)
	if c.last() != msgUsage {
		t.Fatalf("last=%q", c.last())
	}
}

func TestResolveErrorMessage(t *testing.T) {
	m := newTestManager(&fakeRunner{}, nil)
	m.resolver = &fakeResolver{err: &resolver.ResolveError{Reason: resolver.ReasonNoDashManifest, ContentID: "1"}}
	c := newChat()

	m.HandleDownload(context.Background(), Request{UserID: 7}, "https://platform.example/movies/x/1", c)
	if !strings.Contains(c.last(), "No DASH manifest") {
		t.Fatalf("last=%q", c.last())
	}
}

func TestDownloadFailureIsGeneric(t *testing.T) {
	runner := &fakeRunner{err: &download.DownloadError{Reason: download.ReasonPipelineFailed, Err: errors.New("secret stderr")}}
	m := newTestManager(runner, nil)
	c := newChat()

	m.HandleDownload(context.Background(), Request{UserID: 7}, "https://platform.example/movies/x/1", c)
	press(t, m, c, "quality_720_3.0")
	press(t, m, c, "audio_a1")
	press(t, m, c, "done")
	m.Wait()

	if c.last() != msgFailed {
		t.Fatalf("last=%q, cause must not leak", c.last())
	}
}

func TestCancelStopsDownload(t *testing.T) {
	runner := &fakeRunner{block: true}
	history := &fakeHistory{}
	m := newTestManager(runner, history)
	c := newChat()
	ctx := context.Background()

	m.HandleDownload(ctx, Request{UserID: 7}, "https://platform.example/movies/x/1", c)
	press(t, m, c, "quality_720_3.0")
	press(t, m, c, "audio_a2")
	press(t, m, c, "done")

	m.HandleCancel(ctx, Request{UserID: 7}, c)
	m.Wait()

	if len(history.records) != 1 || history.records[0].Outcome != model.DownloadOutcomeCancelled {
		t.Fatalf("history=%+v", history.records)
	}

	m.HandleCancel(ctx, Request{UserID: 7}, c)
	if c.last() != msgNothingToCancel {
		t.Fatalf("last=%q", c.last())
	}
}

func TestLocalOnlyOutcome(t *testing.T) {
	runner := &fakeRunner{outcome: &download.Outcome{
		Kind: download.OutcomeLocalOnly, Path: "/data/x.mkv", Size: 3 << 30, ArchiveURL: "https://minio/x",
	}}
	m := newTestManager(runner, nil)
	c := newChat()

	m.HandleDownload(context.Background(), Request{UserID: 7}, "https://platform.example/movies/x/1", c)
	press(t, m, c, "quality_1080_6.0")
	press(t, m, c, "audio_a1")
	press(t, m, c, "done")
	m.Wait()

	last := c.last()
	for _, want := range []string{"too large", "/data/x.mkv", "3.00 GB", "https://minio/x"} {
		if !strings.Contains(last, want) {
			t.Fatalf("last=%q missing %q", last, want)
		}
	}
}

func TestHistory(t *testing.T) {
	m := newTestManager(&fakeRunner{}, nil)
	c := newChat()
	m.HandleHistory(context.Background(), Request{UserID: 7}, c)
	if c.last() != msgHistoryDisabled {
		t.Fatalf("last=%q", c.last())
	}

	history := &fakeHistory{records: []*model.DownloadRecord{{Title: "Movie", Quality: 720, Outcome: "delivered", Languages: model.StringList{"Hindi"}}}}
	m = newTestManager(&fakeRunner{}, history)
	m.HandleHistory(context.Background(), Request{UserID: 7}, c)
	if !strings.Contains(c.last(), "Movie 720p [Hindi] delivered") {
		t.Fatalf("last=%q", c.last())
	}
}

// rowHistory 像数据库一样以序列化后的列保存 Languages
type rowHistory struct {
	rows []storedRow
	err  error
}

type storedRow struct {
	userID    int64
	record    model.DownloadRecord
	languages interface{}
}

func (h *rowHistory) Create(ctx context.Context, r *model.DownloadRecord) error {
	v, err := r.Languages.Value()
	if err != nil {
		return err
	}
	row := storedRow{userID: r.UserID, record: *r, languages: v}
	row.record.Languages = nil
	h.rows = append(h.rows, row)
	return nil
}

func (h *rowHistory) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.DownloadRecord, error) {
	if h.err != nil {
		return nil, h.err
	}
	var out []*model.DownloadRecord
	for i := len(h.rows) - 1; i >= 0 && len(out) < limit; i-- {
		row := h.rows[i]
		if row.userID != userID {
			continue
		}
		r := row.record
		if err := r.Languages.Scan(row.languages); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, nil
}

func (h *rowHistory) CountByOutcome(ctx context.Context) (map[string]int64, error) {
	return nil, nil
}

func TestHistoryFormatting(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 20, 30, 0, 0, time.Local)
	history := &rowHistory{}
	for _, r := range []*model.DownloadRecord{
		{UserID: 7, Title: "Old.Movie", Quality: 480, Languages: model.StringList{"Tamil"}, Outcome: model.DownloadOutcomeFailed, CreatedAt: at},
		{UserID: 8, Title: "Other.User", Quality: 720, Languages: model.StringList{"English"}, Outcome: model.DownloadOutcomeDelivered, CreatedAt: at},
		{UserID: 7, Title: "New.Movie", Quality: 1080, Languages: model.StringList{"Hindi", "English"}, Outcome: model.DownloadOutcomeLocalOnly, CreatedAt: at.Add(time.Hour)},
	} {
		if err := history.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	m := NewManager(Options{
		Resolver:     &fakeResolver{},
		Manifests:    &fakeManifests{data: scenarioManifest},
		Runner:       &fakeRunner{},
		Store:        session.NewStore(session.NewMemoryBackend(), time.Hour),
		Tokens:       staticToken("tok"),
		History:      history,
		HistoryLimit: 5,
	})

	c := newChat()
	m.HandleHistory(ctx, Request{UserID: 7}, c)
	want := msgHistoryHeader +
		"\n2024-05-01 21:30 New.Movie 1080p [Hindi, English] local_only" +
		"\n2024-05-01 20:30 Old.Movie 480p [Tamil] failed"
	if c.last() != want {
		t.Fatalf("history=%q, want %q", c.last(), want)
	}

	c = newChat()
	m.HandleHistory(ctx, Request{UserID: 9}, c)
	if c.last() != msgHistoryEmpty {
		t.Fatalf("last=%q", c.last())
	}

	history.err = errors.New("db down")
	c = newChat()
	m.HandleHistory(ctx, Request{UserID: 7}, c)
	if c.last() != msgInternalError {
		t.Fatalf("last=%q", c.last())
	}
}

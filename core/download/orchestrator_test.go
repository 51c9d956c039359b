package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"CineBot/model"
)

type fakePipeline struct {
	size  int64
	err   error
	calls []Request
	dir   string
}

func (f *fakePipeline) Download(ctx context.Context, req Request, progress ProgressFunc) (string, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.dir, "out.mkv")
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	if err := file.Truncate(f.size); err != nil {
		return "", err
	}
	if progress != nil {
		progress(StageDownload, f.size, f.size)
	}
	return path, nil
}

type fakeDeliverer struct {
	err      error
	paths    []string
	captions []string
}

func (d *fakeDeliverer) Deliver(ctx context.Context, path, caption string, progress ProgressFunc) error {
	d.paths = append(d.paths, path)
	d.captions = append(d.captions, caption)
	return d.err
}

type fakeArchiver struct {
	objects []string
}

func (a *fakeArchiver) Archive(ctx context.Context, path, objectName string) (string, error) {
	a.objects = append(a.objects, objectName)
	return "https://minio.local/" + objectName, nil
}

func readySession() *model.UserSession {
	return &model.UserSession{
		ID:        "s1",
		ContentID: "123456",
		State:     model.StateReadyToDownload,
		Content:   model.ContentMetadata{ID: "123456", Title: "Some Movie"},
		Manifest:  model.PlaybackManifestRef{StreamType: model.StreamTypeDash, URL: "https://cdn/x.mpd"},
		AudioTracks: []model.AudioTrack{
			{ID: "a1", FormatID: "a1-128", Language: "English"},
			{ID: "a2", FormatID: "a2-96", Language: "Hindi"},
		},
		SelectedQuality:  &model.Quality{Height: 1080, BitrateMbps: 6.0},
		SelectedAudioIDs: []string{"a2", "a1"},
		AuthToken:        "tok",
	}
}

func TestRunSizeBoundary(t *testing.T) {
	const limit int64 = 1024

	tests := []struct {
		name string
		size int64
		want OutcomeKind
	}{
		{name: "exactly at limit is delivered", size: limit, want: OutcomeDelivered},
		{name: "one byte over is local only", size: limit + 1, want: OutcomeLocalOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &fakePipeline{size: tt.size, dir: t.TempDir()}
			deliverer := &fakeDeliverer{}
			o := NewOrchestrator(pipeline, Options{MaxUploadSize: limit})

			outcome, err := o.Run(context.Background(), readySession(), deliverer, nil)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if outcome.Kind != tt.want {
				t.Fatalf("Kind=%s, want %s", outcome.Kind, tt.want)
			}
			if outcome.Size != tt.size {
				t.Fatalf("Size=%d", outcome.Size)
			}

			switch tt.want {
			case OutcomeDelivered:
				if len(deliverer.paths) != 1 {
					t.Fatal("artifact not delivered")
				}
				if _, err := os.Stat(deliverer.paths[0]); !os.IsNotExist(err) {
					t.Fatal("delivered artifact should be removed")
				}
			case OutcomeLocalOnly:
				if len(deliverer.paths) != 0 {
					t.Fatal("oversize artifact must not be delivered")
				}
				if _, err := os.Stat(outcome.Path); err != nil {
					t.Fatalf("local artifact missing: %v", err)
				}
			}
		})
	}
}

func TestDefaultMaxUploadSize(t *testing.T) {
	if DefaultMaxUploadSize != 2000*1024*1024 {
		t.Fatalf("DefaultMaxUploadSize=%d", DefaultMaxUploadSize)
	}
	o := NewOrchestrator(&fakePipeline{}, Options{})
	if o.maxUploadSize != DefaultMaxUploadSize {
		t.Fatalf("maxUploadSize=%d", o.maxUploadSize)
	}
}

func TestRunArchivesOversize(t *testing.T) {
	archiver := &fakeArchiver{}
	o := NewOrchestrator(&fakePipeline{size: 10, dir: t.TempDir()}, Options{MaxUploadSize: 5, Archiver: archiver})

	outcome, err := o.Run(context.Background(), readySession(), &fakeDeliverer{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.ArchiveURL != "https://minio.local/123456/out.mkv" {
		t.Fatalf("ArchiveURL=%q", outcome.ArchiveURL)
	}
}

func TestRunPassesSelectionToPipeline(t *testing.T) {
	pipeline := &fakePipeline{size: 1, dir: t.TempDir()}
	deliverer := &fakeDeliverer{}
	o := NewOrchestrator(pipeline, Options{})

	if _, err := o.Run(context.Background(), readySession(), deliverer, nil); err != nil {
		t.Fatal(err)
	}
	req := pipeline.calls[0]
	if req.Quality.Height != 1080 || strings.Join(req.AudioTrackIDs, ",") != "a2,a1" {
		t.Fatalf("request=%+v", req)
	}
	if strings.Join(req.AudioFormatIDs, ",") != "a2-96,a1-128" {
		t.Fatalf("AudioFormatIDs=%v, want representation ids in selection order", req.AudioFormatIDs)
	}
	if req.AuthToken != "tok" || req.ManifestURL != "https://cdn/x.mpd" || req.Title != "Some.Movie" {
		t.Fatalf("request=%+v", req)
	}

	want := "🎬 Some.Movie\n🎥 1080p\n🔊 Audio: English, Hindi"
	if deliverer.captions[0] != want {
		t.Fatalf("caption=%q, want %q", deliverer.captions[0], want)
	}
}

func TestRunIncompleteSelection(t *testing.T) {
	pipeline := &fakePipeline{dir: t.TempDir()}
	o := NewOrchestrator(pipeline, Options{})

	s := readySession()
	s.SelectedAudioIDs = nil
	_, err := o.Run(context.Background(), s, &fakeDeliverer{}, nil)
	if !errors.Is(err, ErrIncompleteSelection) {
		t.Fatalf("err=%v, want ErrIncompleteSelection", err)
	}
	if len(pipeline.calls) != 0 {
		t.Fatal("pipeline must not run on incomplete selection")
	}
}

func TestRunFailures(t *testing.T) {
	_, err := NewOrchestrator(&fakePipeline{err: errors.New("exit 1")}, Options{}).
		Run(context.Background(), readySession(), &fakeDeliverer{}, nil)
	var derr *DownloadError
	if !errors.As(err, &derr) || derr.Reason != ReasonPipelineFailed {
		t.Fatalf("err=%v, want PipelineFailed", err)
	}

	dir := filepath.Join(t.TempDir(), "job")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	_, err = NewOrchestrator(&fakePipeline{size: 1, dir: dir}, Options{}).
		Run(context.Background(), readySession(), &fakeDeliverer{err: errors.New("413")}, nil)
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("err=%v, want ErrDeliveryFailed", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out.mkv")); !os.IsNotExist(statErr) {
		t.Fatalf("artifact kept after failed delivery: %v", statErr)
	}
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Fatalf("work dir kept after failed delivery: %v", statErr)
	}

	_, err = NewOrchestrator(&fakePipeline{err: context.Canceled}, Options{}).
		Run(context.Background(), readySession(), &fakeDeliverer{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, cancellation should stay visible", err)
	}
}

package resolver

import (
	"context"
	"errors"
	"testing"

	"CineBot/model"
)

type fakeAPI struct {
	meta       *model.ContentMetadata
	metaErr    error
	validToken string
	refs       []model.PlaybackManifestRef
	guest      string
	guestErr   error

	playbackCalls int
	guestCalls    int
	tokensSeen    []string
}

func (f *fakeAPI) GetContentDetails(ctx context.Context, id string) (*model.ContentMetadata, error) {
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	return f.meta, nil
}

func (f *fakeAPI) FetchPlaybackData(ctx context.Context, id, token string) ([]model.PlaybackManifestRef, error) {
	f.playbackCalls++
	f.tokensSeen = append(f.tokensSeen, token)
	if token != f.validToken {
		return nil, errors.New("401")
	}
	return f.refs, nil
}

func (f *fakeAPI) FetchGuestToken(ctx context.Context) (string, error) {
	f.guestCalls++
	return f.guest, f.guestErr
}

type fakeSaver struct {
	saved []string
	err   error
}

func (s *fakeSaver) SaveToken(token string) error {
	s.saved = append(s.saved, token)
	return s.err
}

var dashRefs = []model.PlaybackManifestRef{
	{StreamType: model.StreamTypeOther, URL: "https://cdn/x.m3u8"},
	{StreamType: model.StreamTypeDash, URL: "https://cdn/x.mpd"},
}

func TestResolveWithCachedToken(t *testing.T) {
	api := &fakeAPI{meta: &model.ContentMetadata{ID: "1", Title: "T"}, validToken: "good", refs: dashRefs}
	saver := &fakeSaver{}

	res, err := NewResolver(api, saver).Resolve(context.Background(), "1", "good")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Manifest.URL != "https://cdn/x.mpd" || res.Token != "good" {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if api.guestCalls != 0 || len(saver.saved) != 0 {
		t.Fatalf("no refresh expected, guest=%d saved=%v", api.guestCalls, saver.saved)
	}
}

func TestResolveRefreshesTokenOnce(t *testing.T) {
	api := &fakeAPI{meta: &model.ContentMetadata{ID: "1"}, validToken: "fresh", guest: "fresh", refs: dashRefs}
	saver := &fakeSaver{}

	res, err := NewResolver(api, saver).Resolve(context.Background(), "1", "stale")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if api.guestCalls != 1 || api.playbackCalls != 2 {
		t.Fatalf("guestCalls=%d playbackCalls=%d", api.guestCalls, api.playbackCalls)
	}
	if len(saver.saved) != 1 || saver.saved[0] != "fresh" {
		t.Fatalf("saved=%v, want [fresh]", saver.saved)
	}
	if res.Token != "fresh" {
		t.Fatalf("Token=%q", res.Token)
	}
}

func TestResolveRetryFailure(t *testing.T) {
	api := &fakeAPI{meta: &model.ContentMetadata{ID: "1"}, validToken: "never", guest: "fresh", refs: dashRefs}

	_, err := NewResolver(api, &fakeSaver{}).Resolve(context.Background(), "1", "stale")
	var rerr *ResolveError
	if !errors.As(err, &rerr) || rerr.Reason != ReasonNoPlayback {
		t.Fatalf("err=%v, want NoPlayback", err)
	}
	if !errors.Is(err, ErrNoPlayback) {
		t.Fatal("errors.Is(ErrNoPlayback) = false")
	}
	if api.guestCalls != 1 || api.playbackCalls != 2 {
		t.Fatalf("refresh must happen exactly once: guest=%d playback=%d", api.guestCalls, api.playbackCalls)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeAPI
		want Reason
	}{
		{
			name: "metadata failure",
			api:  &fakeAPI{metaErr: errors.New("404")},
			want: ReasonNotFound,
		},
		{
			name: "guest token failure",
			api:  &fakeAPI{meta: &model.ContentMetadata{}, validToken: "x", guestErr: errors.New("down")},
			want: ReasonAuthFailed,
		},
		{
			name: "no dash",
			api: &fakeAPI{meta: &model.ContentMetadata{}, validToken: "ok",
				refs: []model.PlaybackManifestRef{{StreamType: model.StreamTypeOther, URL: "u"}}},
			want: ReasonNoDashManifest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(tt.api, nil).Resolve(context.Background(), "1", "ok")
			var rerr *ResolveError
			if !errors.As(err, &rerr) {
				t.Fatalf("err=%v, want *ResolveError", err)
			}
			if rerr.Reason != tt.want {
				t.Fatalf("Reason=%s, want %s", rerr.Reason, tt.want)
			}
		})
	}
}

func TestResolvePersistFailureNotFatal(t *testing.T) {
	api := &fakeAPI{meta: &model.ContentMetadata{ID: "1"}, validToken: "fresh", guest: "fresh", refs: dashRefs}
	saver := &fakeSaver{err: errors.New("read-only fs")}

	if _, err := NewResolver(api, saver).Resolve(context.Background(), "1", ""); err != nil {
		t.Fatalf("Resolve() error = %v, persistence failure should be ignored", err)
	}
}

func TestParseContentURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "https://www.jiocinema.com/movies/some-movie/3760812", want: "3760812"},
		{raw: "https://www.jiocinema.com/movies/some-movie/3760812/", want: "3760812"},
		{raw: "https://www.jiocinema.com/movies/x/123?utm=1#top", want: "123"},
		{raw: "https://example.com/movies/x/123", wantErr: true},
		{raw: "https://www.jiocinema.com/", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		ref, err := ParseContentURL(tt.raw, "jiocinema.com")
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidURL) {
				t.Errorf("ParseContentURL(%q) err=%v, want ErrInvalidURL", tt.raw, err)
			}
			continue
		}
		if err != nil || ref.ID != tt.want {
			t.Errorf("ParseContentURL(%q)=%q,%v want %q", tt.raw, ref.ID, err, tt.want)
		}
	}
}

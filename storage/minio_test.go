package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"CineBot/config"
)

func TestObjectName(t *testing.T) {
	if got := ObjectName("3760812/Night.Shift.1080p.mkv"); got != "archive/3760812/Night.Shift.1080p.mkv" {
		t.Fatalf("ObjectName=%q", got)
	}
}

// 需要本地 MinIO：MINIO_TEST_ENDPOINT=127.0.0.1:9000，使用默认 minioadmin 账号
func TestArtifactStoreLifecycle(t *testing.T) {
	endpoint := os.Getenv("MINIO_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_TEST_ENDPOINT not set")
	}
	ctx := context.Background()
	store, err := NewArtifactStore(ctx, &config.Config{
		MinioEndpoint:  endpoint,
		MinioAccessKey: "minioadmin",
		MinioSecretKey: "minioadmin",
		MinioBucket:    "cinebot-test",
		MinioLinkTTL:   time.Hour,
	})
	if err != nil {
		t.Skipf("minio unavailable: %v", err)
	}

	path := filepath.Join(t.TempDir(), "movie.mkv")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	link, err := store.Archive(ctx, path, "test/movie.mkv")
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if !strings.Contains(link, "archive/test/movie.mkv") || !strings.Contains(link, "X-Amz-Signature") {
		t.Fatalf("link=%q", link)
	}

	objects, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, obj := range objects {
		found = found || (obj.Name == "archive/test/movie.mkv" && obj.Size == 4)
	}
	if !found {
		t.Fatalf("archived object not listed: %+v", objects)
	}

	// 截止时间在上传之前，刚归档的对象保留
	if _, err := store.Prune(ctx, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	objects, err = store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	found = false
	for _, obj := range objects {
		found = found || obj.Name == "archive/test/movie.mkv"
	}
	if !found {
		t.Fatal("fresh object pruned")
	}
	if err := store.Remove(ctx, "archive/test/movie.mkv"); err != nil {
		t.Fatal(err)
	}
}

package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/repodoc-backend/internal/clients/gcp"
	"github.com/yungbote/repodoc-backend/internal/docgen"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
)

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

type fakeBucket struct {
	objects map[string][]byte
	deleted []string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}}
}

func (b *fakeBucket) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *fakeBucket) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("no object %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBucket) Delete(ctx context.Context, key string) error {
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *fakeBucket) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (b *fakeBucket) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func testStore(t *testing.T, bucket gcp.BucketService) (ArtifactStore, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ARTIFACT_LOCAL_DIR", dir)
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewArtifactStore(bucket, log), dir
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	return string(data)
}

func TestLocalTierServesWithoutBucket(t *testing.T) {
	store, _ := testStore(t, nil)
	jobID := mustUUID(t)
	ctx := context.Background()

	url, err := store.PublishDocumentation(ctx, jobID, "# Hello\n")
	if err != nil {
		t.Fatalf("PublishDocumentation: %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Fatalf("url = %s, want local file url", url)
	}

	rc, err := store.Fetch(ctx, KindDocumentation, jobID)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := readAll(t, rc); got != "# Hello\n" {
		t.Fatalf("fetched %q", got)
	}

	if _, err := store.PublishAnnotations(ctx, jobID, []docgen.AnnotatedFile{{Path: "main.go", Language: "go"}}); err != nil {
		t.Fatalf("PublishAnnotations: %v", err)
	}
	rc, err = store.Fetch(ctx, KindAnnotations, jobID)
	if err != nil {
		t.Fatalf("Fetch annotations: %v", err)
	}
	if got := readAll(t, rc); !strings.Contains(got, "main.go") {
		t.Fatalf("annotations payload missing file entry: %q", got)
	}
}

func TestBucketURLPreferredAndFetchFallsBack(t *testing.T) {
	bucket := newFakeBucket()
	store, dir := testStore(t, bucket)
	jobID := mustUUID(t)
	ctx := context.Background()

	url, err := store.PublishDocumentation(ctx, jobID, "docs body")
	if err != nil {
		t.Fatalf("PublishDocumentation: %v", err)
	}
	want := "https://cdn.example.com/docs/" + jobID.String() + ".md"
	if url != want {
		t.Fatalf("url = %s, want %s", url, want)
	}

	// Drop the local copy; Fetch should fall through to the bucket.
	if err := os.Remove(filepath.Join(dir, "docs", jobID.String()+".md")); err != nil {
		t.Fatalf("remove local copy: %v", err)
	}
	rc, err := store.Fetch(ctx, KindDocumentation, jobID)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := readAll(t, rc); got != "docs body" {
		t.Fatalf("fetched %q", got)
	}
}

func TestPurgeClearsBothTiers(t *testing.T) {
	bucket := newFakeBucket()
	store, dir := testStore(t, bucket)
	jobID := mustUUID(t)
	ctx := context.Background()

	if _, err := store.PublishDocumentation(ctx, jobID, "# doc"); err != nil {
		t.Fatalf("PublishDocumentation: %v", err)
	}
	if _, err := store.PublishAnnotations(ctx, jobID, []docgen.AnnotatedFile{{Path: "a.py"}}); err != nil {
		t.Fatalf("PublishAnnotations: %v", err)
	}

	if err := store.Purge(ctx, jobID); err != nil {
		t.Fatalf("Purge: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "docs", jobID.String()+".md")); !os.IsNotExist(err) {
		t.Fatalf("local documentation copy should be gone, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "commented", jobID.String()+".json")); !os.IsNotExist(err) {
		t.Fatalf("local annotations copy should be gone, stat err = %v", err)
	}
	if len(bucket.objects) != 0 {
		t.Fatalf("bucket still holds %d objects", len(bucket.objects))
	}
	if len(bucket.deleted) != 2 {
		t.Fatalf("deleted %d remote keys, want 2", len(bucket.deleted))
	}

	if _, err := store.Fetch(ctx, KindDocumentation, jobID); err == nil {
		t.Fatalf("fetch after purge should fail")
	}
}

func TestBranchNameFormat(t *testing.T) {
	at := time.Date(2026, 8, 26, 14, 30, 5, 0, time.UTC)
	got := BranchName(at)
	if got != "ai-comments-20260826-143005" {
		t.Fatalf("BranchName = %s", got)
	}
}

func TestArtifactKeyLayout(t *testing.T) {
	jobID := mustUUID(t)

	docKey, err := artifactKey(KindDocumentation, jobID)
	if err != nil {
		t.Fatalf("artifactKey: %v", err)
	}
	if docKey != "docs/"+jobID.String()+".md" {
		t.Fatalf("doc key = %s", docKey)
	}

	annKey, err := artifactKey(KindAnnotations, jobID)
	if err != nil {
		t.Fatalf("artifactKey: %v", err)
	}
	if annKey != "commented/"+jobID.String()+".json" {
		t.Fatalf("annotations key = %s", annKey)
	}

	if _, err := artifactKey("bogus", jobID); err == nil {
		t.Fatalf("unknown kind should error")
	}
}

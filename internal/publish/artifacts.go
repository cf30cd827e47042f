// Package publish delivers generated artifacts: either into the artifact
// store or back to GitHub as a branch plus pull request.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/yungbote/repodoc-backend/internal/clients/gcp"
	"github.com/yungbote/repodoc-backend/internal/docgen"
	"github.com/yungbote/repodoc-backend/internal/pkg/envutil"
	"github.com/yungbote/repodoc-backend/internal/pkg/faults"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
)

// Artifact kinds namespace the storage keys.
const (
	KindDocumentation = "docs"
	KindAnnotations   = "commented"
)

// ArtifactStore persists one artifact per job per kind and serves it back.
// It is two-tiered: every artifact lands in a local directory, and when a
// bucket is configured it is mirrored there as the durable copy. Purge
// drops both copies once the job row expires.
type ArtifactStore interface {
	PublishDocumentation(ctx context.Context, jobID uuid.UUID, markdown string) (string, error)
	PublishAnnotations(ctx context.Context, jobID uuid.UUID, files []docgen.AnnotatedFile) (string, error)
	Fetch(ctx context.Context, kind string, jobID uuid.UUID) (io.ReadCloser, error)
	Purge(ctx context.Context, jobID uuid.UUID) error
}

type artifactStore struct {
	bucket   gcp.BucketService
	localDir string
	log      *logger.Logger
}

func NewArtifactStore(bucket gcp.BucketService, log *logger.Logger) ArtifactStore {
	return &artifactStore{
		bucket:   bucket,
		localDir: envutil.String("ARTIFACT_LOCAL_DIR", filepath.Join(os.TempDir(), "repodoc-artifacts")),
		log:      log.With("service", "ArtifactStore"),
	}
}

func artifactKey(kind string, jobID uuid.UUID) (string, error) {
	switch kind {
	case KindDocumentation:
		return fmt.Sprintf("%s/%s.md", kind, jobID), nil
	case KindAnnotations:
		return fmt.Sprintf("%s/%s.json", kind, jobID), nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", kind)
	}
}

func (s *artifactStore) localPath(key string) string {
	return filepath.Join(s.localDir, filepath.FromSlash(key))
}

// store writes the local copy, mirrors to the bucket when one is
// configured, and returns the URL the job row should record. A failed
// local write is tolerated while the bucket succeeds, and vice versa;
// only losing both fails the publish.
func (s *artifactStore) store(ctx context.Context, op, key, contentType string, payload []byte) (string, error) {
	path := s.localPath(key)
	localErr := os.MkdirAll(filepath.Dir(path), 0o755)
	if localErr == nil {
		localErr = os.WriteFile(path, payload, 0o644)
	}
	if localErr != nil {
		s.log.Warn("Local artifact write failed", "key", key, "error", localErr)
	}

	if s.bucket != nil {
		if err := s.bucket.Upload(ctx, key, contentType, bytes.NewReader(payload)); err != nil {
			if localErr != nil {
				return "", &faults.PublishError{Op: op, Err: err}
			}
			s.log.Warn("Bucket upload failed; artifact kept on local tier only", "key", key, "error", err)
			return "file://" + path, nil
		}
		return s.bucket.PublicURL(key), nil
	}

	if localErr != nil {
		return "", &faults.PublishError{Op: op, Err: localErr}
	}
	return "file://" + path, nil
}

func (s *artifactStore) PublishDocumentation(ctx context.Context, jobID uuid.UUID, markdown string) (string, error) {
	key, _ := artifactKey(KindDocumentation, jobID)
	url, err := s.store(ctx, "store documentation", key, "text/markdown", []byte(markdown))
	if err != nil {
		return "", err
	}
	s.log.Info("Stored documentation artifact", "job_id", jobID.String(), "key", key)
	return url, nil
}

func (s *artifactStore) PublishAnnotations(ctx context.Context, jobID uuid.UUID, files []docgen.AnnotatedFile) (string, error) {
	payload, err := json.MarshalIndent(map[string]interface{}{
		"job_id": jobID.String(),
		"files":  files,
	}, "", "  ")
	if err != nil {
		return "", &faults.PublishError{Op: "store annotations", Err: err}
	}
	key, _ := artifactKey(KindAnnotations, jobID)
	url, err := s.store(ctx, "store annotations", key, "application/json", payload)
	if err != nil {
		return "", err
	}
	s.log.Info("Stored annotations artifact", "job_id", jobID.String(), "key", key, "files", len(files))
	return url, nil
}

// Fetch serves the local copy when present and falls back to the bucket.
func (s *artifactStore) Fetch(ctx context.Context, kind string, jobID uuid.UUID) (io.ReadCloser, error) {
	key, err := artifactKey(kind, jobID)
	if err != nil {
		return nil, err
	}
	if f, err := os.Open(s.localPath(key)); err == nil {
		return f, nil
	}
	if s.bucket == nil {
		return nil, fmt.Errorf("artifact %s not found for job %s", kind, jobID)
	}
	return s.bucket.Download(ctx, key)
}

// Purge removes every stored artifact for the job from both tiers.
func (s *artifactStore) Purge(ctx context.Context, jobID uuid.UUID) error {
	var errs []error
	for _, kind := range []string{KindDocumentation, KindAnnotations} {
		key, _ := artifactKey(kind, jobID)
		if err := os.Remove(s.localPath(key)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
		if s.bucket == nil {
			continue
		}
		keys, err := s.bucket.ListKeys(ctx, fmt.Sprintf("%s/%s", kind, jobID))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, k := range keys {
			if err := s.bucket.Delete(ctx, k); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

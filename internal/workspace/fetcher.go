// Package workspace owns the per-job clone directories. Every run gets an
// isolated directory keyed by job ID; cleanup removes it unconditionally.
package workspace

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/repodoc-backend/internal/pkg/envutil"
	"github.com/yungbote/repodoc-backend/internal/pkg/faults"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
)

// Workspace is one job's checked-out repository on local disk.
type Workspace struct {
	JobID uuid.UUID
	Path  string
}

// RepoMetadata captures the tip of the cloned branch.
type RepoMetadata struct {
	Branch        string    `json:"branch"`
	CommitSHA     string    `json:"commit_sha"`
	CommitMessage string    `json:"commit_message"`
	Author        string    `json:"author"`
	CommitTime    time.Time `json:"commit_time"`
}

type Fetcher struct {
	root    string
	timeout time.Duration
	log     *logger.Logger
}

func NewFetcher(log *logger.Logger) *Fetcher {
	root := envutil.String("WORKSPACE_ROOT", filepath.Join(os.TempDir(), "repodoc-workspaces"))
	return &Fetcher{
		root:    root,
		timeout: envutil.Duration("CLONE_TIMEOUT", 5*time.Minute),
		log:     log.With("service", "WorkspaceFetcher"),
	}
}

// Path returns the workspace directory for a job, whether or not it exists.
func (f *Fetcher) Path(jobID uuid.UUID) string {
	return filepath.Join(f.root, jobID.String())
}

// Clone performs a shallow single-branch clone of sourceURL into the job's
// workspace. A non-empty token is injected into the clone URL and scrubbed
// from any error output. A pre-existing workspace for the same job is
// removed first so a retried run never sees stale files.
func (f *Fetcher) Clone(ctx context.Context, jobID uuid.UUID, sourceURL, token string) (*Workspace, *RepoMetadata, error) {
	dir := f.Path(jobID)
	if err := os.RemoveAll(dir); err != nil {
		return nil, nil, &faults.FetchError{SourceURL: sourceURL, Err: fmt.Errorf("reset workspace: %w", err)}
	}
	if err := os.MkdirAll(f.root, 0o755); err != nil {
		return nil, nil, &faults.FetchError{SourceURL: sourceURL, Err: fmt.Errorf("create workspace root: %w", err)}
	}

	cloneURL, err := authCloneURL(sourceURL, token)
	if err != nil {
		return nil, nil, &faults.FetchError{SourceURL: sourceURL, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if out, err := f.git(ctx, "", "clone", "--depth", "1", "--single-branch", cloneURL, dir); err != nil {
		_ = os.RemoveAll(dir)
		return nil, nil, &faults.FetchError{SourceURL: sourceURL, Err: fmt.Errorf("%s: %s", err, redact(out, token))}
	}

	meta, err := f.readMetadata(ctx, dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, nil, &faults.FetchError{SourceURL: sourceURL, Err: err}
	}

	f.log.Info("Cloned repository",
		"job_id", jobID.String(),
		"branch", meta.Branch,
		"commit", meta.CommitSHA,
	)
	return &Workspace{JobID: jobID, Path: dir}, meta, nil
}

// Cleanup removes the job's workspace. Removing a workspace that never
// materialized is a no-op.
func (f *Fetcher) Cleanup(jobID uuid.UUID) error {
	dir := f.Path(jobID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return os.RemoveAll(dir)
}

func (f *Fetcher) readMetadata(ctx context.Context, dir string) (*RepoMetadata, error) {
	branch, err := f.git(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("read branch: %w", err)
	}
	// %H hash, %an <%ae> author, %cI commit date, %s subject
	raw, err := f.git(ctx, dir, "log", "-1", "--format=%H%n%an <%ae>%n%cI%n%s")
	if err != nil {
		return nil, fmt.Errorf("read head commit: %w", err)
	}
	lines := strings.SplitN(strings.TrimSpace(raw), "\n", 4)
	meta := &RepoMetadata{Branch: strings.TrimSpace(branch)}
	if len(lines) > 0 {
		meta.CommitSHA = strings.TrimSpace(lines[0])
	}
	if len(lines) > 1 {
		meta.Author = strings.TrimSpace(lines[1])
	}
	if len(lines) > 2 {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(lines[2])); err == nil {
			meta.CommitTime = t
		}
	}
	if len(lines) > 3 {
		meta.CommitMessage = strings.TrimSpace(lines[3])
	}
	return meta, nil
}

func (f *Fetcher) git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}

// authCloneURL injects an x-access-token credential into an https GitHub
// URL. An empty token returns the URL unchanged.
func authCloneURL(sourceURL, token string) (string, error) {
	if token == "" {
		return sourceURL, nil
	}
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("parse source url: %w", err)
	}
	u.User = url.UserPassword("x-access-token", token)
	return u.String(), nil
}

// redact scrubs the raw token from command output before it can reach logs
// or persisted error messages.
func redact(s, token string) string {
	if token == "" {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(strings.ReplaceAll(s, token, "********"))
}

// Package workflow runs the per-job pipelines. A pipeline is a fixed list
// of named steps over a shared run state; the engine executes them in order,
// short-circuits after the first failure, and always runs the trailing
// cleanup step.
package workflow

import (
	"github.com/google/uuid"

	"github.com/yungbote/repodoc-backend/internal/analyze"
	"github.com/yungbote/repodoc-backend/internal/docgen"
	"github.com/yungbote/repodoc-backend/internal/scan"
	"github.com/yungbote/repodoc-backend/internal/workspace"
)

// SelectedFile is one code file picked for annotation, with its contents
// already loaded.
type SelectedFile struct {
	Path     string
	RelPath  string
	Language string
	Content  string
}

// State is the mutable run state a pipeline's steps share. Steps write the
// fields they own and never unset a recorded failure.
type State struct {
	JobID          uuid.UUID
	SourceURL      string
	Token          string
	HasWriteAccess bool

	Workspace *workspace.Workspace
	Metadata  *workspace.RepoMetadata
	Scan      *scan.Result
	Readme    string
	Analysis  *analyze.BatchResult
	Selected  []SelectedFile
	Markdown  string
	Annotated []docgen.AnnotatedFile

	OutputURL      string
	PullRequestURL string

	failedStep string
	err        error
}

// Fail records the run's failure. The first recorded error wins; later
// calls are ignored so the root cause survives cleanup noise.
func (s *State) Fail(step string, err error) {
	if s.err != nil || err == nil {
		return
	}
	s.failedStep = step
	s.err = err
}

// Err returns the first recorded failure, or nil.
func (s *State) Err() error { return s.err }

// FailedStep names the step that recorded the failure, or "".
func (s *State) FailedStep() string { return s.failedStep }

package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/repodoc-backend/internal/docgen"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
	"github.com/yungbote/repodoc-backend/internal/workspace"
)

// Step names shared by the pipelines. These are the values persisted to the
// job row and pushed over the event bus.
const (
	StepCloning    = "cloning"
	StepScanning   = "scanning"
	StepAnalyzing  = "analyzing"
	StepGenerating = "generating"
	StepSelecting  = "selecting"
	StepAnnotating = "annotating"
	StepPublishing = "publishing"
	StepCleanup    = "cleanup"
)

// RepoFetcher clones a repository into a per-job workspace and tears it
// down afterwards.
type RepoFetcher interface {
	Clone(ctx context.Context, jobID uuid.UUID, sourceURL, token string) (*workspace.Workspace, *workspace.RepoMetadata, error)
	Cleanup(jobID uuid.UUID) error
}

// DocGenerator produces model output for a run.
type DocGenerator interface {
	GenerateDocumentation(ctx context.Context, in docgen.DocumentationInput) (string, error)
	AnnotateFile(ctx context.Context, path, content, language string) (string, error)
}

// ArtifactPublisher stores generated output and returns its public URL.
type ArtifactPublisher interface {
	PublishDocumentation(ctx context.Context, jobID uuid.UUID, markdown string) (string, error)
	PublishAnnotations(ctx context.Context, jobID uuid.UUID, files []docgen.AnnotatedFile) (string, error)
}

// PullRequestPublisher delivers annotated files as a pull request and
// returns its URL.
type PullRequestPublisher interface {
	Publish(ctx context.Context, ws *workspace.Workspace, branchName string, files []docgen.AnnotatedFile, token, sourceURL string) (string, error)
}

// orderSteps assembles the step list for a kind from the pipeline spec for that kind.
// A spec naming a step the pipeline does not implement falls back to the
// built-in order so a bad override can never drop work.
func orderSteps(log *logger.Logger, kind string, byName map[string]Step) []Step {
	names := StepOrder(log, kind)
	steps := make([]Step, 0, len(names))
	for _, name := range names {
		s, ok := byName[name]
		if !ok {
			if log != nil {
				log.Warn("Pipeline spec names unknown step; using fallback order", "kind", kind, "step", name)
			}
			return orderFallback(kind, byName)
		}
		steps = append(steps, s)
	}
	return steps
}

func orderFallback(kind string, byName map[string]Step) []Step {
	names := fallbackStepOrder[kind]
	steps := make([]Step, 0, len(names))
	for _, name := range names {
		steps = append(steps, byName[name])
	}
	return steps
}

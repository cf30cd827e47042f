package workflow

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/repodoc-backend/internal/docgen"
	"github.com/yungbote/repodoc-backend/internal/domain/jobs"
	"github.com/yungbote/repodoc-backend/internal/pkg/faults"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
	"github.com/yungbote/repodoc-backend/internal/publish"
	"github.com/yungbote/repodoc-backend/internal/scan"
)

// annotateFileLimit bounds how many code files one run annotates. Model
// calls dominate run time and cost, so the batch stays small.
const annotateFileLimit = 10

// annotateConcurrency bounds the in-flight model calls per run.
const annotateConcurrency = 4

// publishRoute is the delivery arm picked after annotation. Exactly one of
// the two arms applies to a run.
type publishRoute int

const (
	routeCreatePullRequest publishRoute = iota
	routeStoreArtifact
)

// AnnotatePipeline adds inline comments to a repository's code files and
// delivers them as a pull request or, without write access, an artifact.
type AnnotatePipeline struct {
	fetcher   RepoFetcher
	gen       DocGenerator
	artifacts ArtifactPublisher
	prs       PullRequestPublisher
	log       *logger.Logger
}

func NewAnnotatePipeline(fetcher RepoFetcher, gen DocGenerator, artifacts ArtifactPublisher, prs PullRequestPublisher, log *logger.Logger) *AnnotatePipeline {
	return &AnnotatePipeline{
		fetcher:   fetcher,
		gen:       gen,
		artifacts: artifacts,
		prs:       prs,
		log:       log.With("pipeline", "annotate"),
	}
}

func (p *AnnotatePipeline) Steps() []Step {
	return orderSteps(p.log, jobs.KindAnnotate, map[string]Step{
		StepCloning:    {Name: StepCloning, Run: p.clone},
		StepSelecting:  {Name: StepSelecting, Run: p.selectFiles},
		StepAnnotating: {Name: StepAnnotating, Run: p.annotate},
		StepPublishing: {Name: StepPublishing, Run: p.publish},
		StepCleanup:    {Name: StepCleanup, Run: p.cleanup, Always: true},
	})
}

func (p *AnnotatePipeline) clone(ctx context.Context, st *State) error {
	ws, meta, err := p.fetcher.Clone(ctx, st.JobID, st.SourceURL, st.Token)
	if err != nil {
		return err
	}
	st.Workspace = ws
	st.Metadata = meta
	return nil
}

// selectFiles scans the workspace and loads the first code files. A file
// that cannot be read is skipped; the step fails only when nothing is left.
func (p *AnnotatePipeline) selectFiles(ctx context.Context, st *State) error {
	res, err := scan.Scan(st.Workspace.Path)
	if err != nil {
		return err
	}
	st.Scan = res

	code := scan.CodeFiles(res.Files)
	if len(code) > annotateFileLimit {
		code = code[:annotateFileLimit]
	}
	p.log.Info("Selected code files for annotation", "job_id", st.JobID, "total", len(scan.CodeFiles(res.Files)), "selected", len(code))

	selected := make([]SelectedFile, 0, len(code))
	for _, f := range code {
		b, err := os.ReadFile(f.Path)
		if err != nil {
			p.log.Warn("Skipping unreadable file", "job_id", st.JobID, "path", f.RelativePath, "error", err)
			continue
		}
		selected = append(selected, SelectedFile{
			Path:     f.Path,
			RelPath:  f.RelativePath,
			Language: languageForExtension(f.Extension),
			Content:  string(b),
		})
	}
	if len(selected) == 0 {
		return &faults.GenerationError{Err: errors.New("no code files found to comment")}
	}
	st.Selected = selected
	return nil
}

// annotate fans the selected files out to the model with bounded
// concurrency. Per-file failures are recorded on their result slot; the
// step fails only when every file failed.
func (p *AnnotatePipeline) annotate(ctx context.Context, st *State) error {
	results := make([]docgen.AnnotatedFile, len(st.Selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(annotateConcurrency)
	for i, sel := range st.Selected {
		g.Go(func() error {
			commented, err := p.gen.AnnotateFile(gctx, sel.RelPath, sel.Content, sel.Language)
			res := docgen.AnnotatedFile{Path: sel.RelPath, Language: sel.Language, OriginalCode: sel.Content}
			if err != nil {
				res.Error = err.Error()
				p.log.Warn("Annotation failed for file", "job_id", st.JobID, "path", sel.RelPath, "error", err)
			} else {
				res.CommentedCode = commented
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Error == "" {
			succeeded++
		}
	}
	if succeeded == 0 {
		return &faults.GenerationError{Err: errors.New("failed to generate comments for all files")}
	}
	p.log.Info("Annotation batch done", "job_id", st.JobID, "succeeded", succeeded, "failed", len(results)-succeeded)
	st.Annotated = results
	return nil
}

func (p *AnnotatePipeline) publish(ctx context.Context, st *State) error {
	switch p.route(st) {
	case routeCreatePullRequest:
		branch := publish.BranchName(time.Now())
		url, err := p.prs.Publish(ctx, st.Workspace, branch, annotatedOnly(st.Annotated), st.Token, st.SourceURL)
		if err != nil {
			return err
		}
		st.PullRequestURL = url
	case routeStoreArtifact:
		url, err := p.artifacts.PublishAnnotations(ctx, st.JobID, st.Annotated)
		if err != nil {
			return err
		}
		st.OutputURL = url
	}
	return nil
}

func (p *AnnotatePipeline) route(st *State) publishRoute {
	if st.HasWriteAccess && st.Token != "" {
		return routeCreatePullRequest
	}
	return routeStoreArtifact
}

func (p *AnnotatePipeline) cleanup(ctx context.Context, st *State) error {
	return p.fetcher.Cleanup(st.JobID)
}

// annotatedOnly drops failed slots before delivery; a pull request only
// carries files that actually got comments.
func annotatedOnly(files []docgen.AnnotatedFile) []docgen.AnnotatedFile {
	out := make([]docgen.AnnotatedFile, 0, len(files))
	for _, f := range files {
		if f.Error == "" && f.CommentedCode != "" {
			out = append(out, f)
		}
	}
	return out
}

func languageForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".py":
		return "python"
	case ".go":
		return "go"
	case ".js", ".jsx":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".java":
		return "java"
	case ".rb":
		return "ruby"
	case ".rs":
		return "rust"
	case ".c", ".h":
		return "c"
	case ".cpp", ".hpp", ".cc":
		return "cpp"
	default:
		return "code"
	}
}

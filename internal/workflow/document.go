package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/repodoc-backend/internal/analyze"
	"github.com/yungbote/repodoc-backend/internal/docgen"
	"github.com/yungbote/repodoc-backend/internal/domain/jobs"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
	"github.com/yungbote/repodoc-backend/internal/scan"
)

// analyzeFileLimit bounds how many code files feed the structural analysis.
const analyzeFileLimit = 20

// DocumentPipeline produces one markdown document for a repository and
// publishes it as an artifact.
type DocumentPipeline struct {
	fetcher   RepoFetcher
	gen       DocGenerator
	artifacts ArtifactPublisher
	log       *logger.Logger
}

func NewDocumentPipeline(fetcher RepoFetcher, gen DocGenerator, artifacts ArtifactPublisher, log *logger.Logger) *DocumentPipeline {
	return &DocumentPipeline{
		fetcher:   fetcher,
		gen:       gen,
		artifacts: artifacts,
		log:       log.With("pipeline", "document"),
	}
}

func (p *DocumentPipeline) Steps() []Step {
	return orderSteps(p.log, jobs.KindDocument, map[string]Step{
		StepCloning:    {Name: StepCloning, Run: p.clone},
		StepScanning:   {Name: StepScanning, Run: p.scan},
		StepAnalyzing:  {Name: StepAnalyzing, Run: p.analyze},
		StepGenerating: {Name: StepGenerating, Run: p.generate},
		StepPublishing: {Name: StepPublishing, Run: p.publish},
		StepCleanup:    {Name: StepCleanup, Run: p.cleanup, Always: true},
	})
}

func (p *DocumentPipeline) clone(ctx context.Context, st *State) error {
	ws, meta, err := p.fetcher.Clone(ctx, st.JobID, st.SourceURL, st.Token)
	if err != nil {
		return err
	}
	st.Workspace = ws
	st.Metadata = meta
	return nil
}

func (p *DocumentPipeline) scan(ctx context.Context, st *State) error {
	res, err := scan.Scan(st.Workspace.Path)
	if err != nil {
		return err
	}
	st.Scan = res
	st.Readme = readReadme(res.Files)
	return nil
}

func (p *DocumentPipeline) analyze(ctx context.Context, st *State) error {
	code := scan.CodeFiles(st.Scan.Files)
	if len(code) > analyzeFileLimit {
		code = code[:analyzeFileLimit]
	}
	paths := make([]string, 0, len(code))
	for _, f := range code {
		paths = append(paths, f.Path)
	}
	if len(paths) == 0 {
		p.log.Warn("No code files to analyze", "job_id", st.JobID)
	}
	st.Analysis = analyze.AnalyzeFiles(ctx, paths)
	return nil
}

func (p *DocumentPipeline) generate(ctx context.Context, st *State) error {
	md, err := p.gen.GenerateDocumentation(ctx, docgen.DocumentationInput{
		RepoName:      repoNameFromURL(st.SourceURL),
		Metadata:      st.Metadata,
		Tree:          st.Scan.Tree,
		Stats:         st.Scan.Stats,
		Analysis:      st.Analysis,
		ReadmeContent: st.Readme,
	})
	if err != nil {
		return err
	}
	st.Markdown = md
	return nil
}

func (p *DocumentPipeline) publish(ctx context.Context, st *State) error {
	url, err := p.artifacts.PublishDocumentation(ctx, st.JobID, st.Markdown)
	if err != nil {
		return err
	}
	st.OutputURL = url
	return nil
}

func (p *DocumentPipeline) cleanup(ctx context.Context, st *State) error {
	return p.fetcher.Cleanup(st.JobID)
}

// readReadme loads the first README-ish file from the inventory. A missing
// or unreadable README is fine; the prompt just omits that section.
func readReadme(files []scan.FileInfo) string {
	for _, f := range files {
		switch strings.ToLower(f.Name) {
		case "readme.md", "readme.txt", "readme":
			b, err := os.ReadFile(f.Path)
			if err != nil {
				return ""
			}
			return string(b)
		}
	}
	return ""
}

// repoNameFromURL extracts the trailing repository name for display.
func repoNameFromURL(sourceURL string) string {
	name := filepath.Base(strings.TrimSuffix(strings.TrimSuffix(sourceURL, "/"), ".git"))
	if name == "." || name == "/" {
		return sourceURL
	}
	return name
}

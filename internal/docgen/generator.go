// Package docgen turns scan and analysis results into generated artifacts:
// a repository markdown document or per-file annotated source.
package docgen

import (
	"context"
	"strings"

	"github.com/yungbote/repodoc-backend/internal/analyze"
	"github.com/yungbote/repodoc-backend/internal/clients/anthropic"
	"github.com/yungbote/repodoc-backend/internal/pkg/faults"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
	"github.com/yungbote/repodoc-backend/internal/scan"
	"github.com/yungbote/repodoc-backend/internal/workspace"
)

// Repositories above this file count get the grouped, truncated prompt so
// request size stays bounded.
const largeRepoThreshold = 50

// DocumentationInput is everything the documentation prompt draws from.
type DocumentationInput struct {
	RepoName      string
	Metadata      *workspace.RepoMetadata
	Tree          *scan.TreeNode
	Stats         scan.Stats
	Analysis      *analyze.BatchResult
	ReadmeContent string
}

// AnnotatedFile is one annotation result. Error is set when the model call
// for this file failed; the batch carries on.
type AnnotatedFile struct {
	Path          string `json:"path"`
	Language      string `json:"language"`
	OriginalCode  string `json:"original_code,omitempty"`
	CommentedCode string `json:"commented_code,omitempty"`
	Error         string `json:"error,omitempty"`
}

type Generator struct {
	ai  anthropic.Client
	log *logger.Logger
}

func NewGenerator(ai anthropic.Client, log *logger.Logger) *Generator {
	return &Generator{
		ai:  ai,
		log: log.With("service", "DocGenerator"),
	}
}

// GenerateDocumentation produces one markdown document for the repository.
func (g *Generator) GenerateDocumentation(ctx context.Context, in DocumentationInput) (string, error) {
	if g.ai == nil {
		return "", &faults.GenerationError{Subject: in.RepoName, Err: errNotConfigured}
	}
	prompt := buildDocumentationPrompt(in)

	g.log.Info("Generating documentation", "repo", in.RepoName, "files", in.Stats.TotalFiles)
	doc, err := g.ai.GenerateText(ctx, documentationSystemPrompt, prompt)
	if err != nil {
		return "", &faults.GenerationError{Subject: in.RepoName, Err: err}
	}
	return doc, nil
}

// AnnotateFile asks the model to return the file's source with explanatory
// comments added and the code itself untouched.
func (g *Generator) AnnotateFile(ctx context.Context, path, content, language string) (string, error) {
	if g.ai == nil {
		return "", &faults.GenerationError{Subject: path, Err: errNotConfigured}
	}
	prompt := buildAnnotationPrompt(path, content, language)

	out, err := g.ai.GenerateText(ctx, annotationSystemPrompt, prompt)
	if err != nil {
		return "", &faults.GenerationError{Subject: path, Err: err}
	}
	return stripCodeFence(out), nil
}

// stripCodeFence removes a wrapping markdown fence the model sometimes adds
// despite instructions.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 3 {
		return s
	}
	if strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return s
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

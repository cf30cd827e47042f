package docgen

import (
	"strings"
	"testing"

	"github.com/yungbote/repodoc-backend/internal/analyze"
	"github.com/yungbote/repodoc-backend/internal/scan"
)

func sampleTree() *scan.TreeNode {
	return &scan.TreeNode{
		Name: "widget",
		Type: "directory",
		Children: []*scan.TreeNode{
			{Name: "main.go", Type: "file", Size: 2048, Extension: ".go", Category: scan.CategoryCode},
			{Name: "internal", Type: "directory", Children: []*scan.TreeNode{
				{Name: "server.go", Type: "file", Size: 512},
			}},
		},
	}
}

func sampleAnalysis(n int) *analyze.BatchResult {
	res := &analyze.BatchResult{}
	for i := 0; i < n; i++ {
		res.Files = append(res.Files, analyze.FileAnalysis{
			Path:      "pkg/file.go",
			Language:  "go",
			Types:     []analyze.TypeInfo{{Name: "Widget", Kind: "struct"}},
			Functions: []analyze.FunctionInfo{{Name: "NewWidget"}},
			Imports:   []string{"fmt"},
		})
	}
	res.Total = n
	res.Successful = n
	return res
}

func TestBuildDocumentationPromptSmallRepo(t *testing.T) {
	in := DocumentationInput{
		RepoName:      "acme/widget",
		Tree:          sampleTree(),
		Stats:         scan.Stats{TotalFiles: 10, CodeFiles: 6, TotalSizeBytes: 4096},
		Analysis:      sampleAnalysis(2),
		ReadmeContent: "existing readme",
	}
	prompt := buildDocumentationPrompt(in)

	for _, want := range []string{
		"# Repository: acme/widget",
		"Total Files: 10",
		"- widget/",
		"main.go (2.0 KB)",
		"Key code files analyzed:",
		"Types: Widget",
		"Existing README",
		"existing readme",
		"## Task",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "grouped by component") {
		t.Errorf("small repo should get detailed analysis, not grouped summary")
	}
}

func TestBuildDocumentationPromptLargeRepoGroups(t *testing.T) {
	in := DocumentationInput{
		RepoName: "acme/widget",
		Tree:     sampleTree(),
		Stats:    scan.Stats{TotalFiles: largeRepoThreshold + 1},
		Analysis: sampleAnalysis(25),
	}
	prompt := buildDocumentationPrompt(in)
	if !strings.Contains(prompt, "grouped by component") {
		t.Fatalf("large repo should switch to grouped summary")
	}
}

func TestBuildDocumentationPromptTruncatesReadme(t *testing.T) {
	in := DocumentationInput{
		RepoName:      "acme/widget",
		Tree:          sampleTree(),
		Stats:         scan.Stats{TotalFiles: 1},
		ReadmeContent: strings.Repeat("x", readmeExcerptLimit+500),
	}
	prompt := buildDocumentationPrompt(in)
	if strings.Count(prompt, "x") > readmeExcerptLimit {
		t.Fatalf("readme excerpt should be capped at %d chars", readmeExcerptLimit)
	}
}

func TestBuildAnnotationPrompt(t *testing.T) {
	prompt := buildAnnotationPrompt("main.go", "package main", "go")
	for _, want := range []string{
		"File: main.go",
		"```go\npackage main\n```",
		"only add comments",
		"Return ONLY the commented code",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("annotation prompt missing %q", want)
		}
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```go\npackage main\n```", "package main"},
		{"```\ncode\n```", "code"},
		{"plain code", "plain code"},
		{"```unclosed fence", "```unclosed fence"},
	}
	for _, tc := range cases {
		if got := stripCodeFence(tc.in); got != tc.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512.0 B"},
		{2048, "2.0 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// Package analyze extracts structural facts (types, functions, imports)
// from a bounded list of code files. Go files get an exact tree-sitter
// parse; JavaScript, TypeScript and Python fall back to pattern matching.
package analyze

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/repodoc-backend/internal/pkg/faults"
)

// Caps a single file read so a pathological blob cannot blow the parse.
const maxFileSize = 1 << 20

var errFileTooLarge = errors.New("file exceeds analysis size limit")

// TypeInfo is a declared type.
type TypeInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// FunctionInfo is a declared function or method.
type FunctionInfo struct {
	Name     string `json:"name"`
	Params   string `json:"params,omitempty"`
	Receiver string `json:"receiver,omitempty"`
}

// FileAnalysis is the per-file result. Error is set instead of facts when
// the file could not be analyzed.
type FileAnalysis struct {
	Path      string         `json:"path"`
	Language  string         `json:"language,omitempty"`
	Types     []TypeInfo     `json:"types,omitempty"`
	Functions []FunctionInfo `json:"functions,omitempty"`
	Imports   []string       `json:"imports,omitempty"`
	Doc       string         `json:"doc,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// BatchResult aggregates a batch. One file's failure never aborts the rest.
type BatchResult struct {
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Files      []FileAnalysis `json:"files"`
}

// AnalyzeFiles analyzes each path in order and reports per-file outcomes.
func AnalyzeFiles(ctx context.Context, paths []string) *BatchResult {
	out := &BatchResult{Total: len(paths), Files: make([]FileAnalysis, 0, len(paths))}
	for _, path := range paths {
		fa := AnalyzeFile(ctx, path)
		if fa.Error != "" {
			out.Failed++
		} else {
			out.Successful++
		}
		out.Files = append(out.Files, fa)
	}
	return out
}

// AnalyzeFile analyzes one file, dispatching on extension.
func AnalyzeFile(ctx context.Context, path string) FileAnalysis {
	fa := FileAnalysis{Path: path}

	content, err := readBounded(path)
	if err != nil {
		fa.Error = (&faults.AnalysisError{Path: path, Err: err}).Error()
		return fa
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		fa.Language = "go"
		if err := analyzeGo(ctx, content, &fa); err != nil {
			fa.Error = (&faults.AnalysisError{Path: path, Err: err}).Error()
		}
	case ".py":
		fa.Language = "python"
		analyzePython(content, &fa)
	case ".js", ".jsx":
		fa.Language = "javascript"
		analyzeJavaScript(content, &fa)
	case ".ts", ".tsx":
		fa.Language = "typescript"
		analyzeJavaScript(content, &fa)
	default:
		fa.Error = "unsupported file type"
	}
	return fa
}

func readBounded(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxFileSize {
		return nil, errFileTooLarge
	}
	return os.ReadFile(path)
}

// Package scan walks a cloned workspace and builds the file inventory the
// generation layer works from.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yungbote/repodoc-backend/internal/pkg/faults"
)

const (
	maxDepth = 10
	maxFiles = 1000
)

// File categories.
const (
	CategoryCode          = "code"
	CategoryDocumentation = "documentation"
	CategoryConfig        = "config"
	CategoryOther         = "other"
)

var ignoreDirs = map[string]bool{
	".git": true, ".svn": true, ".hg": true,
	"node_modules": true, "__pycache__": true, ".pytest_cache": true,
	"venv": true, "env": true, "virtualenv": true,
	".idea": true, ".vscode": true, ".vs": true,
	"build": true, "dist": true, ".next": true, "out": true,
	"coverage": true, "htmlcov": true,
}

var ignoreFiles = map[string]bool{
	".DS_Store": true, "Thumbs.db": true, ".gitignore": true,
	"package-lock.json": true, "yarn.lock": true, "pnpm-lock.yaml": true,
}

var codeExtensions = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".java": true, ".c": true, ".cpp": true, ".h": true, ".hpp": true,
	".go": true, ".rs": true, ".rb": true, ".php": true,
	".cs": true, ".swift": true, ".kt": true, ".scala": true,
}

var docExtensions = map[string]bool{
	".md": true, ".rst": true, ".txt": true, ".adoc": true,
}

var configExtensions = map[string]bool{
	".json": true, ".yaml": true, ".yml": true, ".toml": true,
	".ini": true, ".cfg": true, ".env": true, ".example": true,
}

// Hidden entries are skipped except env templates, which carry setup signal.
var keepHidden = map[string]bool{
	".env": true, ".env.example": true,
}

// FileInfo is one inventory entry.
type FileInfo struct {
	Path         string `json:"path"`
	RelativePath string `json:"relative_path"`
	Name         string `json:"name"`
	Extension    string `json:"extension"`
	Size         int64  `json:"size"`
	Category     string `json:"category"`
}

// TreeNode is the hierarchical view of the workspace.
type TreeNode struct {
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Path      string      `json:"path,omitempty"`
	Size      int64       `json:"size,omitempty"`
	Extension string      `json:"extension,omitempty"`
	Category  string      `json:"category,omitempty"`
	Ignored   bool        `json:"ignored,omitempty"`
	Error     string      `json:"error,omitempty"`
	Children  []*TreeNode `json:"children,omitempty"`
}

// Stats aggregates the inventory.
type Stats struct {
	TotalFiles     int   `json:"total_files"`
	TotalDirs      int   `json:"total_dirs"`
	CodeFiles      int   `json:"code_files"`
	DocFiles       int   `json:"doc_files"`
	ConfigFiles    int   `json:"config_files"`
	OtherFiles     int   `json:"other_files"`
	TotalSizeBytes int64 `json:"total_size_bytes"`
}

// Result is the full scan output.
type Result struct {
	Tree  *TreeNode  `json:"tree"`
	Files []FileInfo `json:"files"`
	Stats Stats      `json:"stats"`
}

type walker struct {
	root  string
	files []FileInfo
	stats Stats
}

// Scan walks root and returns the tree, the flat inventory, and aggregate
// stats. It errors only when root itself is missing or unreadable; a
// permission failure deeper in the tree is recorded on that node.
func Scan(root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &faults.ScanError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &faults.ScanError{Path: root, Err: fmt.Errorf("not a directory")}
	}

	w := &walker{root: root, files: []FileInfo{}}
	tree := w.buildTree(root, info, 0)

	return &Result{
		Tree:  tree,
		Files: w.files,
		Stats: w.stats,
	}, nil
}

func (w *walker) buildTree(path string, info os.FileInfo, depth int) *TreeNode {
	name := info.Name()

	if depth > maxDepth {
		return &TreeNode{Name: name, Type: "directory", Error: "max depth reached"}
	}
	if w.stats.TotalFiles >= maxFiles {
		return &TreeNode{Name: name, Type: "directory", Error: "max files reached"}
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = name
	}

	if !info.IsDir() {
		ext := strings.ToLower(filepath.Ext(name))
		category := categorize(ext)
		switch category {
		case CategoryCode:
			w.stats.CodeFiles++
		case CategoryDocumentation:
			w.stats.DocFiles++
		case CategoryConfig:
			w.stats.ConfigFiles++
		default:
			w.stats.OtherFiles++
		}
		w.stats.TotalFiles++
		w.stats.TotalSizeBytes += info.Size()

		w.files = append(w.files, FileInfo{
			Path:         path,
			RelativePath: rel,
			Name:         name,
			Extension:    ext,
			Size:         info.Size(),
			Category:     category,
		})

		return &TreeNode{
			Name:      name,
			Type:      "file",
			Path:      rel,
			Size:      info.Size(),
			Extension: ext,
			Category:  category,
		}
	}

	node := &TreeNode{Name: name, Type: "directory", Path: rel}
	if ignoreDirs[name] {
		node.Ignored = true
		return node
	}
	w.stats.TotalDirs++

	entries, err := os.ReadDir(path)
	if err != nil {
		node.Error = "permission denied"
		return node
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	children := []*TreeNode{}
	for _, entry := range entries {
		childName := entry.Name()
		if ignoreFiles[childName] {
			continue
		}
		if strings.HasPrefix(childName, ".") && !keepHidden[childName] {
			continue
		}
		childInfo, err := entry.Info()
		if err != nil {
			children = append(children, &TreeNode{Name: childName, Error: "unreadable"})
			continue
		}
		children = append(children, w.buildTree(filepath.Join(path, childName), childInfo, depth+1))
	}
	node.Children = children
	return node
}

func categorize(ext string) string {
	switch {
	case codeExtensions[ext]:
		return CategoryCode
	case docExtensions[ext]:
		return CategoryDocumentation
	case configExtensions[ext]:
		return CategoryConfig
	default:
		return CategoryOther
	}
}

// CodeFiles filters the inventory down to code files, preserving scan order.
func CodeFiles(files []FileInfo) []FileInfo {
	out := []FileInfo{}
	for _, f := range files {
		if f.Category == CategoryCode {
			out = append(out, f)
		}
	}
	return out
}

// ImportantFiles returns READMEs, docs and config files, the entries worth
// quoting into a generation prompt.
func ImportantFiles(files []FileInfo) []FileInfo {
	importantNames := map[string]bool{
		"readme.md": true, "readme.txt": true, "readme": true,
		"contributing.md": true, "license": true, "license.md": true,
	}
	out := []FileInfo{}
	for _, f := range files {
		if importantNames[strings.ToLower(f.Name)] ||
			f.Category == CategoryDocumentation || f.Category == CategoryConfig {
			out = append(out, f)
		}
	}
	return out
}

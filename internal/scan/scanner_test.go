package scan

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func buildFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "README.md"), "# demo\n")
	writeFile(t, filepath.Join(root, "main.go"), "package main\n")
	writeFile(t, filepath.Join(root, "config.yaml"), "name: demo\n")
	writeFile(t, filepath.Join(root, "notes.bin"), "xx")
	writeFile(t, filepath.Join(root, "src", "app.py"), "print('hi')\n")
	writeFile(t, filepath.Join(root, "src", "util.js"), "module.exports = {}\n")
	writeFile(t, filepath.Join(root, "node_modules", "dep", "index.js"), "junk")
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/main")
	writeFile(t, filepath.Join(root, ".hidden"), "secret")
	writeFile(t, filepath.Join(root, ".env.example"), "KEY=\n")
	writeFile(t, filepath.Join(root, "package-lock.json"), "{}")
	return root
}

func TestScanInventoryAndStats(t *testing.T) {
	root := buildFixture(t)

	res, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	byRel := map[string]FileInfo{}
	for _, f := range res.Files {
		byRel[f.RelativePath] = f
	}

	if _, ok := byRel[filepath.Join("node_modules", "dep", "index.js")]; ok {
		t.Fatalf("node_modules contents should be excluded")
	}
	if _, ok := byRel["package-lock.json"]; ok {
		t.Fatalf("lockfiles should be excluded")
	}
	if _, ok := byRel[".hidden"]; ok {
		t.Fatalf("hidden files should be excluded")
	}
	if _, ok := byRel[".env.example"]; !ok {
		t.Fatalf("env templates should be kept")
	}

	if got := byRel["main.go"].Category; got != CategoryCode {
		t.Fatalf("main.go category = %s", got)
	}
	if got := byRel["README.md"].Category; got != CategoryDocumentation {
		t.Fatalf("README.md category = %s", got)
	}
	if got := byRel["config.yaml"].Category; got != CategoryConfig {
		t.Fatalf("config.yaml category = %s", got)
	}
	if got := byRel["notes.bin"].Category; got != CategoryOther {
		t.Fatalf("notes.bin category = %s", got)
	}

	if res.Stats.CodeFiles != 3 {
		t.Fatalf("code files = %d, want 3", res.Stats.CodeFiles)
	}
	if res.Stats.TotalFiles != len(res.Files) {
		t.Fatalf("stats/file inventory disagree: %d vs %d", res.Stats.TotalFiles, len(res.Files))
	}
	if res.Stats.TotalSizeBytes == 0 {
		t.Fatalf("total size should be counted")
	}
}

func TestScanMarksIgnoredDirs(t *testing.T) {
	root := buildFixture(t)
	res, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	var found bool
	for _, child := range res.Tree.Children {
		if child.Name == "node_modules" {
			found = true
			if !child.Ignored {
				t.Fatalf("node_modules should be marked ignored")
			}
			if len(child.Children) != 0 {
				t.Fatalf("ignored dirs must not be descended into")
			}
		}
	}
	if !found {
		t.Fatalf("node_modules node missing from tree")
	}
}

func TestScanDeterministicOrder(t *testing.T) {
	root := buildFixture(t)
	a, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	b, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(a.Files) != len(b.Files) {
		t.Fatalf("scan is not deterministic")
	}
	for i := range a.Files {
		if a.Files[i].RelativePath != b.Files[i].RelativePath {
			t.Fatalf("file order differs at %d: %s vs %s", i, a.Files[i].RelativePath, b.Files[i].RelativePath)
		}
	}
}

func TestScanMissingRoot(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("missing root should fail")
	}
}

func TestCodeFilesFilter(t *testing.T) {
	root := buildFixture(t)
	res, _ := Scan(root)
	for _, f := range CodeFiles(res.Files) {
		if f.Category != CategoryCode {
			t.Fatalf("CodeFiles leaked %s (%s)", f.RelativePath, f.Category)
		}
	}
	if len(CodeFiles(res.Files)) != 3 {
		t.Fatalf("want 3 code files, got %d", len(CodeFiles(res.Files)))
	}
}

package analyze

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

const goFixture = `package widgets

import (
	"fmt"
	"strings"
)

type Widget struct {
	Name string
}

type Painter interface {
	Paint() string
}

func NewWidget(name string) *Widget {
	return &Widget{Name: name}
}

func (w *Widget) Paint() string {
	return fmt.Sprintf("painted %s", strings.ToUpper(w.Name))
}
`

func TestAnalyzeGoFile(t *testing.T) {
	path := writeFixture(t, "widget.go", goFixture)
	fa := AnalyzeFile(context.Background(), path)
	if fa.Error != "" {
		t.Fatalf("unexpected error: %s", fa.Error)
	}
	if fa.Language != "go" {
		t.Fatalf("language = %s", fa.Language)
	}

	typeNames := map[string]string{}
	for _, ti := range fa.Types {
		typeNames[ti.Name] = ti.Kind
	}
	if typeNames["Widget"] != "struct" {
		t.Fatalf("Widget kind = %q", typeNames["Widget"])
	}
	if typeNames["Painter"] != "interface" {
		t.Fatalf("Painter kind = %q", typeNames["Painter"])
	}

	funcs := map[string]FunctionInfo{}
	for _, fn := range fa.Functions {
		funcs[fn.Name] = fn
	}
	if _, ok := funcs["NewWidget"]; !ok {
		t.Fatalf("NewWidget not extracted: %+v", fa.Functions)
	}
	paint, ok := funcs["Paint"]
	if !ok {
		t.Fatalf("Paint not extracted")
	}
	if paint.Receiver == "" {
		t.Fatalf("Paint should carry a receiver")
	}

	imports := map[string]bool{}
	for _, im := range fa.Imports {
		imports[im] = true
	}
	if !imports["fmt"] || !imports["strings"] {
		t.Fatalf("imports missing: %v", fa.Imports)
	}
}

func TestAnalyzeGoSyntaxError(t *testing.T) {
	path := writeFixture(t, "broken.go", "package broken\nfunc oops( {")
	fa := AnalyzeFile(context.Background(), path)
	if fa.Error == "" {
		t.Fatalf("syntax errors should be reported")
	}
}

const pyFixture = `"""Widget helpers."""
import os
from collections import defaultdict

class Widget:
    pass

def make_widget(name, size=1):
    return Widget()
`

func TestAnalyzePythonFile(t *testing.T) {
	path := writeFixture(t, "widget.py", pyFixture)
	fa := AnalyzeFile(context.Background(), path)
	if fa.Error != "" {
		t.Fatalf("unexpected error: %s", fa.Error)
	}
	if fa.Doc != "Widget helpers." {
		t.Fatalf("doc = %q", fa.Doc)
	}
	if len(fa.Types) != 1 || fa.Types[0].Name != "Widget" {
		t.Fatalf("types = %+v", fa.Types)
	}
	if len(fa.Functions) != 1 || fa.Functions[0].Name != "make_widget" {
		t.Fatalf("functions = %+v", fa.Functions)
	}
	if len(fa.Imports) != 2 {
		t.Fatalf("imports = %v", fa.Imports)
	}
}

const tsFixture = `import { api } from "./api";
const helper = require("./helper");

export interface Widget {
  name: string;
}

export class WidgetStore {}

export function loadWidget(id: string) {
  return api.get(id);
}

export const saveWidget = async (w: Widget) => api.put(w);
`

func TestAnalyzeTypeScriptFile(t *testing.T) {
	path := writeFixture(t, "widget.ts", tsFixture)
	fa := AnalyzeFile(context.Background(), path)
	if fa.Error != "" {
		t.Fatalf("unexpected error: %s", fa.Error)
	}

	names := map[string]bool{}
	for _, ti := range fa.Types {
		names[ti.Name] = true
	}
	if !names["Widget"] || !names["WidgetStore"] {
		t.Fatalf("types = %+v", fa.Types)
	}

	fns := map[string]bool{}
	for _, fn := range fa.Functions {
		fns[fn.Name] = true
	}
	if !fns["loadWidget"] || !fns["saveWidget"] {
		t.Fatalf("functions = %+v", fa.Functions)
	}
	if len(fa.Imports) != 2 {
		t.Fatalf("imports = %v", fa.Imports)
	}
}

func TestAnalyzeFilesBatchIsolation(t *testing.T) {
	good := writeFixture(t, "ok.go", "package ok\n\nfunc Fine() {}\n")
	missing := filepath.Join(t.TempDir(), "gone.go")
	unsupported := writeFixture(t, "data.csv", "a,b,c")

	res := AnalyzeFiles(context.Background(), []string{good, missing, unsupported})
	if res.Total != 3 {
		t.Fatalf("total = %d", res.Total)
	}
	if res.Successful != 1 || res.Failed != 2 {
		t.Fatalf("successful=%d failed=%d", res.Successful, res.Failed)
	}
	if res.Files[0].Error != "" {
		t.Fatalf("good file should pass: %s", res.Files[0].Error)
	}
	if res.Files[1].Error == "" || res.Files[2].Error == "" {
		t.Fatalf("bad files should carry per-file errors")
	}
}

package analyze

import (
	"regexp"
	"strings"
)

// Best-effort extractors for languages without an exact parser. They trade
// precision for never failing: a file that matches nothing simply yields an
// empty analysis.

var (
	pyImportRe   = regexp.MustCompile(`(?m)^\s*(?:from\s+([\w.]+)\s+import|import\s+([\w.]+))`)
	pyClassRe    = regexp.MustCompile(`(?m)^\s*class\s+(\w+)`)
	pyFunctionRe = regexp.MustCompile(`(?m)^\s*def\s+(\w+)\s*(\([^)]*\))`)
	pyDocRe      = regexp.MustCompile(`(?s)^\s*(?:"""(.*?)"""|'''(.*?)''')`)

	jsImportRe   = regexp.MustCompile(`(?m)(?:import\s+.*?from\s+|require\s*\(\s*)['"]([^'"]+)['"]`)
	jsClassRe    = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:default\s+)?class\s+(\w+)`)
	jsFunctionRe = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(\w+)\s*(\([^)]*\))`)
	jsArrowRe    = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?(\([^)]*\)|\w+)\s*=>`)
	tsTypeRe     = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(interface|type|enum)\s+(\w+)`)
)

func analyzePython(content []byte, fa *FileAnalysis) {
	src := string(content)

	if m := pyDocRe.FindStringSubmatch(src); m != nil {
		doc := m[1]
		if doc == "" {
			doc = m[2]
		}
		fa.Doc = strings.TrimSpace(doc)
	}
	for _, m := range pyImportRe.FindAllStringSubmatch(src, -1) {
		mod := m[1]
		if mod == "" {
			mod = m[2]
		}
		fa.Imports = append(fa.Imports, mod)
	}
	for _, m := range pyClassRe.FindAllStringSubmatch(src, -1) {
		fa.Types = append(fa.Types, TypeInfo{Name: m[1], Kind: "class"})
	}
	for _, m := range pyFunctionRe.FindAllStringSubmatch(src, -1) {
		fa.Functions = append(fa.Functions, FunctionInfo{Name: m[1], Params: m[2]})
	}
}

func analyzeJavaScript(content []byte, fa *FileAnalysis) {
	src := string(content)

	for _, m := range jsImportRe.FindAllStringSubmatch(src, -1) {
		fa.Imports = append(fa.Imports, m[1])
	}
	for _, m := range jsClassRe.FindAllStringSubmatch(src, -1) {
		fa.Types = append(fa.Types, TypeInfo{Name: m[1], Kind: "class"})
	}
	for _, m := range tsTypeRe.FindAllStringSubmatch(src, -1) {
		fa.Types = append(fa.Types, TypeInfo{Name: m[2], Kind: m[1]})
	}
	for _, m := range jsFunctionRe.FindAllStringSubmatch(src, -1) {
		fa.Functions = append(fa.Functions, FunctionInfo{Name: m[1], Params: m[2]})
	}
	for _, m := range jsArrowRe.FindAllStringSubmatch(src, -1) {
		params := m[2]
		if !strings.HasPrefix(params, "(") {
			params = "(" + params + ")"
		}
		fa.Functions = append(fa.Functions, FunctionInfo{Name: m[1], Params: params})
	}
}

package docgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/repodoc-backend/internal/analyze"
	"github.com/yungbote/repodoc-backend/internal/scan"
)

var errNotConfigured = errors.New("generation backend not configured")

const documentationSystemPrompt = "You are a technical documentation expert. " +
	"Generate comprehensive, well-structured documentation for codebases."

const annotationSystemPrompt = "You are a careful coding assistant. " +
	"You add explanatory comments to source files without changing the code."

const readmeExcerptLimit = 3000

func buildDocumentationPrompt(in DocumentationInput) string {
	isLarge := in.Stats.TotalFiles > largeRepoThreshold

	var b strings.Builder
	fmt.Fprintf(&b, "# Repository: %s\n\n", in.RepoName)

	if in.Metadata != nil {
		fmt.Fprintf(&b, "## Checked-Out Revision\n")
		fmt.Fprintf(&b, "- Branch: %s\n", in.Metadata.Branch)
		fmt.Fprintf(&b, "- Commit: %s\n", in.Metadata.CommitSHA)
		if in.Metadata.CommitMessage != "" {
			fmt.Fprintf(&b, "- Message: %s\n", in.Metadata.CommitMessage)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Repository Statistics\n")
	fmt.Fprintf(&b, "- Total Files: %d\n", in.Stats.TotalFiles)
	fmt.Fprintf(&b, "- Code Files: %d\n", in.Stats.CodeFiles)
	fmt.Fprintf(&b, "- Documentation Files: %d\n", in.Stats.DocFiles)
	fmt.Fprintf(&b, "- Configuration Files: %d\n", in.Stats.ConfigFiles)
	fmt.Fprintf(&b, "- Total Size: %s\n\n", formatBytes(in.Stats.TotalSizeBytes))

	treeDepth := 10
	if isLarge {
		treeDepth = 4
	}
	b.WriteString("## File Structure\n")
	b.WriteString(formatFileTree(in.Tree, 0, treeDepth))
	b.WriteString("\n\n## Code Analysis\n")
	b.WriteString(formatCodeAnalysis(in.Analysis, isLarge))
	b.WriteString("\n")

	if in.ReadmeContent != "" {
		excerpt := in.ReadmeContent
		if len(excerpt) > readmeExcerptLimit {
			excerpt = excerpt[:readmeExcerptLimit]
		}
		fmt.Fprintf(&b, "\n## Existing README\n%s\n", excerpt)
	}

	b.WriteString(documentationTask)
	return b.String()
}

const documentationTask = `

## Task
You are creating documentation comprehensive enough that a new engineer could clone the repo and get it running without external help.

Analyze the repository type and adapt your structure accordingly. Always include:

1. **Overview** - what the project does, primary use case, current status
2. **Architecture** - tech stack, high-level design, key decisions, data flow
3. **Getting Started** - prerequisites, installation steps, first-time setup, how to verify
4. **Environment Variables** - every variable, what it does, where to obtain credentials
5. **Scripts & Commands** - all scripts from package.json, Makefile, etc. and when to use them
6. **Project Structure** - directory layout with explanations
7. **Key Files** - the 5-10 most important files and their purpose
8. **Core Components** - main features and how they work together
9. **Dependencies** - major libraries, what each does and why
10. **API Documentation** (if applicable) - endpoints, request/response formats, auth
11. **Development Patterns** - conventions, state management, error handling
12. **Build & Deployment** - production builds, artifacts, deployment process
13. **Testing** - how to run tests; note clearly if none exist
14. **Troubleshooting** - common issues, gotchas, debugging tips

For large repositories, focus on high-level architecture, group similar files, and prioritize entry points over line-by-line detail. Flag missing critical files (no README, no .env.example) and obvious gaps.

Be specific and actionable. Include actual command examples, not placeholders. Format in clean markdown with proper heading hierarchy.`

func buildAnnotationPrompt(path, content, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Add inline comments to the following %s code to explain what it does.\n\n", language)
	b.WriteString("Guidelines:\n")
	b.WriteString("1. Add comments above functions/methods explaining purpose, parameters, and return values\n")
	b.WriteString("2. Add inline comments for complex logic or non-obvious sections\n")
	b.WriteString("3. Keep comments concise and meaningful; do not over-comment obvious code\n")
	fmt.Fprintf(&b, "4. Use the appropriate comment syntax for %s\n", language)
	b.WriteString("5. Preserve all original code exactly as-is; only add comments\n\n")
	fmt.Fprintf(&b, "File: %s\n\n", path)
	fmt.Fprintf(&b, "```%s\n%s\n```\n\n", language, content)
	b.WriteString("Return ONLY the commented code, with no additional explanation or markdown formatting.")
	return b.String()
}

func formatFileTree(node *scan.TreeNode, indent, maxDepth int) string {
	if node == nil || indent > maxDepth {
		return ""
	}
	prefix := strings.Repeat("  ", indent)
	var lines []string

	if node.Type == "directory" {
		lines = append(lines, fmt.Sprintf("%s- %s/", prefix, node.Name))
		// Wide directories get truncated harder the deeper they sit.
		maxChildren := 30
		if indent >= 2 {
			maxChildren = 15
		}
		children := node.Children
		if len(children) > maxChildren {
			children = children[:maxChildren]
		}
		for _, child := range children {
			if s := formatFileTree(child, indent+1, maxDepth); s != "" {
				lines = append(lines, s)
			}
		}
	} else {
		lines = append(lines, fmt.Sprintf("%s- %s (%s)", prefix, node.Name, formatBytes(node.Size)))
	}
	return strings.Join(lines, "\n")
}

func formatCodeAnalysis(analysis *analyze.BatchResult, isLarge bool) string {
	if analysis == nil || len(analysis.Files) == 0 {
		return "No code analysis available."
	}

	if isLarge {
		return formatGroupedAnalysis(analysis)
	}

	lines := []string{"Key code files analyzed:"}
	files := analysis.Files
	if len(files) > 15 {
		files = files[:15]
	}
	for _, fa := range files {
		if fa.Error != "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("\n### %s", fa.Path))
		if names := typeNames(fa.Types, 5); len(names) > 0 {
			lines = append(lines, fmt.Sprintf("  Types: %s", strings.Join(names, ", ")))
		}
		if names := functionNames(fa.Functions, 10); len(names) > 0 {
			lines = append(lines, fmt.Sprintf("  Functions: %s", strings.Join(names, ", ")))
		}
		if len(fa.Imports) > 0 {
			imports := fa.Imports
			if len(imports) > 5 {
				imports = imports[:5]
			}
			lines = append(lines, fmt.Sprintf("  Key Imports: %s", strings.Join(imports, ", ")))
		}
	}
	return strings.Join(lines, "\n")
}

// formatGroupedAnalysis collapses per-file detail into per-component
// summaries keyed by top-level directory.
func formatGroupedAnalysis(analysis *analyze.BatchResult) string {
	type group struct {
		files     []string
		types     []string
		functions []string
	}
	groups := map[string]*group{}
	order := []string{}

	files := analysis.Files
	if len(files) > 20 {
		files = files[:20]
	}
	for _, fa := range files {
		parts := strings.Split(fa.Path, "/")
		component := "root"
		if len(parts) > 1 {
			component = parts[0]
		}
		g, ok := groups[component]
		if !ok {
			g = &group{}
			groups[component] = g
			order = append(order, component)
		}
		g.files = append(g.files, parts[len(parts)-1])
		if fa.Error == "" {
			g.types = append(g.types, typeNames(fa.Types, 3)...)
			g.functions = append(g.functions, functionNames(fa.Functions, 3)...)
		}
	}

	if len(order) > 8 {
		order = order[:8]
	}
	lines := []string{"Code structure summary (grouped by component):"}
	for _, component := range order {
		g := groups[component]
		lines = append(lines, fmt.Sprintf("\n### %s/", component))
		lines = append(lines, fmt.Sprintf("  Files: %s", strings.Join(capped(g.files, 5), ", ")))
		if len(g.types) > 0 {
			lines = append(lines, fmt.Sprintf("  Key Types: %s", strings.Join(capped(g.types, 5), ", ")))
		}
		if len(g.functions) > 0 {
			lines = append(lines, fmt.Sprintf("  Key Functions: %s", strings.Join(capped(g.functions, 5), ", ")))
		}
	}
	return strings.Join(lines, "\n")
}

func typeNames(types []analyze.TypeInfo, n int) []string {
	out := []string{}
	for _, t := range types {
		if len(out) == n {
			break
		}
		out = append(out, t.Name)
	}
	return out
}

func functionNames(fns []analyze.FunctionInfo, n int) []string {
	out := []string{}
	for _, f := range fns {
		if len(out) == n {
			break
		}
		out = append(out, f.Name)
	}
	return out
}

func capped(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func formatBytes(size int64) string {
	v := float64(size)
	for _, unit := range []string{"B", "KB", "MB"} {
		if v < 1024.0 {
			return fmt.Sprintf("%.1f %s", v, unit)
		}
		v /= 1024.0
	}
	return fmt.Sprintf("%.1f GB", v)
}

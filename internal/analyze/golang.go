package analyze

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// analyzeGo parses Go source exactly with tree-sitter and fills fa with
// declared types, functions, methods, imports and the package clause.
func analyzeGo(ctx context.Context, content []byte, fa *FileAnalysis) error {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return fmt.Errorf("tree-sitter returned nil root node")
	}
	if root.HasError() {
		return fmt.Errorf("source contains syntax errors")
	}

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "package_clause":
			fa.Doc = nodeText(child, content)
		case "import_declaration":
			collectGoImports(child, content, fa)
		case "function_declaration":
			if fn, ok := goFunction(child, content); ok {
				fa.Functions = append(fa.Functions, fn)
			}
		case "method_declaration":
			if fn, ok := goMethod(child, content); ok {
				fa.Functions = append(fa.Functions, fn)
			}
		case "type_declaration":
			collectGoTypes(child, content, fa)
		}
	}
	return nil
}

func collectGoImports(node *sitter.Node, content []byte, fa *FileAnalysis) {
	var walkSpec func(n *sitter.Node)
	walkSpec = func(n *sitter.Node) {
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			switch child.Type() {
			case "import_spec":
				walkSpec(child)
			case "import_spec_list":
				walkSpec(child)
			case "interpreted_string_literal":
				path := strings.Trim(nodeText(child, content), "\"")
				if path != "" {
					fa.Imports = append(fa.Imports, path)
				}
			}
		}
	}
	walkSpec(node)
}

func goFunction(node *sitter.Node, content []byte) (FunctionInfo, bool) {
	var fn FunctionInfo
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			fn.Name = nodeText(child, content)
		case "parameter_list":
			if fn.Params == "" {
				fn.Params = nodeText(child, content)
			}
		}
	}
	return fn, fn.Name != ""
}

func goMethod(node *sitter.Node, content []byte) (FunctionInfo, bool) {
	var fn FunctionInfo
	sawReceiver := false
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "field_identifier":
			fn.Name = nodeText(child, content)
		case "parameter_list":
			// The first parameter_list on a method is the receiver.
			if !sawReceiver {
				fn.Receiver = nodeText(child, content)
				sawReceiver = true
			} else if fn.Params == "" {
				fn.Params = nodeText(child, content)
			}
		}
	}
	return fn, fn.Name != ""
}

func collectGoTypes(node *sitter.Node, content []byte, fa *FileAnalysis) {
	for i := 0; i < int(node.ChildCount()); i++ {
		spec := node.Child(i)
		if spec.Type() != "type_spec" && spec.Type() != "type_alias" {
			continue
		}
		var ti TypeInfo
		for j := 0; j < int(spec.ChildCount()); j++ {
			child := spec.Child(j)
			switch child.Type() {
			case "type_identifier":
				if ti.Name == "" {
					ti.Name = nodeText(child, content)
				} else if ti.Kind == "" {
					ti.Kind = "alias"
				}
			case "struct_type":
				ti.Kind = "struct"
			case "interface_type":
				ti.Kind = "interface"
			}
		}
		if ti.Name != "" {
			if ti.Kind == "" {
				ti.Kind = "type"
			}
			fa.Types = append(fa.Types, ti)
		}
	}
}

func nodeText(n *sitter.Node, content []byte) string {
	return strings.TrimSpace(string(content[n.StartByte():n.EndByte()]))
}

package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type PythonExtractor struct{}

func (e *PythonExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{
		Path:     filePath,
		Language: "python",
	}

	ctx := &ExtractionContext{Source: source, File: file}
	engine := NewExtractorEngine(map[string]NodeHandler{
		"function_definition": e.extractFunction,
		"class_definition":    e.extractClass,
		"call":                e.extractCall,
	})
	engine.Walk(ctx, root)

	return file, nil
}

func (e *PythonExtractor) extractFunction(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.ChildText(node, "identifier")
	if name == "" {
		return false
	}

	kind := KindFunction
	if e.enclosedByClass(node) {
		kind = KindMethod
	}

	ctx.File.Definitions = append(ctx.File.Definitions, Definition{
		Name:      name,
		Kind:      kind,
		Scope:     ctx.Scope(),
		StartLine: ctx.Line(node),
		EndLine:   ctx.EndLine(node),
	})

	ctx.EnterScope(name)
	ctx.WalkChildren(node)
	ctx.LeaveScope()
	return true
}

func (e *PythonExtractor) extractClass(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.ChildText(node, "identifier")
	if name == "" {
		return false
	}

	ctx.File.Definitions = append(ctx.File.Definitions, Definition{
		Name:         name,
		Kind:         KindClass,
		Scope:        ctx.Scope(),
		Superclasses: e.superclasses(ctx, node),
		StartLine:    ctx.Line(node),
		EndLine:      ctx.EndLine(node),
	})

	ctx.EnterScope(name)
	ctx.WalkChildren(node)
	ctx.LeaveScope()
	return true
}

func (e *PythonExtractor) extractCall(ctx *ExtractionContext, node *sitter.Node) bool {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return false
	}

	var callee string
	switch fn.Kind() {
	case "identifier":
		callee = ctx.Text(fn)
	case "attribute":
		// Flatten attribute chains like obj.method or Class.method; bail on
		// anything more dynamic (subscripts, call results).
		callee = e.attributeChain(ctx, fn)
	}
	callee = normalizeCalleeText(callee)
	if callee == "" {
		return false
	}

	ctx.File.CallSites = append(ctx.File.CallSites, CallSite{
		CalleeText: callee,
		Scope:      ctx.Scope(),
		Line:       ctx.Line(node),
	})
	return false
}

func (e *PythonExtractor) attributeChain(ctx *ExtractionContext, node *sitter.Node) string {
	parts := make([]string, 0, 4)
	cur := node
	for cur != nil && cur.Kind() == "attribute" {
		attr := cur.ChildByFieldName("attribute")
		if attr == nil {
			return ""
		}
		parts = append(parts, ctx.Text(attr))
		cur = cur.ChildByFieldName("object")
	}
	if cur == nil || cur.Kind() != "identifier" {
		// Chain rooted in something other than a plain name; keep the
		// attribute parts only so the base name still resolves.
		if len(parts) == 0 {
			return ""
		}
	} else {
		parts = append(parts, ctx.Text(cur))
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

func (e *PythonExtractor) superclasses(ctx *ExtractionContext, node *sitter.Node) []string {
	args := node.ChildByFieldName("superclasses")
	if args == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < args.ChildCount(); i++ {
		child := args.Child(i)
		switch child.Kind() {
		case "identifier":
			out = append(out, ctx.Text(child))
		case "attribute":
			if chain := e.attributeChain(ctx, child); chain != "" {
				out = append(out, chain)
			}
		}
	}
	return out
}

func (e *PythonExtractor) enclosedByClass(node *sitter.Node) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case "class_definition":
			return true
		case "function_definition":
			return false
		}
	}
	return false
}

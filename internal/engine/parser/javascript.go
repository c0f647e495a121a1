package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// JavaScriptExtractor handles both javascript and typescript sources; the
// node kinds this walker cares about are shared between the two grammars.
type JavaScriptExtractor struct{}

func (e *JavaScriptExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{
		Path:     filePath,
		Language: "javascript",
	}

	ctx := &ExtractionContext{Source: source, File: file}
	engine := NewExtractorEngine(map[string]NodeHandler{
		"function_declaration":           e.extractFunction,
		"generator_function_declaration": e.extractFunction,
		"method_definition":              e.extractMethod,
		"class_declaration":              e.extractClass,
		"call_expression":                e.extractCall,
	})
	engine.Walk(ctx, root)

	return file, nil
}

func (e *JavaScriptExtractor) extractFunction(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.Text(node.ChildByFieldName("name"))
	if name == "" {
		return false
	}

	ctx.File.Definitions = append(ctx.File.Definitions, Definition{
		Name:      name,
		Kind:      KindFunction,
		Scope:     ctx.Scope(),
		StartLine: ctx.Line(node),
		EndLine:   ctx.EndLine(node),
	})

	ctx.EnterScope(name)
	ctx.WalkChildren(node)
	ctx.LeaveScope()
	return true
}

func (e *JavaScriptExtractor) extractMethod(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.Text(node.ChildByFieldName("name"))
	if name == "" {
		return false
	}

	ctx.File.Definitions = append(ctx.File.Definitions, Definition{
		Name:      name,
		Kind:      KindMethod,
		Scope:     ctx.Scope(),
		StartLine: ctx.Line(node),
		EndLine:   ctx.EndLine(node),
	})

	ctx.EnterScope(name)
	ctx.WalkChildren(node)
	ctx.LeaveScope()
	return true
}

func (e *JavaScriptExtractor) extractClass(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.Text(node.ChildByFieldName("name"))
	if name == "" {
		return false
	}

	ctx.File.Definitions = append(ctx.File.Definitions, Definition{
		Name:         name,
		Kind:         KindClass,
		Scope:        ctx.Scope(),
		Superclasses: e.heritage(ctx, node),
		StartLine:    ctx.Line(node),
		EndLine:      ctx.EndLine(node),
	})

	ctx.EnterScope(name)
	ctx.WalkChildren(node)
	ctx.LeaveScope()
	return true
}

func (e *JavaScriptExtractor) extractCall(ctx *ExtractionContext, node *sitter.Node) bool {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return false
	}

	var callee string
	switch fn.Kind() {
	case "identifier":
		callee = ctx.Text(fn)
	case "member_expression":
		callee = ctx.Text(fn)
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

func (e *JavaScriptExtractor) heritage(ctx *ExtractionContext, node *sitter.Node) []string {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != "class_heritage" {
			continue
		}
		var out []string
		for j := uint(0); j < child.ChildCount(); j++ {
			sub := child.Child(j)
			switch sub.Kind() {
			case "identifier", "member_expression":
				if text := normalizeCalleeText(ctx.Text(sub)); text != "" {
					out = append(out, text)
				}
			}
		}
		return out
	}
	return nil
}

package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type GoExtractor struct{}

func (e *GoExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{
		Path:     filePath,
		Language: "go",
	}

	ctx := &ExtractionContext{Source: source, File: file}
	engine := NewExtractorEngine(map[string]NodeHandler{
		"function_declaration": e.extractFunction,
		"method_declaration":   e.extractMethod,
		"type_declaration":     e.extractType,
		"call_expression":      e.extractCall,
	})
	engine.Walk(ctx, root)

	return file, nil
}

func (e *GoExtractor) extractFunction(ctx *ExtractionContext, node *sitter.Node) bool {
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

func (e *GoExtractor) extractMethod(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.Text(node.ChildByFieldName("name"))
	if name == "" {
		return false
	}

	// Methods are scoped under their receiver type so that qualified names
	// come out as pkg:Type.Method.
	recv := e.receiverType(ctx, node.ChildByFieldName("receiver"))
	scope := ctx.Scope()
	if recv != "" {
		scope = append(scope, recv)
	}

	ctx.File.Definitions = append(ctx.File.Definitions, Definition{
		Name:      name,
		Kind:      KindMethod,
		Scope:     scope,
		StartLine: ctx.Line(node),
		EndLine:   ctx.EndLine(node),
	})

	if recv != "" {
		ctx.EnterScope(recv)
	}
	ctx.EnterScope(name)
	ctx.WalkChildren(node)
	ctx.LeaveScope()
	if recv != "" {
		ctx.LeaveScope()
	}
	return true
}

func (e *GoExtractor) extractType(ctx *ExtractionContext, node *sitter.Node) bool {
	// Struct and interface types act as containment scopes for methods; they
	// surface as class-kind definitions.
	for i := uint(0); i < node.ChildCount(); i++ {
		spec := node.Child(i)
		if spec.Kind() != "type_spec" {
			continue
		}
		name := ctx.Text(spec.ChildByFieldName("name"))
		if name == "" {
			continue
		}
		typeNode := spec.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		switch typeNode.Kind() {
		case "struct_type", "interface_type":
			ctx.File.Definitions = append(ctx.File.Definitions, Definition{
				Name:      name,
				Kind:      KindClass,
				Scope:     ctx.Scope(),
				StartLine: ctx.Line(spec),
				EndLine:   ctx.EndLine(spec),
			})
		}
	}
	return true
}

func (e *GoExtractor) extractCall(ctx *ExtractionContext, node *sitter.Node) bool {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return false
	}

	var callee string
	switch fn.Kind() {
	case "identifier":
		callee = ctx.Text(fn)
	case "selector_expression":
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

func (e *GoExtractor) receiverType(ctx *ExtractionContext, recv *sitter.Node) string {
	if recv == nil {
		return ""
	}
	for i := uint(0); i < recv.ChildCount(); i++ {
		child := recv.Child(i)
		if child.Kind() != "parameter_declaration" {
			continue
		}
		typeNode := child.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		text := ctx.Text(typeNode)
		text = strings.TrimLeft(text, "*")
		if idx := strings.Index(text, "["); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}
	return ""
}

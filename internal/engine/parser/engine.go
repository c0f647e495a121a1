package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler processes a node for a language-specific extractor.
// Returns true if the handler has walked the node's children itself and the
// walker should not descend again.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

// ExtractionContext carries shared state and helpers used by all extractors.
// The scope stack tracks the enclosing definitions during the walk.
type ExtractionContext struct {
	Source []byte
	File   *File

	engine *ExtractorEngine
	scope  []string
}

// ExtractorEngine walks the syntax tree and dispatches node handlers by kind.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}
	if ctx.engine == nil {
		ctx.engine = e
	}

	handled := false
	if handler, ok := e.handlers[node.Kind()]; ok {
		handled = handler(ctx, node)
	}

	if !handled {
		ctx.WalkChildren(node)
	}
}

// WalkChildren descends into a node's children. Handlers that push a scope
// call this between EnterScope and LeaveScope.
func (c *ExtractionContext) WalkChildren(node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		c.engine.Walk(c, node.Child(i))
	}
}

// EnterScope pushes a definition name onto the scope stack.
func (c *ExtractionContext) EnterScope(name string) {
	c.scope = append(c.scope, name)
}

// LeaveScope pops the innermost scope name.
func (c *ExtractionContext) LeaveScope() {
	if len(c.scope) > 0 {
		c.scope = c.scope[:len(c.scope)-1]
	}
}

// Scope returns a copy of the current scope stack, outermost first.
func (c *ExtractionContext) Scope() []string {
	if len(c.scope) == 0 {
		return nil
	}
	return append([]string(nil), c.scope...)
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

func (c *ExtractionContext) Line(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

func (c *ExtractionContext) EndLine(node *sitter.Node) int {
	return int(node.EndPosition().Row) + 1
}

func (c *ExtractionContext) ChildText(node *sitter.Node, kind string) string {
	if node == nil {
		return ""
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == kind {
			return c.Text(child)
		}
	}
	return ""
}

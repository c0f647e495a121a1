package parser

import (
	"ccg/internal/core/errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Extractor turns a parsed syntax tree into a File.
type Extractor interface {
	Extract(root *sitter.Node, source []byte, filePath string) (*File, error)
}

// Parser is the per-file front end. It holds no mutable state after
// construction: ParseFile creates a fresh tree-sitter parser per call, so
// concurrent invocations across files need no synchronization.
type Parser struct {
	languages  map[string]*sitter.Language
	extractors map[string]Extractor
	extensions map[string]string
}

// NewParser registers the built-in grammars and extractors.
func NewParser() *Parser {
	p := &Parser{
		languages: map[string]*sitter.Language{
			"go":         sitter.NewLanguage(tree_sitter_go.Language()),
			"python":     sitter.NewLanguage(tree_sitter_python.Language()),
			"javascript": sitter.NewLanguage(tree_sitter_javascript.Language()),
			"typescript": sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
		},
		extractors: map[string]Extractor{
			"go":         &GoExtractor{},
			"python":     &PythonExtractor{},
			"javascript": &JavaScriptExtractor{},
			"typescript": &JavaScriptExtractor{},
		},
		extensions: map[string]string{
			".go":  "go",
			".py":  "python",
			".js":  "javascript",
			".jsx": "javascript",
			".mjs": "javascript",
			".ts":  "typescript",
			".tsx": "typescript",
		},
	}
	return p
}

// ParseFile extracts definitions and call sites from one file. The language
// tag is trusted when set; otherwise it is detected from the extension.
// Unsupported languages yield an empty, still-inventoried File and no error.
func (p *Parser) ParseFile(path string, content []byte, language string) (*File, error) {
	lang := strings.ToLower(strings.TrimSpace(language))
	if lang == "" {
		lang = p.DetectLanguage(path)
	}

	grammar, ok := p.languages[lang]
	if !ok {
		return &File{Path: path, Language: lang, Supported: false}, nil
	}
	extractor := p.extractors[lang]
	if extractor == nil {
		return &File{Path: path, Language: lang, Supported: false}, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(grammar); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("set language %s", lang))
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeParseError, "parse returned no tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, errors.New(errors.CodeParseError, "parse returned no root node")
	}
	if root.HasError() {
		return nil, errors.New(errors.CodeParseError, "syntax errors in source")
	}

	file, err := extractor.Extract(root, content, path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeParseError, "extraction failed")
	}
	file.Supported = true
	return file, nil
}

// DetectLanguage maps a file extension to a registered language, or "".
func (p *Parser) DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return p.extensions[ext]
}

// IsSupportedPath reports whether a path maps to a registered grammar.
func (p *Parser) IsSupportedPath(path string) bool {
	return p.DetectLanguage(path) != ""
}

// SupportedLanguages lists the registered language tags, sorted.
func (p *Parser) SupportedLanguages() []string {
	out := make([]string, 0, len(p.languages))
	for lang := range p.languages {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

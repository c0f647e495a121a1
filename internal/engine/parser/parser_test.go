package parser

import (
	"reflect"
	"testing"

	"ccg/internal/core/errors"
)

func findDef(t *testing.T, f *File, name string, scope ...string) Definition {
	t.Helper()
	for _, d := range f.Definitions {
		if d.Name == name && reflect.DeepEqual(d.Scope, scope) {
			return d
		}
	}
	if len(scope) == 0 {
		for _, d := range f.Definitions {
			if d.Name == name && len(d.Scope) == 0 {
				return d
			}
		}
	}
	t.Fatalf("definition %q (scope %v) not found in %+v", name, scope, f.Definitions)
	return Definition{}
}

func findCall(t *testing.T, f *File, callee string) CallSite {
	t.Helper()
	for _, cs := range f.CallSites {
		if cs.CalleeText == callee {
			return cs
		}
	}
	t.Fatalf("call site %q not found in %+v", callee, f.CallSites)
	return CallSite{}
}

func TestParseFile_Python(t *testing.T) {
	source := []byte(`def top():
    helper()

class Widget(Base):
    def run(self):
        self.render()
        top()

def helper():
    pass
`)
	p := NewParser()
	f, err := p.ParseFile("pkg/widget.py", source, "python")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if !f.Supported {
		t.Fatal("python file reported unsupported")
	}

	top := findDef(t, f, "top")
	if top.Kind != KindFunction || top.StartLine != 1 {
		t.Errorf("top = %+v", top)
	}

	widget := findDef(t, f, "Widget")
	if widget.Kind != KindClass {
		t.Errorf("Widget kind = %q", widget.Kind)
	}
	if !reflect.DeepEqual(widget.Superclasses, []string{"Base"}) {
		t.Errorf("superclasses = %v", widget.Superclasses)
	}

	run := findDef(t, f, "run", "Widget")
	if run.Kind != KindMethod {
		t.Errorf("run kind = %q, want method", run.Kind)
	}

	render := findCall(t, f, "self.render")
	if !reflect.DeepEqual(render.Scope, []string{"Widget", "run"}) {
		t.Errorf("render scope = %v", render.Scope)
	}

	helperCall := findCall(t, f, "helper")
	if !reflect.DeepEqual(helperCall.Scope, []string{"top"}) {
		t.Errorf("helper scope = %v", helperCall.Scope)
	}
}

func TestParseFile_Go(t *testing.T) {
	source := []byte(`package widget

type Widget struct{}

func (w *Widget) Run() {
	render()
}

func render() {
	helper.Do()
}
`)
	p := NewParser()
	f, err := p.ParseFile("widget.go", source, "go")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	widget := findDef(t, f, "Widget")
	if widget.Kind != KindClass {
		t.Errorf("Widget kind = %q", widget.Kind)
	}

	run := findDef(t, f, "Run", "Widget")
	if run.Kind != KindMethod {
		t.Errorf("Run kind = %q", run.Kind)
	}

	renderCall := findCall(t, f, "render")
	if !reflect.DeepEqual(renderCall.Scope, []string{"Widget", "Run"}) {
		t.Errorf("render call scope = %v", renderCall.Scope)
	}
	findCall(t, f, "helper.Do")
}

func TestParseFile_JavaScript(t *testing.T) {
	source := []byte(`class Child extends Base {
  run() {
    this.render();
  }
}

function render() {
  fetch("/x");
}
`)
	p := NewParser()
	f, err := p.ParseFile("app.js", source, "javascript")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	child := findDef(t, f, "Child")
	if !reflect.DeepEqual(child.Superclasses, []string{"Base"}) {
		t.Errorf("superclasses = %v", child.Superclasses)
	}
	run := findDef(t, f, "run", "Child")
	if run.Kind != KindMethod {
		t.Errorf("run kind = %q", run.Kind)
	}
	findCall(t, f, "this.render")
	findCall(t, f, "fetch")
}

func TestParseFile_UnsupportedLanguage(t *testing.T) {
	p := NewParser()
	f, err := p.ParseFile("notes.txt", []byte("hello"), "")
	if err != nil {
		t.Fatalf("unsupported input should not error, got %v", err)
	}
	if f.Supported {
		t.Error("txt file reported supported")
	}
	if len(f.Definitions) != 0 || len(f.CallSites) != 0 {
		t.Error("unsupported file produced extractions")
	}
}

func TestParseFile_MalformedSource(t *testing.T) {
	p := NewParser()
	_, err := p.ParseFile("bad.py", []byte("def (:\n"), "python")
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if !errors.IsCode(err, errors.CodeParseError) {
		t.Errorf("error code mismatch: %v", err)
	}
}

func TestDetectLanguage(t *testing.T) {
	p := NewParser()
	cases := map[string]string{
		"a/b/main.go":   "go",
		"src/app.py":    "python",
		"web/index.jsx": "javascript",
		"web/api.ts":    "typescript",
		"README.md":     "",
	}
	for path, want := range cases {
		if got := p.DetectLanguage(path); got != want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", path, got, want)
		}
	}
	if p.IsSupportedPath("README.md") {
		t.Error("markdown reported supported")
	}
	langs := p.SupportedLanguages()
	want := []string{"go", "javascript", "python", "typescript"}
	if !reflect.DeepEqual(langs, want) {
		t.Errorf("SupportedLanguages() = %v", langs)
	}
}

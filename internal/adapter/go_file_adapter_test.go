package adapter

import (
	"context"
	"testing"

	m "covmap.dev/pkg/covmap/internal/model"
)

const itemsSrc = `package p

const c = 1

var v = func() int { return 2 }

type T struct{}

func (t *T) M() {}

//covmap:off
func off() {}

func decl()

func outer() {
	f := func() {
		g := func() {}
		g()
	}
	f()
}
`

func goSource(path string) m.Source {
	return m.Source{Origin: &m.File{FullPath: m.Path(path), ShortPath: m.Path(path)}}
}

func TestLocalGoFileAdapter_LoadUnit(t *testing.T) {
	adapter := NewLocalGoFileAdapter()

	unit, err := adapter.LoadUnit(context.Background(), goSource("items.go"), []byte(itemsSrc))
	if err != nil {
		t.Fatalf("LoadUnit() error = %v", err)
	}

	want := []struct {
		name string
		kind m.ItemKind
	}{
		{"c", m.KindConst},
		{"v", m.KindVar},
		{"v.func1", m.KindClosure},
		{"T", m.KindType},
		{"(*T).M", m.KindMethod},
		{"off", m.KindFunc},
		{"decl", m.KindFunc},
		{"outer", m.KindFunc},
		{"outer.func1", m.KindClosure},
		{"outer.func1.func1", m.KindClosure},
	}

	if len(unit.Functions) != len(want) {
		t.Fatalf("LoadUnit() returned %d items, want %d", len(unit.Functions), len(want))
	}

	for i, w := range want {
		fn := unit.Functions[i]
		if fn.Name != w.name || fn.Kind != w.kind {
			t.Errorf("item %d = %s (%s), want %s (%s)", i, fn.Name, fn.Kind, w.name, w.kind)
		}
	}

	byName := map[string]*m.Function{}
	for _, fn := range unit.Functions {
		byName[fn.Name] = fn
	}

	if !byName["off"].CoverageOff {
		t.Errorf("off should carry the coverage opt-out")
	}

	if byName["decl"].Body != nil {
		t.Errorf("decl has no body but was lowered")
	}

	if byName["c"].Body != nil || byName["T"].Body != nil {
		t.Errorf("non function items must not have a body")
	}

	if byName["outer.func1"].Body == nil || len(byName["outer.func1"].Body.Blocks) == 0 {
		t.Errorf("closure body was not lowered")
	}

	if unit.SourceMap.LookupFile(byName["outer"].Body.Span.Lo) == nil {
		t.Errorf("body span is not resolvable through the unit's source map")
	}
}

func TestLocalGoFileAdapter_LoadUnit_Generated(t *testing.T) {
	adapter := NewLocalGoFileAdapter()
	src := "// Code generated by tool. DO NOT EDIT.\n\npackage p\n\nfunc f() { _ = func() {} }\n"

	unit, err := adapter.LoadUnit(context.Background(), goSource("gen.go"), []byte(src))
	if err != nil {
		t.Fatalf("LoadUnit() error = %v", err)
	}

	if len(unit.Functions) != 2 {
		t.Fatalf("LoadUnit() returned %d items, want 2", len(unit.Functions))
	}

	for _, fn := range unit.Functions {
		if !fn.Generated {
			t.Errorf("%s should be marked generated", fn.Name)
		}
	}
}

func TestLocalGoFileAdapter_LoadUnit_Snippets(t *testing.T) {
	adapter := NewLocalGoFileAdapter()
	doc := "# Title\n\n```go\npackage main\n\nfunc main() {}\n```\n\n```go\nfmt.Println(\"x\")\n```\n"

	source := goSource("README.md")
	source.Snippet = true

	unit, err := adapter.LoadUnit(context.Background(), source, []byte(doc))
	if err != nil {
		t.Fatalf("LoadUnit() error = %v", err)
	}

	if len(unit.Functions) != 1 {
		t.Fatalf("LoadUnit() returned %d items, want 1", len(unit.Functions))
	}

	fn := unit.Functions[0]
	if fn.Name != "snippet1.main" {
		t.Errorf("snippet function name = %s", fn.Name)
	}

	file := unit.SourceMap.LookupFile(fn.Body.Span.Lo)
	if file == nil {
		t.Fatalf("snippet body not resolvable")
	}

	if file.Name != "README.md" || !file.Snippet || unit.SourceMap.SnippetLineOffset(file) != 3 {
		t.Errorf("snippet file = %s snippet=%v offset=%d", file.Name, file.Snippet, unit.SourceMap.SnippetLineOffset(file))
	}
}

func TestLocalGoFileAdapter_LoadUnit_SkipsBrokenSnippet(t *testing.T) {
	adapter := NewLocalGoFileAdapter()
	doc := "```go\npackage main\n\nfunc broken() {\n\t...\n}\n```\n\n```go\npackage main\n\nfunc ok() {}\n```\n"

	source := goSource("GUIDE.md")
	source.Snippet = true

	unit, err := adapter.LoadUnit(context.Background(), source, []byte(doc))
	if err != nil {
		t.Fatalf("LoadUnit() error = %v", err)
	}

	if len(unit.Functions) != 1 {
		t.Fatalf("LoadUnit() returned %d items, want 1", len(unit.Functions))
	}

	if name := unit.Functions[0].Name; name != "snippet2.ok" {
		t.Errorf("snippet function name = %s, want snippet2.ok", name)
	}
}

func TestLocalGoFileAdapter_LoadUnit_InvalidSource(t *testing.T) {
	adapter := NewLocalGoFileAdapter()

	if _, err := adapter.LoadUnit(context.Background(), goSource("broken.go"), []byte("package foo\n func")); err == nil {
		t.Fatalf("LoadUnit() expected error for invalid source")
	}
}

func TestLocalGoFileAdapter_LoadUnit_NilOrigin(t *testing.T) {
	adapter := NewLocalGoFileAdapter()

	if _, err := adapter.LoadUnit(context.Background(), m.Source{}, []byte("package p\n")); err == nil {
		t.Fatalf("LoadUnit() expected error for missing origin")
	}
}

func TestLocalGoFileAdapter_LoadUnit_ContextCancellation(t *testing.T) {
	adapter := NewLocalGoFileAdapter()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	if _, err := adapter.LoadUnit(ctx, goSource("example.go"), []byte("package main\n func main() {}")); err == nil {
		t.Fatalf("LoadUnit() expected error due to context cancellation")
	}
}

package scan

import (
	"os"
	"path/filepath"
	"testing"

	"insight/internal/fact"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const goSample = `package server

import (
	"fmt"
	"net/http"

	"example.com/app/store"
)

// Handler serves requests.
type Handler struct {
	store *store.Store
}

// ServeHTTP dispatches one request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		for i := 0; i < 3; i++ {
			fmt.Fprintf(w, "item %d", i)
		}
	}
}

func helperStub() {
}
`

func TestScanGoFile(t *testing.T) {
	fs := ScanContent("server/handler.go", []byte(goSample))
	if fs == nil {
		t.Fatal("scan returned nil")
	}
	if fs.Metrics.Language != "go" {
		t.Errorf("language = %s", fs.Metrics.Language)
	}
	if fs.Metrics.FunctionCount != 2 {
		t.Errorf("function count = %d, want 2", fs.Metrics.FunctionCount)
	}
	if fs.Metrics.ClassCount != 1 {
		t.Errorf("class count = %d, want 1", fs.Metrics.ClassCount)
	}
	if fs.Metrics.ImportCount != 3 {
		t.Errorf("import count = %d, want 3: %+v", fs.Metrics.ImportCount, fs.Metrics.Imports)
	}
	if fs.Syntax.MaxNesting < 3 {
		t.Errorf("max nesting = %d, want >= 3", fs.Syntax.MaxNesting)
	}

	var stub *FunctionDef
	for i := range fs.Syntax.Functions {
		if fs.Syntax.Functions[i].Name == "helperStub" {
			stub = &fs.Syntax.Functions[i]
		}
	}
	if stub == nil || !stub.IsStub {
		t.Error("empty function not detected as stub")
	}
}

const pySample = `"""Order processing."""
from __future__ import annotations

import os
from app.models import Order, Customer
from .helpers import normalize


class OrderProcessor(ABC):
    """Processes orders."""

    def process(self, order):
        if order.valid:
            for line in order.lines:
                self.apply(line)

    def apply(self, line):
        ...
`

func TestScanPythonFile(t *testing.T) {
	fs := ScanContent("app/orders.py", []byte(pySample))
	if fs == nil {
		t.Fatal("scan returned nil")
	}
	if fs.Metrics.FunctionCount != 2 {
		t.Errorf("function count = %d, want 2", fs.Metrics.FunctionCount)
	}
	if len(fs.Syntax.Classes) != 1 || !fs.Syntax.Classes[0].IsAbstract {
		t.Errorf("classes = %+v, want one abstract", fs.Syntax.Classes)
	}

	var sawModels bool
	for _, imp := range fs.Metrics.Imports {
		if imp.Source == "app.models" {
			sawModels = true
			if len(imp.Names) != 2 {
				t.Errorf("names = %v, want [Order Customer]", imp.Names)
			}
		}
	}
	if !sawModels {
		t.Errorf("imports = %+v", fs.Metrics.Imports)
	}

	var apply *FunctionDef
	for i := range fs.Syntax.Functions {
		if fs.Syntax.Functions[i].Name == "apply" {
			apply = &fs.Syntax.Functions[i]
		}
	}
	if apply == nil || !apply.IsStub {
		t.Error("ellipsis body not detected as stub")
	}
}

func TestRoleClassification(t *testing.T) {
	tests := []struct {
		path    string
		content string
		want    fact.FileRole
	}{
		{"pkg/parser_test.go", "package parser\nfunc TestX(t *testing.T) {}\n", fact.RoleTest},
		{"tests/test_orders.py", "def test_orders():\n    pass\n", fact.RoleTest},
		{"cmd/main.go", "package main\nfunc main() {\n}\n", fact.RoleEntryPoint},
		{"tool.py", "if __name__ == '__main__':\n    run()\n", fact.RoleEntryPoint},
		{"pkg/config.go", "package pkg\ntype Config struct {\n}\n", fact.RoleConfig},
		{"pkg/utils.py", "def helper():\n    return 1\n", fact.RoleUtil},
		{"core/engine.go", "package core\nfunc Run() {\n}\n", fact.RoleCore},
	}
	for _, tt := range tests {
		fs := ScanContent(tt.path, []byte(tt.content))
		if fs == nil {
			t.Fatalf("%s: nil scan", tt.path)
		}
		if fs.Role != tt.want {
			t.Errorf("%s: role = %v, want %v", tt.path, fs.Role, tt.want)
		}
	}
}

func TestTodoCount(t *testing.T) {
	src := "package x\n// TODO: fix this\nfunc A() {\n\t// FIXME later\n}\n"
	fs := ScanContent("x.go", []byte(src))
	if fs.TodoCount != 2 {
		t.Errorf("todo count = %d, want 2", fs.TodoCount)
	}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("parseHTTPResponse order_total := fetchOrder(ctx)")
	want := map[string]bool{
		"parse": true, "http": true, "response": true,
		"order": true, "total": true, "fetch": true, "ctx": true,
	}
	got := make(map[string]bool)
	for _, tok := range tokens {
		got[tok] = true
	}
	for w := range want {
		if !got[w] {
			t.Errorf("missing token %q in %v", w, tokens)
		}
	}
}

func TestResolverGo(t *testing.T) {
	r := NewResolver([]string{
		"store/store.go", "store/cache.go", "server/handler.go",
	}, "example.com/app")

	resolved, external := r.Resolve("example.com/app/store", "server/handler.go")
	if external || resolved != "store/cache.go" {
		t.Errorf("resolve = %q external=%v", resolved, external)
	}

	if _, external := r.Resolve("fmt", "server/handler.go"); !external {
		t.Error("stdlib import not external")
	}
	if _, external := r.Resolve("github.com/spf13/cobra", "server/handler.go"); !external {
		t.Error("third-party import not external")
	}

	// Module-prefixed but nonexistent: phantom, not external.
	resolved, external = r.Resolve("example.com/app/ghost", "server/handler.go")
	if external || resolved != "" {
		t.Errorf("ghost resolve = %q external=%v, want phantom", resolved, external)
	}
}

func TestResolverPython(t *testing.T) {
	r := NewResolver([]string{
		"app/models.py", "app/orders.py", "app/sub/__init__.py", "top.py",
	}, "")

	resolved, external := r.Resolve("app.models", "app/orders.py")
	if external || resolved != "app/models.py" {
		t.Errorf("absolute = %q external=%v", resolved, external)
	}

	resolved, external = r.Resolve(".models", "app/orders.py")
	if external || resolved != "app/models.py" {
		t.Errorf("relative = %q external=%v", resolved, external)
	}

	resolved, external = r.Resolve("app.sub", "app/orders.py")
	if external || resolved != "app/sub/__init__.py" {
		t.Errorf("package init = %q external=%v", resolved, external)
	}

	if _, external := r.Resolve("numpy", "app/orders.py"); !external {
		t.Error("external package flagged internal")
	}

	// Project-internal prefix but missing module: phantom.
	resolved, external = r.Resolve("app.ghost", "app/orders.py")
	if external || resolved != "" {
		t.Errorf("phantom = %q external=%v", resolved, external)
	}
}

func TestResolverTypeScript(t *testing.T) {
	r := NewResolver([]string{
		"src/api.ts", "src/lib/index.ts", "src/util.ts",
	}, "")

	resolved, external := r.Resolve("./util", "src/api.ts")
	if external || resolved != "src/util.ts" {
		t.Errorf("relative = %q external=%v", resolved, external)
	}
	resolved, external = r.Resolve("./lib", "src/api.ts")
	if external || resolved != "src/lib/index.ts" {
		t.Errorf("index = %q external=%v", resolved, external)
	}
	if _, external := r.Resolve("react", "src/api.ts"); !external {
		t.Error("bare specifier not external")
	}
	resolved, external = r.Resolve("./missing", "src/api.ts")
	if external || resolved != "" {
		t.Errorf("missing relative = %q external=%v, want phantom", resolved, external)
	}
}

func TestWalkDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.go", "package b\n")
	writeFile(t, dir, "a.go", "package a\n")
	writeFile(t, dir, "sub/c.py", "x = 1\n")
	writeFile(t, dir, "node_modules/dep/index.js", "module.exports = 1\n")
	writeFile(t, dir, "README.md", "docs\n")

	paths, err := Walk(dir, []string{"node_modules"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.go", "b.go", "sub/c.py"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %s, want %s", i, paths[i], want[i])
		}
	}
}

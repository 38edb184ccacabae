package config

import (
	"path/filepath"
	"testing"
)

func TestResolveRecord_RelativeServerPath(t *testing.T) {
	rec := Record{
		Type:      TypeMCPServer,
		Name:      "search",
		MCPServer: &MCPServerSpec{ServerPath: "servers/search.py"},
		Provenance: Provenance{
			ContextPath: "/work/proj",
		},
	}

	resolved := resolveRecord(rec, nil)
	want := filepath.Join("/work/proj", "servers/search.py")
	if resolved.MCPServer.ServerPath != want {
		t.Errorf("expected %s, got %s", want, resolved.MCPServer.ServerPath)
	}
	// The original stored record stays untouched.
	if rec.MCPServer.ServerPath != "servers/search.py" {
		t.Error("resolution must not mutate the stored spec")
	}
}

func TestResolveRecord_AbsoluteServerPathUnchanged(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "search.py")
	rec := Record{
		Type:       TypeMCPServer,
		Name:       "search",
		MCPServer:  &MCPServerSpec{ServerPath: abs},
		Provenance: Provenance{ContextPath: "/work/proj"},
	}
	if got := resolveRecord(rec, nil).MCPServer.ServerPath; got != abs {
		t.Errorf("absolute path must pass through, got %s", got)
	}
}

func TestResolveModulePath_DottedNotation(t *testing.T) {
	ctx := t.TempDir()
	writeTestFile(t, filepath.Join(ctx, "flows", "review.go"), "package flows\n")

	got := resolveModulePath(ctx, "flows.review")
	want := filepath.Join(ctx, "flows", "review.go")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestResolveModulePath_DottedWithoutFileFallsBack(t *testing.T) {
	ctx := t.TempDir()
	got := resolveModulePath(ctx, "flows.review")
	want := filepath.Join(ctx, "flows.review")
	if got != want {
		t.Errorf("expected literal join fallback %s, got %s", want, got)
	}
}

func TestResolveModulePath_PlainRelativePath(t *testing.T) {
	ctx := t.TempDir()
	got := resolveModulePath(ctx, "flows/review.go")
	want := filepath.Join(ctx, "flows", "review.go")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

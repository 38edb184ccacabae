package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscover_ProjectOnly(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "proj")
	scaffoldProject(t, proj)

	disc, err := Discover(proj, "")
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if len(disc.Contexts) != 1 {
		t.Fatalf("expected 1 context, got %d", len(disc.Contexts))
	}
	ctx := disc.Contexts[0]
	if ctx.Kind != ContextProject {
		t.Errorf("expected project context, got %s", ctx.Kind)
	}
	if ctx.RootPath != proj {
		t.Errorf("expected root %s, got %s", proj, ctx.RootPath)
	}
	if len(ctx.SourceDirs) != 1 || ctx.SourceDirs[0] != filepath.Join(proj, "config") {
		t.Errorf("unexpected source dirs: %v", ctx.SourceDirs)
	}
}

func TestDiscover_StartsBelowProjectRoot(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "proj")
	scaffoldProject(t, proj)
	nested := filepath.Join(proj, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	disc, err := Discover(nested, "")
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if len(disc.Contexts) != 1 || disc.Contexts[0].RootPath != proj {
		t.Fatalf("expected project at %s, got %+v", proj, disc.Contexts)
	}
}

func TestDiscover_WorkspaceMembersInDeclaredOrder(t *testing.T) {
	root := t.TempDir()
	ws := filepath.Join(root, "ws")
	scaffoldWorkspace(t, ws, "alpha", "beta", "gamma")

	disc, err := Discover(filepath.Join(ws, "beta"), "")
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}

	var got []string
	for _, ctx := range disc.Contexts {
		got = append(got, string(ctx.Kind)+":"+ctx.Name)
	}
	want := []string{"project:beta", "workspace:ws", "project:alpha", "project:gamma"}
	if len(got) != len(want) {
		t.Fatalf("expected contexts %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("context %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if disc.Contexts[0].Workspace != "ws" {
		t.Errorf("expected current project to carry workspace name, got %q", disc.Contexts[0].Workspace)
	}
}

func TestDiscover_WorkspaceTerminatesWalk(t *testing.T) {
	root := t.TempDir()
	outer := filepath.Join(root, "outer")
	scaffoldProject(t, outer)
	ws := filepath.Join(outer, "ws")
	scaffoldWorkspace(t, ws)
	start := filepath.Join(ws, "somewhere")
	if err := os.MkdirAll(start, 0o755); err != nil {
		t.Fatal(err)
	}

	disc, err := Discover(start, "")
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	for _, ctx := range disc.Contexts {
		if ctx.RootPath == outer {
			t.Errorf("project beyond the workspace boundary must not be discovered")
		}
	}
	if len(disc.Contexts) != 1 || disc.Contexts[0].Kind != ContextWorkspace {
		t.Fatalf("expected only the workspace context, got %+v", disc.Contexts)
	}
}

func TestDiscover_UserRootAppendedLast(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "proj")
	scaffoldProject(t, proj)
	userRoot := filepath.Join(root, "home")
	if err := os.MkdirAll(filepath.Join(userRoot, "config"), 0o755); err != nil {
		t.Fatal(err)
	}

	disc, err := Discover(proj, userRoot)
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if len(disc.Contexts) != 2 {
		t.Fatalf("expected 2 contexts, got %d", len(disc.Contexts))
	}
	last := disc.Contexts[len(disc.Contexts)-1]
	if last.Kind != ContextUser {
		t.Errorf("expected user context last, got %s", last.Kind)
	}
}

func TestDiscover_UserRootWithoutConfigDirSkipped(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "proj")
	scaffoldProject(t, proj)
	userRoot := filepath.Join(root, "home")
	if err := os.MkdirAll(userRoot, 0o755); err != nil {
		t.Fatal(err)
	}

	disc, err := Discover(proj, userRoot)
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if len(disc.Contexts) != 1 {
		t.Fatalf("user root without config/ must be skipped, got %+v", disc.Contexts)
	}
}

func TestDiscover_MalformedMemberMarkerWarns(t *testing.T) {
	root := t.TempDir()
	ws := filepath.Join(root, "ws")
	scaffoldWorkspace(t, ws, "alpha", "broken")
	writeTestFile(t, filepath.Join(ws, "broken", MarkerFileName), "type: banana\n")

	disc, err := Discover(filepath.Join(ws, "alpha"), "")
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if len(disc.Warnings) == 0 {
		t.Error("expected a warning for the malformed member marker")
	}
	for _, ctx := range disc.Contexts {
		if ctx.Name == "broken" {
			t.Error("malformed member must not become a context")
		}
	}
}

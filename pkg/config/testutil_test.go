package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// scaffoldProject creates a standalone project root with a config source dir.
func scaffoldProject(t *testing.T, root string) {
	t.Helper()
	writeTestFile(t, filepath.Join(root, MarkerFileName), `
type: project
include_configs:
  - config
`)
	if err := os.MkdirAll(filepath.Join(root, "config"), 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
}

// scaffoldWorkspace creates a workspace with member projects, each with a
// config source dir.
func scaffoldWorkspace(t *testing.T, root string, members ...string) {
	t.Helper()
	marker := "type: workspace\ninclude_configs:\n  - shared\nprojects:\n"
	for _, m := range members {
		marker += "  - " + m + "\n"
	}
	writeTestFile(t, filepath.Join(root, MarkerFileName), marker)
	if err := os.MkdirAll(filepath.Join(root, "shared"), 0o755); err != nil {
		t.Fatalf("failed to create shared dir: %v", err)
	}
	for _, m := range members {
		scaffoldProject(t, filepath.Join(root, m))
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newWorkspaceManager scaffolds a workspace with the given members and starts
// the manager inside the first one, making it the active project.
func newWorkspaceManager(t *testing.T, members ...string) (*Manager, string) {
	t.Helper()
	root := t.TempDir()
	scaffoldWorkspace(t, root, members...)

	m, err := NewManager(filepath.Join(root, members[0]), WithUserRoot(""))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return m, root
}

func TestListProjects_DeclaredOrder(t *testing.T) {
	m, _ := newWorkspaceManager(t, "alpha", "beta", "gamma")

	projects, err := m.ListProjects()
	if err != nil {
		t.Fatalf("ListProjects failed: %v", err)
	}
	want := []string{"alpha", "beta", "gamma"}
	if len(projects) != len(want) {
		t.Fatalf("expected %d projects, got %v", len(want), projects)
	}
	for i, p := range want {
		if projects[i] != p {
			t.Errorf("expected %s at position %d, got %s", p, i, projects[i])
		}
	}
}

func TestCreateProject(t *testing.T) {
	m, root := newWorkspaceManager(t, "alpha")

	if err := m.CreateProject("beta", "second project"); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	projects, err := m.ListProjects()
	if err != nil {
		t.Fatalf("ListProjects failed: %v", err)
	}
	if len(projects) != 2 || projects[1] != "beta" {
		t.Fatalf("expected beta appended to workspace projects, got %v", projects)
	}

	// The scaffold is a real project context: marker plus config source dir.
	marker, err := LoadMarker(filepath.Join(root, "beta", MarkerFileName))
	if err != nil {
		t.Fatalf("failed to load new project marker: %v", err)
	}
	if marker.Type != "project" {
		t.Errorf("expected project marker, got %q", marker.Type)
	}
	if marker.Description != "second project" {
		t.Errorf("expected description carried into marker, got %q", marker.Description)
	}
	if _, err := os.Stat(filepath.Join(root, "beta", "config")); err != nil {
		t.Errorf("expected config source dir to exist: %v", err)
	}
}

func TestCreateProject_ExistingDirectoryFails(t *testing.T) {
	m, _ := newWorkspaceManager(t, "alpha", "beta")

	err := m.CreateProject("beta", "")
	if err == nil {
		t.Fatal("expected error creating project over an existing directory")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected already-exists error, got %v", err)
	}
}

func TestUpdateProject(t *testing.T) {
	m, root := newWorkspaceManager(t, "alpha", "beta")

	if err := m.UpdateProject("beta", "refreshed description"); err != nil {
		t.Fatalf("UpdateProject failed: %v", err)
	}

	marker, err := LoadMarker(filepath.Join(root, "beta", MarkerFileName))
	if err != nil {
		t.Fatalf("failed to load marker: %v", err)
	}
	if marker.Description != "refreshed description" {
		t.Errorf("expected updated description, got %q", marker.Description)
	}
}

func TestDeleteProject(t *testing.T) {
	m, root := newWorkspaceManager(t, "alpha", "beta")

	if err := m.DeleteProject("beta"); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}

	projects, err := m.ListProjects()
	if err != nil {
		t.Fatalf("ListProjects failed: %v", err)
	}
	if len(projects) != 1 || projects[0] != "alpha" {
		t.Errorf("expected beta removed from workspace projects, got %v", projects)
	}
	if _, err := os.Stat(filepath.Join(root, "beta")); !os.IsNotExist(err) {
		t.Errorf("expected project directory removed, stat err: %v", err)
	}
}

func TestDeleteProject_RefusesActiveProject(t *testing.T) {
	m, root := newWorkspaceManager(t, "alpha", "beta")

	err := m.DeleteProject("alpha")
	if err == nil {
		t.Fatal("expected error deleting the active project")
	}
	if !strings.Contains(err.Error(), "active project") {
		t.Errorf("expected active-project refusal, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "alpha")); err != nil {
		t.Errorf("refused delete must leave the directory in place: %v", err)
	}
}

func TestDeleteProject_UnknownProjectFails(t *testing.T) {
	m, _ := newWorkspaceManager(t, "alpha")

	err := m.DeleteProject("ghost")
	if err == nil {
		t.Fatal("expected error deleting an unregistered project")
	}
	if !strings.Contains(err.Error(), "not registered") {
		t.Errorf("expected not-registered error, got %v", err)
	}
}

func TestProjectOps_OutsideWorkspaceFail(t *testing.T) {
	m, _ := newTestManager(t)

	if _, err := m.ListProjects(); err == nil || !strings.Contains(err.Error(), "not inside a workspace") {
		t.Errorf("ListProjects: expected not-inside-a-workspace error, got %v", err)
	}
	if err := m.CreateProject("beta", ""); err == nil || !strings.Contains(err.Error(), "not inside a workspace") {
		t.Errorf("CreateProject: expected not-inside-a-workspace error, got %v", err)
	}
	if err := m.UpdateProject("beta", ""); err == nil || !strings.Contains(err.Error(), "not inside a workspace") {
		t.Errorf("UpdateProject: expected not-inside-a-workspace error, got %v", err)
	}
	if err := m.DeleteProject("beta"); err == nil || !strings.Contains(err.Error(), "not inside a workspace") {
		t.Errorf("DeleteProject: expected not-inside-a-workspace error, got %v", err)
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Project management operates on the enclosing workspace's marker. Every
// operation fails cleanly when the manager's discovery root is not inside a
// workspace.

func (m *Manager) workspaceContext() (Context, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ctx := range m.contexts {
		if ctx.Kind == ContextWorkspace {
			return ctx, true
		}
	}
	return Context{}, false
}

func (m *Manager) activeProjectRoot() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ctx := range m.contexts {
		if ctx.Kind == ContextProject {
			return ctx.RootPath
		}
	}
	return ""
}

// ListProjects returns the workspace's member project names in declared
// order.
func (m *Manager) ListProjects() ([]string, error) {
	ws, ok := m.workspaceContext()
	if !ok {
		return nil, NewConfigError(m.startDir, "not inside a workspace", nil)
	}
	marker, err := LoadMarker(filepath.Join(ws.RootPath, MarkerFileName))
	if err != nil {
		return nil, err
	}
	return marker.Projects, nil
}

// CreateProject scaffolds a new member project directory with its own marker
// and config source dir, and registers it in the workspace marker.
func (m *Manager) CreateProject(name, description string) error {
	ws, ok := m.workspaceContext()
	if !ok {
		return NewConfigError(m.startDir, "not inside a workspace", nil)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	root := filepath.Join(ws.RootPath, name)
	if _, err := os.Stat(root); err == nil {
		return NewConfigError(name, "project directory already exists", nil)
	}
	if err := os.MkdirAll(filepath.Join(root, "config"), 0o755); err != nil {
		return NewConfigError(name, "failed to create project directory", err)
	}
	if err := WriteMarker(filepath.Join(root, MarkerFileName), &Marker{
		Type:           "project",
		IncludeConfigs: []string{"config"},
		Description:    description,
	}); err != nil {
		return err
	}

	wsMarkerPath := filepath.Join(ws.RootPath, MarkerFileName)
	wsMarker, err := LoadMarker(wsMarkerPath)
	if err != nil {
		return err
	}
	for _, p := range wsMarker.Projects {
		if p == name {
			return NewConfigError(name, "project already registered in workspace", nil)
		}
	}
	wsMarker.Projects = append(wsMarker.Projects, name)
	if err := WriteMarker(wsMarkerPath, wsMarker); err != nil {
		return err
	}

	return m.Refresh()
}

// UpdateProject rewrites a member project's marker description.
func (m *Manager) UpdateProject(name, description string) error {
	ws, ok := m.workspaceContext()
	if !ok {
		return NewConfigError(m.startDir, "not inside a workspace", nil)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	markerPath := filepath.Join(ws.RootPath, name, MarkerFileName)
	marker, err := LoadMarker(markerPath)
	if err != nil {
		return err
	}
	marker.Description = description
	if err := WriteMarker(markerPath, marker); err != nil {
		return err
	}
	return m.Refresh()
}

// DeleteProject removes a member project from the workspace and deletes its
// directory. The active project cannot be deleted: you cannot remove the
// directory you are running from.
func (m *Manager) DeleteProject(name string) error {
	ws, ok := m.workspaceContext()
	if !ok {
		return NewConfigError(m.startDir, "not inside a workspace", nil)
	}

	root := filepath.Join(ws.RootPath, name)
	if active := m.activeProjectRoot(); active != "" && active == root {
		return NewConfigError(name, "cannot delete the active project", nil)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	wsMarkerPath := filepath.Join(ws.RootPath, MarkerFileName)
	wsMarker, err := LoadMarker(wsMarkerPath)
	if err != nil {
		return err
	}
	kept := wsMarker.Projects[:0]
	found := false
	for _, p := range wsMarker.Projects {
		if p == name {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return NewConfigError(name, fmt.Sprintf("project not registered in workspace %q", ws.Name), nil)
	}
	wsMarker.Projects = kept
	if err := WriteMarker(wsMarkerPath, wsMarker); err != nil {
		return err
	}
	if err := os.RemoveAll(root); err != nil {
		return NewConfigError(name, "failed to remove project directory", err)
	}

	return m.Refresh()
}

package config

import (
	"log/slog"
	"os"
	"path/filepath"
)

// DiscoveryResult holds the ordered context list produced by Discover plus
// any per-context errors that were skipped over.
type DiscoveryResult struct {
	// Contexts in priority order: current project, enclosing workspace,
	// workspace member projects (declared order), user-global.
	Contexts []Context

	// Warnings collects malformed markers that were skipped. Discovery
	// degrades gracefully: a bad context never aborts the walk and is never
	// silently merged.
	Warnings []error
}

// Discover walks upward from startDir collecting hierarchy markers.
//
// The first project marker found becomes the current project; the walk
// continues upward looking for an enclosing workspace. A workspace marker
// terminates the walk. Workspace member projects are appended in their
// declared order, followed by the user-global context when userRoot exists.
func Discover(startDir, userRoot string) (*DiscoveryResult, error) {
	start, err := filepath.Abs(startDir)
	if err != nil {
		return nil, NewConfigError(startDir, "failed to resolve start directory", err)
	}

	result := &DiscoveryResult{}

	var project *Context
	var workspace *Context
	var wsMarker *Marker

	for dir := start; ; {
		markerPath := filepath.Join(dir, MarkerFileName)
		if _, statErr := os.Stat(markerPath); statErr == nil {
			m, loadErr := LoadMarker(markerPath)
			switch {
			case loadErr != nil:
				slog.Warn("Skipping malformed hierarchy marker", "path", markerPath, "error", loadErr)
				result.Warnings = append(result.Warnings, loadErr)
			case m.Type == "project":
				if project == nil {
					ctx := contextFromMarker(ContextProject, dir, m)
					project = &ctx
				}
			case m.Type == "workspace":
				ctx := contextFromMarker(ContextWorkspace, dir, m)
				workspace = &ctx
				wsMarker = m
			}
		}

		if workspace != nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if project != nil {
		if workspace != nil {
			project.Workspace = workspace.Name
		}
		result.Contexts = append(result.Contexts, *project)
	}
	if workspace != nil {
		result.Contexts = append(result.Contexts, *workspace)

		for _, member := range wsMarker.Projects {
			root := filepath.Join(workspace.RootPath, member)
			if project != nil && root == project.RootPath {
				continue
			}
			m, loadErr := LoadMarker(filepath.Join(root, MarkerFileName))
			if loadErr != nil {
				slog.Warn("Skipping workspace member with unreadable marker", "project", member, "error", loadErr)
				result.Warnings = append(result.Warnings, loadErr)
				continue
			}
			if m.Type != "project" {
				result.Warnings = append(result.Warnings,
					NewConfigError(root, "workspace member is not a project", nil))
				continue
			}
			ctx := contextFromMarker(ContextProject, root, m)
			ctx.Workspace = workspace.Name
			result.Contexts = append(result.Contexts, ctx)
		}
	}

	if userCtx, ok := userContext(userRoot); ok {
		result.Contexts = append(result.Contexts, userCtx)
	}

	return result, nil
}

func contextFromMarker(kind ContextKind, root string, m *Marker) Context {
	dirs := make([]string, 0, len(m.IncludeConfigs))
	for _, d := range m.IncludeConfigs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(root, d)
		}
		dirs = append(dirs, d)
	}
	return Context{
		Kind:       kind,
		Name:       filepath.Base(root),
		RootPath:   root,
		SourceDirs: dirs,
	}
}

// userContext builds the fixed user-global context. The user root needs no
// marker file; its component source is the config/ subdirectory.
func userContext(userRoot string) (Context, bool) {
	if userRoot == "" {
		return Context{}, false
	}
	sourceDir := filepath.Join(userRoot, "config")
	if info, err := os.Stat(sourceDir); err != nil || !info.IsDir() {
		return Context{}, false
	}
	return Context{
		Kind:       ContextUser,
		Name:       "user",
		RootPath:   userRoot,
		SourceDirs: []string{sourceDir},
	}, true
}

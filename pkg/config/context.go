package config

// ContextKind identifies one level of the configuration hierarchy.
type ContextKind string

const (
	// ContextProject is the project the manager was started in.
	ContextProject ContextKind = "project"

	// ContextWorkspace is the workspace enclosing the current project.
	ContextWorkspace ContextKind = "workspace"

	// ContextUser is the user-global context (~/.conductor).
	ContextUser ContextKind = "user"

	// ContextProgrammatic marks in-memory registrations. They always win
	// over file-based components and are never persisted.
	ContextProgrammatic ContextKind = "programmatic"
)

// Context is one node of the configuration hierarchy. Contexts are built once
// per discovery pass and treated as immutable until the next refresh.
//
// Resolution priority is fixed: programmatic > current project > workspace >
// workspace member projects (declared order) > user.
type Context struct {
	Kind ContextKind

	// Name is the context's display name (directory base name, or "user").
	Name string

	// RootPath is the absolute directory containing the marker file.
	RootPath string

	// SourceDirs are the absolute component source directories declared by
	// the marker's include_configs, in declared order.
	SourceDirs []string

	// Workspace is the name of the enclosing workspace, if any. Lookup only.
	Workspace string
}

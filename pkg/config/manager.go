package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Manager is the facade over anchor discovery, the component index, path
// resolution, and the in-memory override layer.
//
// Reads are safe under concurrency: the index is rebuilt aside and swapped
// in whole, so a reader never observes a partially-rebuilt index. Write
// operations are serialized and validated before any file is touched.
type Manager struct {
	startDir     string
	userRoot     string
	forceRefresh bool

	mu           sync.RWMutex
	contexts     []Context
	warnings     []error
	idx          *componentIndex
	overrides    map[ComponentType]map[string]Record
	llmValidated map[string]time.Time

	// writeMu serializes file-mutating operations (create/update/delete).
	writeMu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithUserRoot overrides the user-global context root.
func WithUserRoot(root string) Option {
	return func(m *Manager) { m.userRoot = root }
}

// WithForceRefresh overrides the CONDUCTOR_FORCE_REFRESH environment toggle.
// When enabled the index is rebuilt on every read.
func WithForceRefresh(enabled bool) Option {
	return func(m *Manager) { m.forceRefresh = enabled }
}

// NewManager discovers the hierarchy around startDir and builds the index.
func NewManager(startDir string, opts ...Option) (*Manager, error) {
	m := &Manager{
		startDir:     startDir,
		userRoot:     DefaultUserRoot(),
		forceRefresh: forceRefreshFromEnv(),
		overrides:    make(map[ComponentType]map[string]Record),
		llmValidated: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.Refresh(); err != nil {
		return nil, err
	}
	return m, nil
}

// Refresh rediscovers contexts and rebuilds the index from scratch. The new
// index replaces the old one atomically.
func (m *Manager) Refresh() error {
	disc, err := Discover(m.startDir, m.userRoot)
	if err != nil {
		return err
	}
	idx, warnings, err := buildIndex(disc.Contexts)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.contexts = disc.Contexts
	m.idx = idx
	m.warnings = append(disc.Warnings, warnings...)
	m.mu.Unlock()
	return nil
}

func (m *Manager) maybeRefresh() {
	if !m.forceRefresh {
		return
	}
	if err := m.Refresh(); err != nil {
		slog.Warn("Forced index refresh failed, serving previous index", "error", err)
	}
}

// Contexts returns the discovered contexts in priority order.
func (m *Manager) Contexts() []Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Context, len(m.contexts))
	copy(out, m.contexts)
	return out
}

// Warnings returns the non-fatal problems found during the last refresh.
func (m *Manager) Warnings() []error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]error, len(m.warnings))
	copy(out, m.warnings)
	return out
}

// GetConfig returns the resolved record for (type, name). In-memory
// overrides win over any file-based component.
func (m *Manager) GetConfig(t ComponentType, name string) (Record, bool) {
	m.maybeRefresh()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if rec, ok := m.overrides[t][name]; ok {
		return resolveRecord(rec, m.llmValidated), true
	}
	rec, ok := m.idx.get(t, name)
	if !ok {
		return Record{}, false
	}
	return resolveRecord(rec, m.llmValidated), true
}

// ListConfigs returns every resolved record of one type, overrides included,
// sorted by name.
func (m *Manager) ListConfigs(t ComponentType) []Record {
	m.maybeRefresh()

	m.mu.RLock()
	defer m.mu.RUnlock()

	byName := make(map[string]Record)
	for _, rec := range m.idx.list(t) {
		byName[rec.Name] = rec
	}
	for name, rec := range m.overrides[t] {
		byName[name] = rec
	}

	out := make([]Record, 0, len(byName))
	for _, rec := range byName {
		out = append(out, resolveRecord(rec, m.llmValidated))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CreateComponent validates data against its type's schema, then writes it
// into the target context and reindexes. targetContext is a context name;
// empty selects the highest-priority file-backed context.
//
// On validation failure nothing is written and every violated field is
// reported.
func (m *Manager) CreateComponent(t ComponentType, data map[string]any, targetContext string) (Record, error) {
	rec, err := m.decodeAndValidate(t, data)
	if err != nil {
		return Record{}, err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.maybeRefresh()

	ctx, err := m.resolveTargetContext(targetContext)
	if err != nil {
		return Record{}, err
	}
	if _, found := findInContext(ctx, t, rec.Name); found {
		return Record{}, NewConfigError(rec.Name,
			fmt.Sprintf("%s already exists in context %q", t, ctx.Name), nil)
	}

	target := defaultComponentFile(ctx, t)
	if target == "" {
		return Record{}, NewConfigError(ctx.Name, "context declares no component source directories", nil)
	}

	objects, err := readExistingObjects(target)
	if err != nil {
		return Record{}, NewConfigError(target, "failed to read component file", err)
	}
	objects = append(objects, rec.Raw)
	if err := writeComponentFile(target, objects); err != nil {
		return Record{}, NewConfigError(target, "failed to write component file", err)
	}

	if err := m.Refresh(); err != nil {
		return Record{}, err
	}
	created, _ := m.GetConfig(t, rec.Name)
	return created, nil
}

// UpdateComponent replaces a component definition in place. Updating an llm
// resets its stored validation timestamp.
func (m *Manager) UpdateComponent(t ComponentType, name string, data map[string]any) error {
	data = cloneRaw(data)
	data["name"] = name
	rec, err := m.decodeAndValidate(t, data)
	if err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.maybeRefresh()

	m.mu.Lock()
	if _, ok := m.overrides[t][name]; ok {
		rec.Provenance = Provenance{ContextLevel: ContextProgrammatic}
		m.overrides[t][name] = rec
		if t == TypeLLM {
			delete(m.llmValidated, name)
		}
		m.mu.Unlock()
		return nil
	}
	current, ok := m.idx.get(t, name)
	m.mu.Unlock()
	if !ok {
		return NewConfigError(name, fmt.Sprintf("%s not found", t), nil)
	}

	file := current.Provenance.SourceFile
	objects, err := readExistingObjects(file)
	if err != nil {
		return NewConfigError(file, "failed to read component file", err)
	}
	replaced := false
	for i, obj := range objects {
		if objectMatches(obj, t, name) {
			objects[i] = rec.Raw
			replaced = true
			break
		}
	}
	if !replaced {
		return NewConfigError(name, fmt.Sprintf("%s not found in %s", t, file), nil)
	}
	if err := writeComponentFile(file, objects); err != nil {
		return NewConfigError(file, "failed to write component file", err)
	}

	if t == TypeLLM {
		m.mu.Lock()
		delete(m.llmValidated, name)
		m.mu.Unlock()
	}
	return m.Refresh()
}

// DeleteConfig removes a component. Removing an in-memory registration never
// touches files.
func (m *Manager) DeleteConfig(t ComponentType, name string) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.maybeRefresh()

	m.mu.Lock()
	if _, ok := m.overrides[t][name]; ok {
		delete(m.overrides[t], name)
		m.mu.Unlock()
		return nil
	}
	current, ok := m.idx.get(t, name)
	m.mu.Unlock()
	if !ok {
		return NewConfigError(name, fmt.Sprintf("%s not found", t), nil)
	}

	file := current.Provenance.SourceFile
	objects, err := readExistingObjects(file)
	if err != nil {
		return NewConfigError(file, "failed to read component file", err)
	}
	kept := objects[:0]
	removed := false
	for _, obj := range objects {
		if !removed && objectMatches(obj, t, name) {
			removed = true
			continue
		}
		kept = append(kept, obj)
	}
	if !removed {
		return NewConfigError(name, fmt.Sprintf("%s not found in %s", t, file), nil)
	}
	if err := writeComponentFile(file, kept); err != nil {
		return NewConfigError(file, "failed to write component file", err)
	}
	return m.Refresh()
}

// ValidateComponent checks one component against its type's schema and
// reports every field-level violation.
func (m *Manager) ValidateComponent(t ComponentType, name string) (bool, []FieldError) {
	rec, ok := m.GetConfig(t, name)
	if !ok {
		return false, []FieldError{{Field: "name", Message: fmt.Sprintf("%s %q not found", t, name)}}
	}
	errs := ValidateRecord(&rec)
	return len(errs) == 0, errs
}

// ValidateAll runs schema validation over every record and reports
// cross-type name collisions as warnings.
func (m *Manager) ValidateAll() []string {
	var problems []string

	nameTypes := make(map[string][]ComponentType)
	for _, t := range ComponentTypes {
		for _, rec := range m.ListConfigs(t) {
			nameTypes[rec.Name] = append(nameTypes[rec.Name], t)
			for _, fe := range ValidateRecord(&rec) {
				problems = append(problems, fmt.Sprintf("%s %q: %s", t, rec.Name, fe))
			}
		}
	}
	for name, types := range nameTypes {
		if len(types) > 1 {
			problems = append(problems, fmt.Sprintf("name %q is reused across component types %v", name, types))
		}
	}

	sort.Strings(problems)
	return problems
}

// ValidateLLM records the current time as the llm's validation timestamp.
func (m *Manager) ValidateLLM(name string) error {
	if _, ok := m.GetConfig(TypeLLM, name); !ok {
		return NewConfigError(name, "llm not found", nil)
	}
	m.mu.Lock()
	m.llmValidated[name] = time.Now().UTC()
	m.mu.Unlock()
	return nil
}

// LLMValidation returns the stored validation timestamp for an llm, if any.
func (m *Manager) LLMValidation(name string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ts, ok := m.llmValidated[name]
	return ts, ok
}

// RegisterInMemory inserts a component into the override layer. It is
// resolvable for the lifetime of the process regardless of file state, wins
// over any file-based component, and is never persisted.
func (m *Manager) RegisterInMemory(t ComponentType, data map[string]any) (Record, error) {
	rec, err := m.decodeAndValidate(t, data)
	if err != nil {
		return Record{}, err
	}
	rec.Provenance = Provenance{ContextLevel: ContextProgrammatic}

	m.mu.Lock()
	if m.overrides[t] == nil {
		m.overrides[t] = make(map[string]Record)
	}
	m.overrides[t][rec.Name] = rec
	m.mu.Unlock()
	return rec, nil
}

func (m *Manager) decodeAndValidate(t ComponentType, data map[string]any) (Record, error) {
	data = cloneRaw(data)
	data["type"] = string(t)

	rec, err := DecodeRecord(data)
	if err != nil {
		name, _ := data["name"].(string)
		return Record{}, NewConfigError(name, "invalid component definition", err)
	}
	if fieldErrs := ValidateRecord(&rec); len(fieldErrs) > 0 {
		return Record{}, &ValidationError{Type: t, Name: rec.Name, Fields: fieldErrs}
	}
	return rec, nil
}

// resolveTargetContext maps a context name to a discovered context. Empty
// selects the highest-priority context.
func (m *Manager) resolveTargetContext(name string) (Context, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.contexts) == 0 {
		return Context{}, NewConfigError(m.startDir, "no configuration contexts discovered", nil)
	}
	if name == "" {
		return m.contexts[0], nil
	}
	for _, ctx := range m.contexts {
		if ctx.Name == name {
			return ctx, nil
		}
	}
	return Context{}, NewConfigError(name, "context not found", nil)
}

// findInContext scans a context's source files for (type, name), including
// definitions shadowed by higher-priority contexts.
func findInContext(ctx Context, t ComponentType, name string) (string, bool) {
	for _, dir := range ctx.SourceDirs {
		files, err := listComponentFiles(dir)
		if err != nil {
			continue
		}
		for _, file := range files {
			objects, err := loadComponentFile(file)
			if err != nil {
				continue
			}
			for _, obj := range objects {
				if objectMatches(obj, t, name) {
					return file, true
				}
			}
		}
	}
	return "", false
}

func objectMatches(obj map[string]any, t ComponentType, name string) bool {
	objType, _ := obj["type"].(string)
	objName, _ := obj["name"].(string)
	return objType == string(t) && objName == name
}

// defaultComponentFile is where newly created components of a type land:
// <first source dir>/<type>s.yaml.
func defaultComponentFile(ctx Context, t ComponentType) string {
	if len(ctx.SourceDirs) == 0 {
		return ""
	}
	return filepath.Join(ctx.SourceDirs[0], string(t)+"s.yaml")
}

// readExistingObjects loads a component file, treating a missing file as an
// empty array.
func readExistingObjects(path string) ([]map[string]any, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return loadComponentFile(path)
}

func cloneRaw(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

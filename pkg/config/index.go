package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// componentIndex is the resolved three-level mapping
// {componentType -> {componentName -> record}}. An index is immutable once
// built; the manager swaps a fresh index in under its write lock, so readers
// always see either the fully-old or fully-new mapping.
type componentIndex struct {
	records map[ComponentType]map[string]Record
}

func newComponentIndex() *componentIndex {
	records := make(map[ComponentType]map[string]Record, len(ComponentTypes))
	for _, t := range ComponentTypes {
		records[t] = make(map[string]Record)
	}
	return &componentIndex{records: records}
}

func (ix *componentIndex) get(t ComponentType, name string) (Record, bool) {
	rec, ok := ix.records[t][name]
	return rec, ok
}

func (ix *componentIndex) list(t ComponentType) []Record {
	byName := ix.records[t]
	out := make([]Record, 0, len(byName))
	for _, rec := range byName {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// buildIndex scans every context's source dirs in priority order and inserts
// records first-found-wins: a later (lower-priority) context's same-named
// component of the same type is shadowed silently, never merged.
//
// Within one context a duplicate (type, name) is a build error; files are
// scanned in sorted order so there is no nondeterministic winner to pick.
func buildIndex(contexts []Context) (*componentIndex, []error, error) {
	ix := newComponentIndex()
	var warnings []error

	for _, ctx := range contexts {
		for _, dir := range ctx.SourceDirs {
			files, err := listComponentFiles(dir)
			if err != nil {
				warnings = append(warnings, NewConfigError(dir, "failed to scan source directory", err))
				continue
			}

			for _, file := range files {
				objects, err := loadComponentFile(file)
				if err != nil {
					slog.Warn("Skipping malformed component file", "file", file, "error", err)
					warnings = append(warnings, NewConfigError(file, "failed to load component file", err))
					continue
				}

				for _, obj := range objects {
					rec, err := DecodeRecord(obj)
					if err != nil {
						slog.Warn("Skipping invalid component object", "file", file, "error", err)
						warnings = append(warnings, NewConfigError(file, "invalid component object", err))
						continue
					}

					if existing, ok := ix.records[rec.Type][rec.Name]; ok {
						if existing.Provenance.ContextPath == ctx.RootPath {
							return nil, warnings, NewConfigError(file,
								fmt.Sprintf("%s %q already defined in %s within the same context",
									rec.Type, rec.Name, existing.Provenance.SourceFile), nil)
						}
						// Shadowed by a higher-priority context.
						continue
					}

					rec.Provenance = Provenance{
						SourceFile:    file,
						ContextPath:   ctx.RootPath,
						ContextLevel:  ctx.Kind,
						WorkspaceName: ctx.Workspace,
					}
					if ctx.Kind == ContextProject {
						rec.Provenance.ProjectName = ctx.Name
					}
					ix.records[rec.Type][rec.Name] = rec
				}
			}
		}
	}

	return ix, warnings, nil
}

// listComponentFiles returns the structured files of one source dir in
// sorted order. A missing dir is not an error; contexts may declare source
// dirs that do not exist yet.
func listComponentFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if componentFileExts[filepath.Ext(entry.Name())] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// moduleSourceExt is appended when a dotted module path is converted to a
// file path.
const moduleSourceExt = ".go"

// resolveRecord rewrites context-relative fields into absolute form and
// injects computed fields. It is pure: mutated specs are copied so the
// index's stored record is never touched.
//
// Resolution never fails on a missing file; the path is left as computed and
// downstream consumers fail with a clear "not found" error at actual use.
func resolveRecord(rec Record, llmValidations map[string]time.Time) Record {
	switch rec.Type {
	case TypeMCPServer:
		if rec.MCPServer != nil && rec.MCPServer.ServerPath != "" && !filepath.IsAbs(rec.MCPServer.ServerPath) {
			spec := *rec.MCPServer
			spec.ServerPath = filepath.Join(rec.Provenance.ContextPath, spec.ServerPath)
			rec.MCPServer = &spec
		}

	case TypeCustomWorkflow:
		if rec.CustomWorkflow != nil && rec.CustomWorkflow.ModulePath != "" {
			resolved := resolveModulePath(rec.Provenance.ContextPath, rec.CustomWorkflow.ModulePath)
			if resolved != rec.CustomWorkflow.ModulePath {
				spec := *rec.CustomWorkflow
				spec.ModulePath = resolved
				rec.CustomWorkflow = &spec
			}
		}

	case TypeLLM:
		if ts, ok := llmValidations[rec.Name]; ok {
			validated := ts
			rec.ValidatedAt = &validated
		}
	}

	return rec
}

// resolveModulePath converts dotted module notation ("pkg.flows.review") to
// a source file path under contextPath when that file exists; otherwise the
// value is treated as a direct path and joined against contextPath if
// relative.
func resolveModulePath(contextPath, modulePath string) string {
	if filepath.IsAbs(modulePath) {
		return modulePath
	}

	if strings.Contains(modulePath, ".") &&
		!strings.ContainsRune(modulePath, filepath.Separator) &&
		!strings.ContainsRune(modulePath, '/') &&
		!strings.HasSuffix(modulePath, moduleSourceExt) {
		candidate := filepath.Join(contextPath,
			strings.ReplaceAll(modulePath, ".", string(filepath.Separator))+moduleSourceExt)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return filepath.Join(contextPath, modulePath)
}

package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func testContexts(t *testing.T, root string) []Context {
	t.Helper()
	proj := filepath.Join(root, "proj")
	scaffoldProject(t, proj)
	user := filepath.Join(root, "home")
	writeTestFile(t, filepath.Join(user, "config", ".keep"), "")

	return []Context{
		{Kind: ContextProject, Name: "proj", RootPath: proj, SourceDirs: []string{filepath.Join(proj, "config")}},
		{Kind: ContextUser, Name: "user", RootPath: user, SourceDirs: []string{filepath.Join(user, "config")}},
	}
}

func TestBuildIndex_FirstFoundWins(t *testing.T) {
	root := t.TempDir()
	contexts := testContexts(t, root)

	writeTestFile(t, filepath.Join(contexts[0].SourceDirs[0], "agents.yaml"), `
- type: agent
  name: assistant
  model: project-model
`)
	writeTestFile(t, filepath.Join(contexts[1].SourceDirs[0], "agents.yaml"), `
- type: agent
  name: assistant
  model: user-model
- type: agent
  name: helper
  model: user-helper
`)

	ix, warnings, err := buildIndex(contexts)
	if err != nil {
		t.Fatalf("buildIndex failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	rec, ok := ix.get(TypeAgent, "assistant")
	if !ok {
		t.Fatal("assistant not indexed")
	}
	if rec.Agent.Model != "project-model" {
		t.Errorf("expected project definition to shadow user definition, got model %q", rec.Agent.Model)
	}
	if rec.Provenance.ContextLevel != ContextProject {
		t.Errorf("expected project provenance, got %s", rec.Provenance.ContextLevel)
	}

	// Non-shadowed user components stay visible.
	if _, ok := ix.get(TypeAgent, "helper"); !ok {
		t.Error("helper from user context not indexed")
	}
}

func TestBuildIndex_DuplicateInSameContextFails(t *testing.T) {
	root := t.TempDir()
	contexts := testContexts(t, root)

	writeTestFile(t, filepath.Join(contexts[0].SourceDirs[0], "a.yaml"), `
- type: agent
  name: assistant
`)
	writeTestFile(t, filepath.Join(contexts[0].SourceDirs[0], "b.yaml"), `
- type: agent
  name: assistant
`)

	_, _, err := buildIndex(contexts)
	if err == nil {
		t.Fatal("expected duplicate definition error")
	}
	if !strings.Contains(err.Error(), "already defined") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuildIndex_SameNameDifferentTypesAllowed(t *testing.T) {
	root := t.TempDir()
	contexts := testContexts(t, root)

	writeTestFile(t, filepath.Join(contexts[0].SourceDirs[0], "mixed.yaml"), `
- type: agent
  name: review
- type: linear_workflow
  name: review
  steps:
    - review
`)

	ix, _, err := buildIndex(contexts)
	if err != nil {
		t.Fatalf("buildIndex failed: %v", err)
	}
	if _, ok := ix.get(TypeAgent, "review"); !ok {
		t.Error("agent review not indexed")
	}
	if _, ok := ix.get(TypeLinearWorkflow, "review"); !ok {
		t.Error("workflow review not indexed")
	}
}

func TestBuildIndex_MalformedFileWarnsAndContinues(t *testing.T) {
	root := t.TempDir()
	contexts := testContexts(t, root)

	writeTestFile(t, filepath.Join(contexts[0].SourceDirs[0], "bad.yaml"), "{{not yaml")
	writeTestFile(t, filepath.Join(contexts[0].SourceDirs[0], "good.yaml"), `
- type: agent
  name: assistant
`)

	ix, warnings, err := buildIndex(contexts)
	if err != nil {
		t.Fatalf("buildIndex failed: %v", err)
	}
	if len(warnings) == 0 {
		t.Error("expected a warning for the malformed file")
	}
	if _, ok := ix.get(TypeAgent, "assistant"); !ok {
		t.Error("valid file must still be indexed")
	}
}

func TestBuildIndex_JSONComponentFile(t *testing.T) {
	root := t.TempDir()
	contexts := testContexts(t, root)

	writeTestFile(t, filepath.Join(contexts[0].SourceDirs[0], "servers.json"), `[
  {"type": "mcp_server", "name": "search", "http_endpoint": "http://localhost:9000", "capabilities": ["tools"]}
]`)

	ix, _, err := buildIndex(contexts)
	if err != nil {
		t.Fatalf("buildIndex failed: %v", err)
	}
	rec, ok := ix.get(TypeMCPServer, "search")
	if !ok {
		t.Fatal("search not indexed")
	}
	if rec.MCPServer.HTTPEndpoint != "http://localhost:9000" {
		t.Errorf("unexpected endpoint: %q", rec.MCPServer.HTTPEndpoint)
	}
}

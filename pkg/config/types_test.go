package config

import (
	"strings"
	"testing"
	"time"
)

func TestMCPServerSpec_TransportInference(t *testing.T) {
	tests := []struct {
		name    string
		spec    MCPServerSpec
		want    TransportKind
		wantErr string
	}{
		{
			name: "stdio",
			spec: MCPServerSpec{ServerPath: "./server.py"},
			want: TransportStdio,
		},
		{
			name: "http",
			spec: MCPServerSpec{HTTPEndpoint: "http://localhost:9000"},
			want: TransportHTTP,
		},
		{
			name: "command",
			spec: MCPServerSpec{Command: "npx", Args: []string{"server"}},
			want: TransportCommand,
		},
		{
			name:    "none",
			spec:    MCPServerSpec{},
			wantErr: "no transport descriptor",
		},
		{
			name:    "multiple",
			spec:    MCPServerSpec{ServerPath: "./s.py", HTTPEndpoint: "http://x"},
			wantErr: "mutually exclusive",
		},
		{
			name:    "all three",
			spec:    MCPServerSpec{ServerPath: "./s.py", HTTPEndpoint: "http://x", Command: "npx"},
			wantErr: "mutually exclusive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.spec.Transport()
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got kind %s", tt.wantErr, got)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDecodeRecord_StepShorthand(t *testing.T) {
	raw := map[string]any{
		"type": "linear_workflow",
		"name": "pipeline",
		"steps": []any{
			"research",
			map[string]any{"name": "review", "type": "agent"},
		},
	}

	rec, err := DecodeRecord(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	steps := rec.LinearWorkflow.Steps
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Name != "research" || steps[0].Type != "" {
		t.Errorf("bare-string step decoded wrong: %+v", steps[0])
	}
	if steps[1].Name != "review" || steps[1].Type != "agent" {
		t.Errorf("object step decoded wrong: %+v", steps[1])
	}
}

func TestDecodeRecord_CallTimeoutDuration(t *testing.T) {
	raw := map[string]any{
		"type":         "mcp_server",
		"name":         "search",
		"server_path":  "./search.py",
		"capabilities": []any{"tools"},
		"call_timeout": "45s",
	}

	rec, err := DecodeRecord(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if rec.MCPServer.CallTimeout != 45*time.Second {
		t.Errorf("expected 45s, got %v", rec.MCPServer.CallTimeout)
	}
}

func TestDecodeRecord_MissingDiscriminators(t *testing.T) {
	if _, err := DecodeRecord(map[string]any{"name": "x"}); err == nil {
		t.Error("expected error for missing type")
	}
	if _, err := DecodeRecord(map[string]any{"type": "agent"}); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := DecodeRecord(map[string]any{"type": "robot", "name": "x"}); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestValidateRecord_CollectsAllViolations(t *testing.T) {
	rec := Record{
		Type: TypeMCPServer,
		Name: "broken",
		MCPServer: &MCPServerSpec{
			ServerPath:   "./s.py",
			HTTPEndpoint: "http://x",
			Capabilities: []string{"tools", "sorcery"},
			CallTimeout:  -time.Second,
		},
	}

	errs := ValidateRecord(&rec)
	if len(errs) != 3 {
		t.Fatalf("expected 3 field errors, got %d: %+v", len(errs), errs)
	}
	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, want := range []string{"transport", "capabilities[1]", "call_timeout"} {
		if !fields[want] {
			t.Errorf("missing field error for %s", want)
		}
	}
}

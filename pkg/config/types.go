package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// ComponentType is the closed set of component kinds.
type ComponentType string

const (
	TypeAgent          ComponentType = "agent"
	TypeLLM            ComponentType = "llm"
	TypeMCPServer      ComponentType = "mcp_server"
	TypeLinearWorkflow ComponentType = "linear_workflow"
	TypeCustomWorkflow ComponentType = "custom_workflow"
)

// ComponentTypes lists every valid component type in a stable order.
var ComponentTypes = []ComponentType{
	TypeAgent,
	TypeLLM,
	TypeMCPServer,
	TypeLinearWorkflow,
	TypeCustomWorkflow,
}

// ParseComponentType validates a type discriminator.
func ParseComponentType(s string) (ComponentType, error) {
	t := ComponentType(s)
	for _, known := range ComponentTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown component type %q", s)
}

// Provenance records where a component definition came from. Attached at
// index insertion, not at read time.
type Provenance struct {
	SourceFile    string
	ContextPath   string
	ContextLevel  ContextKind
	ProjectName   string
	WorkspaceName string
}

// Record is one resolved configuration entity. Exactly one of the typed spec
// pointers is set, matching Type. Raw keeps the original object so write
// operations round-trip unknown fields.
type Record struct {
	Type ComponentType
	Name string

	Raw map[string]any

	Agent          *AgentSpec
	LLM            *LLMSpec
	MCPServer      *MCPServerSpec
	LinearWorkflow *LinearWorkflowSpec
	CustomWorkflow *CustomWorkflowSpec

	Provenance Provenance

	// ValidatedAt is injected at read time for llm records from the
	// manager's validation table. Never stored in the file itself.
	ValidatedAt *time.Time
}

// AgentSpec configures an LLM-driven agent.
type AgentSpec struct {
	// LLMConfigID references an llm component by name. Mutually exclusive
	// with the inline model settings below.
	LLMConfigID string `yaml:"llm_config_id"`

	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// MCPServers lists mcp_server components this agent depends on. They
	// are activated just in time when the agent runs.
	MCPServers []string `yaml:"mcp_servers"`

	MaxIterations  int    `yaml:"max_iterations"`
	IncludeHistory bool   `yaml:"include_history"`
	SystemPrompt   string `yaml:"system_prompt"`
}

// LLMSpec configures a model endpoint.
type LLMSpec struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
}

// Capability kinds an MCP server may expose.
const (
	CapabilityTools     = "tools"
	CapabilityPrompts   = "prompts"
	CapabilityResources = "resources"
)

// MCPServerSpec configures one external tool server. Exactly one transport
// descriptor group must be present: server_path (stdio script),
// http_endpoint(+headers), or command(+args).
type MCPServerSpec struct {
	ServerPath string `yaml:"server_path"`

	HTTPEndpoint string            `yaml:"http_endpoint"`
	Headers      map[string]string `yaml:"headers"`

	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`

	Capabilities []string `yaml:"capabilities"`

	// CallTimeout bounds a single tool call. Zero means the gateway default.
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// StepRef is one step of a linear workflow. In YAML a step may be a bare
// component name or {name, type}; the type hint disambiguates when multiple
// components share the name across kinds.
type StepRef struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// LinearWorkflowSpec configures an ordered step sequence. Each step's output
// becomes the next step's input.
type LinearWorkflowSpec struct {
	Steps []StepRef `yaml:"steps"`

	// IncludeHistory overrides the per-agent history flag for every step.
	IncludeHistory *bool `yaml:"include_history"`
}

// CustomWorkflowSpec configures a user-supplied workflow entry point.
type CustomWorkflowSpec struct {
	ModulePath string   `yaml:"module_path"`
	EntryPoint string   `yaml:"entry_point"`
	MCPServers []string `yaml:"mcp_servers"`
}

// DecodeRecord turns one raw component object into a typed Record. The raw
// map must carry "type" and "name" discriminators.
func DecodeRecord(raw map[string]any) (Record, error) {
	typeStr, _ := raw["type"].(string)
	if typeStr == "" {
		return Record{}, fmt.Errorf("component object missing type discriminator")
	}
	t, err := ParseComponentType(typeStr)
	if err != nil {
		return Record{}, err
	}

	name, _ := raw["name"].(string)
	if name == "" {
		return Record{}, fmt.Errorf("%s component missing name", t)
	}

	rec := Record{Type: t, Name: name, Raw: raw}

	switch t {
	case TypeAgent:
		rec.Agent = &AgentSpec{}
		err = decodeSpec(raw, rec.Agent)
	case TypeLLM:
		rec.LLM = &LLMSpec{}
		err = decodeSpec(raw, rec.LLM)
	case TypeMCPServer:
		rec.MCPServer = &MCPServerSpec{}
		err = decodeSpec(raw, rec.MCPServer)
	case TypeLinearWorkflow:
		rec.LinearWorkflow = &LinearWorkflowSpec{}
		err = decodeSpec(raw, rec.LinearWorkflow)
	case TypeCustomWorkflow:
		rec.CustomWorkflow = &CustomWorkflowSpec{}
		err = decodeSpec(raw, rec.CustomWorkflow)
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to decode %s %q: %w", t, name, err)
	}

	return rec, nil
}

// decodeSpec decodes a raw map into a typed spec using mapstructure with
// yaml tag names and weak typing, so JSON and YAML sources behave alike.
func decodeSpec(input map[string]any, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stepRefHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(input)
}

// stepRefHookFunc lets a workflow step be written as a bare name string.
func stepRefHookFunc() mapstructure.DecodeHookFuncType {
	stepType := reflect.TypeOf(StepRef{})
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != stepType || from.Kind() != reflect.String {
			return data, nil
		}
		return map[string]any{"name": data.(string)}, nil
	}
}

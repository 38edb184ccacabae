package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/conductor-framework/conductor/pkg/config"
)

// componentSchemas groups every component spec for schema generation.
type componentSchemas struct {
	Agent          config.AgentSpec          `json:"agent"`
	LLM            config.LLMSpec            `json:"llm"`
	MCPServer      config.MCPServerSpec      `json:"mcp_server"`
	LinearWorkflow config.LinearWorkflowSpec `json:"linear_workflow"`
	CustomWorkflow config.CustomWorkflowSpec `json:"custom_workflow"`
}

// SchemaCmd generates JSON Schema for component definitions. Output goes to
// stdout so it can be redirected.
type SchemaCmd struct {
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&componentSchemas{})
	schema.Title = "Conductor Component Schema"
	schema.Description = "Definitions accepted in conductor component files"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}

package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/conductor-framework/conductor"
	"github.com/conductor-framework/conductor/pkg/config"
)

// stdioTransport speaks MCP to a subprocess over stdin/stdout using the
// mcp-go client. Covers both the stdio (server_path) and command descriptor
// groups.
type stdioTransport struct {
	server string
	client *client.Client
}

func dialStdio(server string, kind config.TransportKind, spec *config.MCPServerSpec) (Transport, error) {
	var command string
	var args []string
	switch kind {
	case config.TransportStdio:
		command = spec.ServerPath
	case config.TransportCommand:
		command = spec.Command
		args = spec.Args
	}

	c, err := client.NewStdioMCPClient(command, envSlice(spec.Env), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client for %q: %w", command, err)
	}
	return &stdioTransport{server: server, client: c}, nil
}

func (t *stdioTransport) Initialize(ctx context.Context) error {
	if err := t.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: conductor.Version,
	}
	initReq.Params.ProtocolVersion = protocolVersion

	if _, err := t.client.Initialize(ctx, initReq); err != nil {
		return fmt.Errorf("MCP handshake failed: %w", err)
	}
	return nil
}

func (t *stdioTransport) Discover(ctx context.Context, kinds []string) ([]Capability, error) {
	var caps []Capability
	for _, kind := range kinds {
		switch kind {
		case config.CapabilityTools:
			resp, err := t.client.ListTools(ctx, mcp.ListToolsRequest{})
			if err != nil {
				return nil, fmt.Errorf("failed to list tools: %w", err)
			}
			for _, tool := range resp.Tools {
				caps = append(caps, Capability{
					Server:      t.server,
					Name:        tool.Name,
					Kind:        KindTool,
					Description: tool.Description,
					InputSchema: schemaToMap(tool.InputSchema),
				})
			}

		case config.CapabilityPrompts:
			resp, err := t.client.ListPrompts(ctx, mcp.ListPromptsRequest{})
			if err != nil {
				return nil, fmt.Errorf("failed to list prompts: %w", err)
			}
			for _, prompt := range resp.Prompts {
				caps = append(caps, Capability{
					Server:      t.server,
					Name:        prompt.Name,
					Kind:        KindPrompt,
					Description: prompt.Description,
				})
			}

		case config.CapabilityResources:
			resp, err := t.client.ListResources(ctx, mcp.ListResourcesRequest{})
			if err != nil {
				return nil, fmt.Errorf("failed to list resources: %w", err)
			}
			for _, res := range resp.Resources {
				caps = append(caps, Capability{
					Server:      t.server,
					Name:        res.Name,
					Kind:        KindResource,
					Description: res.Description,
				})
			}

		default:
			return nil, fmt.Errorf("unknown capability group %q", kind)
		}
	}
	sortCapabilities(caps)
	return caps, nil
}

func (t *stdioTransport) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := t.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("MCP call failed: %w", err)
	}

	texts := textContents(resp.Content)
	if resp.IsError {
		msg := "unknown error"
		if len(texts) > 0 {
			msg = texts[0]
		}
		return "", fmt.Errorf("tool %q failed: %s", name, msg)
	}
	return strings.Join(texts, "\n"), nil
}

func (t *stdioTransport) Close() error {
	return t.client.Close()
}

func textContents(content []mcp.Content) []string {
	var texts []string
	for _, c := range content {
		if tc, ok := c.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	return texts
}

func schemaToMap(schema mcp.ToolInputSchema) map[string]any {
	m := map[string]any{"type": schema.Type}
	if len(schema.Properties) > 0 {
		m["properties"] = schema.Properties
	}
	if len(schema.Required) > 0 {
		m["required"] = schema.Required
	}
	return m
}

// envSlice converts an environment map to "KEY=VALUE" form.
func envSlice(env map[string]string) []string {
	if env == nil {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

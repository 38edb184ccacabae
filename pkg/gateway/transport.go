// Package gateway activates external tool servers on demand and routes
// capability calls to them.
//
// Servers are activated just in time: the first request that needs a server
// dials it, runs the MCP handshake, and discovers its capabilities. Later
// requests reuse the live connection. Concurrent activations of the same
// server are collapsed into a single handshake.
//
// Transport support:
//   - stdio, command: subprocess via the mcp-go client
//   - http: MCP JSON-RPC over the retrying HTTP client
package gateway

import (
	"context"
	"fmt"
	"sort"

	"github.com/conductor-framework/conductor/pkg/config"
)

const (
	// Separator joins a server name and a capability name into the
	// qualified form exposed to callers.
	Separator = "__"

	clientName      = "conductor"
	protocolVersion = "2024-11-05"
)

// Capability kinds, matching the declared capability groups of a server spec.
const (
	KindTool     = "tool"
	KindPrompt   = "prompt"
	KindResource = "resource"
)

// Capability is one tool, prompt, or resource discovered on an active server.
type Capability struct {
	Server      string
	Name        string
	Kind        string
	Description string
	InputSchema map[string]any
}

// Qualified returns the server-prefixed name callers use to invoke the
// capability.
func (c Capability) Qualified() string {
	return c.Server + Separator + c.Name
}

// Transport is one live connection to a tool server. Implementations are not
// required to be safe for concurrent use before Initialize returns.
type Transport interface {
	// Initialize runs the MCP handshake.
	Initialize(ctx context.Context) error

	// Discover lists the server's capabilities for the requested kinds
	// (capability group names: "tools", "prompts", "resources").
	Discover(ctx context.Context, kinds []string) ([]Capability, error)

	// CallTool invokes a tool by its unprefixed remote name and returns the
	// concatenated text content. A remote execution error is returned as an
	// error.
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)

	Close() error
}

// Dialer opens a transport for a server spec. The default dials real
// processes and endpoints; tests substitute fakes.
type Dialer func(server string, spec *config.MCPServerSpec) (Transport, error)

// Dial is the default Dialer.
func Dial(server string, spec *config.MCPServerSpec) (Transport, error) {
	kind, err := spec.Transport()
	if err != nil {
		return nil, err
	}
	switch kind {
	case config.TransportHTTP:
		return newHTTPTransport(server, spec), nil
	case config.TransportStdio, config.TransportCommand:
		return dialStdio(server, kind, spec)
	default:
		return nil, fmt.Errorf("unsupported transport %q", kind)
	}
}

// discoveryKinds normalizes a spec's declared capability groups. An empty
// declaration means tools only.
func discoveryKinds(declared []string) []string {
	if len(declared) == 0 {
		return []string{config.CapabilityTools}
	}
	return declared
}

func sortCapabilities(caps []Capability) {
	sort.Slice(caps, func(i, j int) bool {
		if caps[i].Kind != caps[j].Kind {
			return caps[i].Kind < caps[j].Kind
		}
		return caps[i].Name < caps[j].Name
	})
}

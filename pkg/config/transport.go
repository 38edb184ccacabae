package config

import (
	"fmt"
	"strings"
)

// TransportKind is how a tool server is reached. Inferred from which
// transport descriptor group the spec carries.
type TransportKind string

const (
	// TransportStdio launches server_path as a subprocess speaking MCP
	// over stdin/stdout.
	TransportStdio TransportKind = "stdio"

	// TransportHTTP speaks MCP JSON-RPC against http_endpoint.
	TransportHTTP TransportKind = "http"

	// TransportCommand launches command+args as a subprocess.
	TransportCommand TransportKind = "command"
)

// Transport infers the transport kind from the descriptor groups present.
// The groups are checked in a fixed order (server_path, http_endpoint,
// command); zero or multiple groups is an error, never a silent first match.
func (s *MCPServerSpec) Transport() (TransportKind, error) {
	var present []TransportKind
	if s.ServerPath != "" {
		present = append(present, TransportStdio)
	}
	if s.HTTPEndpoint != "" {
		present = append(present, TransportHTTP)
	}
	if s.Command != "" {
		present = append(present, TransportCommand)
	}

	switch len(present) {
	case 0:
		return "", fmt.Errorf("no transport descriptor: set one of server_path, http_endpoint, or command")
	case 1:
		return present[0], nil
	default:
		names := make([]string, len(present))
		for i, k := range present {
			names[i] = string(k)
		}
		return "", fmt.Errorf("ambiguous transport: %s descriptors are mutually exclusive", strings.Join(names, " and "))
	}
}

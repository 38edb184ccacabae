package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/conductor-framework/conductor"
	"github.com/conductor-framework/conductor/internal/httpclient"
	"github.com/conductor-framework/conductor/pkg/config"
)

// httpTransport speaks MCP JSON-RPC against an HTTP endpoint. Streamable-http
// servers return a session id header on initialize; it is echoed on every
// later request. Responses may arrive as plain JSON or as a single-event SSE
// body.
type httpTransport struct {
	server   string
	endpoint string
	headers  map[string]string

	client *httpclient.Client
	nextID atomic.Int64

	sessionMu sync.RWMutex
	sessionID string
}

func newHTTPTransport(server string, spec *config.MCPServerSpec) *httpTransport {
	return &httpTransport{
		server:   server,
		endpoint: spec.HTTPEndpoint,
		headers:  spec.Headers,
		client:   httpclient.New(),
	}
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonRPCError `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (t *httpTransport) Initialize(ctx context.Context) error {
	resp, err := t.rpc(ctx, "initialize", map[string]any{
		"protocolVersion": protocolVersion,
		"clientInfo": map[string]any{
			"name":    clientName,
			"version": conductor.Version,
		},
		"capabilities": map[string]any{},
	})
	if err != nil {
		return fmt.Errorf("MCP handshake failed: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("MCP handshake rejected: %s", resp.Error.Message)
	}
	return nil
}

func (t *httpTransport) Discover(ctx context.Context, kinds []string) ([]Capability, error) {
	var caps []Capability
	for _, kind := range kinds {
		var method, listKey, capKind string
		switch kind {
		case config.CapabilityTools:
			method, listKey, capKind = "tools/list", "tools", KindTool
		case config.CapabilityPrompts:
			method, listKey, capKind = "prompts/list", "prompts", KindPrompt
		case config.CapabilityResources:
			method, listKey, capKind = "resources/list", "resources", KindResource
		default:
			return nil, fmt.Errorf("unknown capability group %q", kind)
		}

		resp, err := t.rpc(ctx, method, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", listKey, err)
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("failed to list %s: %s", listKey, resp.Error.Message)
		}

		resultMap, ok := resp.Result.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected result type from %s", method)
		}
		items, ok := resultMap[listKey].([]any)
		if !ok {
			return nil, fmt.Errorf("missing %s in %s response", listKey, method)
		}

		for _, raw := range items {
			item, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			name, _ := item["name"].(string)
			if name == "" {
				continue
			}
			desc, _ := item["description"].(string)
			schema, _ := item["inputSchema"].(map[string]any)
			caps = append(caps, Capability{
				Server:      t.server,
				Name:        name,
				Kind:        capKind,
				Description: desc,
				InputSchema: schema,
			})
		}
	}
	sortCapabilities(caps)
	return caps, nil
}

func (t *httpTransport) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	resp, err := t.rpc(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return "", fmt.Errorf("MCP call failed: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("tool %q failed: %s", name, resp.Error.Message)
	}

	resultMap, ok := resp.Result.(map[string]any)
	if !ok {
		return fmt.Sprintf("%v", resp.Result), nil
	}

	var texts []string
	if content, ok := resultMap["content"].([]any); ok {
		for _, c := range content {
			cm, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if cm["type"] != "text" {
				continue
			}
			if text, ok := cm["text"].(string); ok {
				texts = append(texts, text)
			}
		}
	}
	if isError, _ := resultMap["isError"].(bool); isError {
		msg := "unknown error"
		if len(texts) > 0 {
			msg = texts[0]
		}
		return "", fmt.Errorf("tool %q failed: %s", name, msg)
	}
	return strings.Join(texts, "\n"), nil
}

func (t *httpTransport) Close() error {
	// Nothing to tear down: connections are pooled by net/http.
	return nil
}

func (t *httpTransport) rpc(ctx context.Context, method string, params any) (*jsonRPCResponse, error) {
	req := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      t.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}

	t.sessionMu.RLock()
	sessionID := t.sessionID
	t.sessionMu.RUnlock()
	if sessionID != "" {
		httpReq.Header.Set("mcp-session-id", sessionID)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if id := httpResp.Header.Get("mcp-session-id"); id != "" {
		t.sessionMu.Lock()
		t.sessionID = id
		t.sessionMu.Unlock()
	}

	if httpResp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("HTTP error %d: %s", httpResp.StatusCode, string(payload))
	}

	if strings.Contains(httpResp.Header.Get("Content-Type"), "text/event-stream") {
		return readSSEResponse(httpResp.Body)
	}

	payload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var resp jsonRPCResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// readSSEResponse extracts the first complete JSON-RPC message from an SSE
// body. Streamable-http servers deliver exactly one message per request.
func readSSEResponse(body io.Reader) (*jsonRPCResponse, error) {
	reader := bufio.NewReader(body)
	var data strings.Builder

	flush := func() (*jsonRPCResponse, bool) {
		if data.Len() == 0 {
			return nil, false
		}
		var resp jsonRPCResponse
		if err := json.Unmarshal([]byte(data.String()), &resp); err != nil {
			data.Reset()
			return nil, false
		}
		return &resp, true
	}

	for {
		line, err := reader.ReadString('\n')
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			if resp, ok := flush(); ok {
				return resp, nil
			}
		} else if rest, found := strings.CutPrefix(trimmed, "data:"); found {
			data.WriteString(strings.TrimSpace(rest))
		}

		if err != nil {
			if err == io.EOF {
				if resp, ok := flush(); ok {
					return resp, nil
				}
				return nil, fmt.Errorf("SSE stream ended without a complete message")
			}
			return nil, fmt.Errorf("failed to read SSE stream: %w", err)
		}
	}
}

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/conductor-framework/conductor/pkg/config"
)

const (
	// DefaultCallTimeout bounds one tool call when the server spec does not
	// set its own.
	DefaultCallTimeout = 10 * time.Second

	// DefaultRegisterTimeout bounds the dial, handshake, and capability
	// discovery of one activation.
	DefaultRegisterTimeout = 30 * time.Second
)

// Connection is one active tool server.
type Connection struct {
	Server       string
	Kind         config.TransportKind
	Capabilities []Capability
	RegisteredAt time.Time

	callTimeout time.Duration
	transport   Transport
}

// Gateway holds active tool-server connections and routes capability calls.
// All methods are safe for concurrent use.
type Gateway struct {
	dial            Dialer
	callTimeout     time.Duration
	registerTimeout time.Duration
	exclusions      map[string]bool
	tracer          trace.Tracer

	group singleflight.Group

	mu     sync.RWMutex
	conns  map[string]*Connection
	routes map[string]string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithDialer replaces the transport dialer.
func WithDialer(dial Dialer) Option {
	return func(g *Gateway) { g.dial = dial }
}

// WithCallTimeout sets the default per-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.callTimeout = d }
}

// WithRegisterTimeout sets the per-activation timeout.
func WithRegisterTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.registerTimeout = d }
}

// WithExclusions hides the named capabilities from every listing. Names match
// either the qualified or the bare form.
func WithExclusions(names []string) Option {
	return func(g *Gateway) {
		g.exclusions = make(map[string]bool, len(names))
		for _, n := range names {
			g.exclusions[n] = true
		}
	}
}

// New creates a gateway with no active connections.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		dial:            Dial,
		callTimeout:     DefaultCallTimeout,
		registerTimeout: DefaultRegisterTimeout,
		tracer:          otel.Tracer("conductor/gateway"),
		conns:           make(map[string]*Connection),
		routes:          make(map[string]string),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsActive reports whether a server connection is live.
func (g *Gateway) IsActive(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.conns[name] != nil
}

// ActiveServers returns the names of live connections, sorted.
func (g *Gateway) ActiveServers() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.conns))
	for name := range g.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register activates a tool server from its resolved configuration record.
// Idempotent: an already-active server is returned as is. Concurrent
// registrations of the same server share one handshake, and every caller
// gets the same connection or the same error. A failed activation leaves no
// partial state behind.
func (g *Gateway) Register(ctx context.Context, rec config.Record) (*Connection, error) {
	if rec.Type != config.TypeMCPServer || rec.MCPServer == nil {
		return nil, &RegistrationError{
			Server: rec.Name,
			Err:    fmt.Errorf("record is %s, not %s", rec.Type, config.TypeMCPServer),
		}
	}

	if conn := g.lookup(rec.Name); conn != nil {
		return conn, nil
	}

	v, err, _ := g.group.Do(rec.Name, func() (any, error) {
		if conn := g.lookup(rec.Name); conn != nil {
			return conn, nil
		}
		return g.activate(ctx, rec.Name, rec.MCPServer)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Connection), nil
}

func (g *Gateway) lookup(name string) *Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.conns[name]
}

func (g *Gateway) activate(ctx context.Context, name string, spec *config.MCPServerSpec) (*Connection, error) {
	kind, err := spec.Transport()
	if err != nil {
		return nil, &RegistrationError{Server: name, Err: err}
	}

	transport, err := g.dial(name, spec)
	if err != nil {
		return nil, &RegistrationError{Server: name, Err: err}
	}

	regCtx, cancel := context.WithTimeout(ctx, g.registerTimeout)
	defer cancel()

	fail := func(err error) error {
		transport.Close()
		if errors.Is(err, context.DeadlineExceeded) {
			err = &TimeoutError{Name: name, Timeout: g.registerTimeout, Err: err}
		}
		return &RegistrationError{Server: name, Err: err}
	}

	if err := transport.Initialize(regCtx); err != nil {
		return nil, fail(err)
	}
	caps, err := transport.Discover(regCtx, discoveryKinds(spec.Capabilities))
	if err != nil {
		return nil, fail(err)
	}

	callTimeout := spec.CallTimeout
	if callTimeout <= 0 {
		callTimeout = g.callTimeout
	}
	conn := &Connection{
		Server:       name,
		Kind:         kind,
		Capabilities: caps,
		RegisteredAt: time.Now(),
		callTimeout:  callTimeout,
		transport:    transport,
	}

	g.mu.Lock()
	g.conns[name] = conn
	for _, c := range caps {
		if c.Kind == KindTool {
			g.routes[c.Qualified()] = name
		}
	}
	g.mu.Unlock()

	slog.Info("Activated tool server",
		"server", name,
		"transport", kind,
		"capabilities", len(caps),
	)
	return conn, nil
}

// Unregister closes a server connection and drops its routed capabilities.
// No-op when the server is not active.
func (g *Gateway) Unregister(name string) error {
	g.mu.Lock()
	conn := g.conns[name]
	if conn == nil {
		g.mu.Unlock()
		return nil
	}
	delete(g.conns, name)
	for qualified, server := range g.routes {
		if server == name {
			delete(g.routes, qualified)
		}
	}
	g.mu.Unlock()

	slog.Info("Deactivated tool server", "server", name)
	return conn.transport.Close()
}

// Close unregisters every active server.
func (g *Gateway) Close() error {
	var errs []error
	for _, name := range g.ActiveServers() {
		if err := g.Unregister(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Filter narrows a capability listing. Allow and Deny match qualified names;
// an empty Allow admits everything.
type Filter struct {
	Allow []string
	Deny  []string
}

// ListCapabilities aggregates capabilities across all active connections,
// sorted by qualified name. Global exclusions apply before the caller's
// filter.
func (g *Gateway) ListCapabilities(filter *Filter) []Capability {
	var allow, deny map[string]bool
	if filter != nil {
		if len(filter.Allow) > 0 {
			allow = make(map[string]bool, len(filter.Allow))
			for _, n := range filter.Allow {
				allow[n] = true
			}
		}
		if len(filter.Deny) > 0 {
			deny = make(map[string]bool, len(filter.Deny))
			for _, n := range filter.Deny {
				deny[n] = true
			}
		}
	}

	g.mu.RLock()
	var caps []Capability
	for _, conn := range g.conns {
		for _, c := range conn.Capabilities {
			qualified := c.Qualified()
			if g.exclusions[qualified] || g.exclusions[c.Name] {
				continue
			}
			if allow != nil && !allow[qualified] {
				continue
			}
			if deny[qualified] {
				continue
			}
			caps = append(caps, c)
		}
	}
	g.mu.RUnlock()

	sort.Slice(caps, func(i, j int) bool {
		return caps[i].Qualified() < caps[j].Qualified()
	})
	return caps
}

// Call routes a qualified tool name to its owning connection and invokes it.
// The per-call timeout is the server's call_timeout or the gateway default.
func (g *Gateway) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	g.mu.RLock()
	server, ok := g.routes[name]
	conn := g.conns[server]
	g.mu.RUnlock()
	if !ok || conn == nil {
		return "", &NotFoundError{Name: name}
	}

	ctx, span := g.tracer.Start(ctx, "gateway.call",
		trace.WithAttributes(
			attribute.String("tool.name", name),
			attribute.String("tool.server", conn.Server),
		),
	)
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, conn.callTimeout)
	defer cancel()

	remote := strings.TrimPrefix(name, conn.Server+Separator)
	start := time.Now()
	out, err := conn.transport.CallTool(callCtx, remote, args)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = &TimeoutError{Name: name, Timeout: conn.callTimeout, Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Debug("Tool call failed",
			"tool", name,
			"server", conn.Server,
			"duration", time.Since(start),
			"error", err,
		)
		return "", err
	}

	span.SetStatus(codes.Ok, "")
	slog.Debug("Tool call completed",
		"tool", name,
		"server", conn.Server,
		"duration", time.Since(start),
	)
	return out, nil
}

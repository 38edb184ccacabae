// Package orchestrator drives runs of agents and workflows.
//
// A run moves through a fixed set of phases: resolve the requested component
// and everything it references, activate its tool-server dependencies, load
// the session, execute, persist. Configuration problems surface before any
// server is activated, and the session is persisted whenever it was loaded,
// including failed and cancelled runs.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conductor-framework/conductor/pkg/config"
	"github.com/conductor-framework/conductor/pkg/gateway"
	"github.com/conductor-framework/conductor/pkg/session"
)

// Run phases, in order.
const (
	phaseResolving  = "resolving"
	phaseActivating = "activating_dependencies"
	phaseLoading    = "loading_session"
	phaseRunning    = "running"
	phasePersisting = "persisting"
)

// Status is a run's terminal state.
type Status string

const (
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// RunRequest asks for one run of an agent or workflow.
type RunRequest struct {
	// Kind is agent, linear_workflow, or custom_workflow.
	Kind config.ComponentType

	Name  string
	Input string

	// SessionID continues an existing session. Empty mints a new id.
	SessionID string

	// IncludeHistory overrides the component's own history setting.
	IncludeHistory *bool
}

// Timing captures when a run started and how long it took.
type Timing struct {
	StartedAt time.Time
	Duration  time.Duration
}

// Result is a normalized run outcome.
type Result struct {
	SessionID       string
	Status          Status
	FinalOutput     string
	ToolCalls       int
	ToolServersUsed []string
	History         []session.Turn
	Timing          Timing
}

// ConfigSource looks up resolved component records. Satisfied by
// *config.Manager.
type ConfigSource interface {
	GetConfig(t config.ComponentType, name string) (config.Record, bool)
}

// Activator activates tool servers and exposes their capabilities. Satisfied
// by *gateway.Gateway.
type Activator interface {
	IsActive(name string) bool
	Register(ctx context.Context, rec config.Record) (*gateway.Connection, error)
	ToolSurface
}

// Orchestrator coordinates config resolution, tool-server activation,
// session persistence, and runner dispatch.
type Orchestrator struct {
	configs ConfigSource
	gateway Activator
	store   session.Store
	agents  AgentRunner
	custom  CustomWorkflowRunner
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCustomWorkflowRunner installs the runner for custom_workflow
// components. Without one, running a custom workflow fails.
func WithCustomWorkflowRunner(r CustomWorkflowRunner) Option {
	return func(o *Orchestrator) { o.custom = r }
}

// New creates an orchestrator.
func New(configs ConfigSource, gw Activator, store session.Store, agents AgentRunner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		configs: configs,
		gateway: gw,
		store:   store,
		agents:  agents,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// resolvedRun is everything the later phases need, gathered up front so
// configuration errors surface before any side effect.
type resolvedRun struct {
	rec     config.Record
	steps   []config.Record
	servers []config.Record
}

// Run executes the request to completion. The result is returned alongside
// the error on failed and cancelled runs, carrying the session id and
// whatever history accumulated.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*Result, error) {
	return o.run(ctx, req, nil)
}

// RunStream executes the request and streams events. The first event is
// session_info; the last is complete or error. The channel closes after the
// terminal event. Cancelling ctx aborts the run with a cancelled result.
func (o *Orchestrator) RunStream(ctx context.Context, req RunRequest) <-chan Event {
	events := make(chan Event, 16)
	emit := func(e Event) {
		select {
		case events <- e:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(events)
		res, err := o.run(ctx, req, emit)

		var terminal Event
		switch {
		case res != nil && res.Status == StatusCancelled:
			terminal = newEvent(EventComplete)
			terminal.Result = res
		case err != nil:
			terminal = newEvent(EventError)
			terminal.Err = err
		default:
			terminal = newEvent(EventComplete)
			terminal.Result = res
		}
		if res != nil {
			terminal.SessionID = res.SessionID
		}
		// The terminal event must reach the consumer even when the buffer is
		// full. Only a gone consumer (cancelled ctx) abandons it, and the
		// buffered fast path still delivers it when the run itself was the
		// thing cancelled.
		select {
		case events <- terminal:
		default:
			select {
			case events <- terminal:
			case <-ctx.Done():
			}
		}
	}()
	return events
}

func (o *Orchestrator) run(ctx context.Context, req RunRequest, emit Emit) (*Result, error) {
	started := time.Now()

	slog.Debug("Run phase", "phase", phaseResolving, "kind", req.Kind, "name", req.Name)
	rr, err := o.resolve(req)
	if err != nil {
		return nil, err
	}

	slog.Debug("Run phase", "phase", phaseActivating, "servers", len(rr.servers))
	serversUsed, err := o.activate(ctx, rr)
	if err != nil {
		return nil, err
	}

	slog.Debug("Run phase", "phase", phaseLoading)
	sid, sess, err := o.loadSession(ctx, req, rr.rec)
	if err != nil {
		return nil, err
	}

	info := newEvent(EventSessionInfo)
	info.SessionID = sid
	send(emit, info)

	history := make([]session.Turn, len(sess.Turns))
	copy(history, sess.Turns)
	if !o.includeHistory(req, rr.rec) {
		history = nil
	}
	sess.Append(session.Turn{Role: session.RoleUser, Content: req.Input})

	slog.Debug("Run phase", "phase", phaseRunning)
	out, stepResults, runErr := o.dispatch(ctx, rr, sid, req.Input, history, emit)
	if out == nil {
		out = &RunnerOutput{}
	}

	sess.Turns = append(sess.Turns, out.Turns...)
	if runErr == nil && out.Content != "" {
		sess.Append(session.Turn{
			Role:    session.RoleAssistant,
			Content: out.Content,
			Name:    rr.rec.Name,
		})
	}

	status := StatusDone
	if runErr != nil {
		status = StatusFailed
		if errors.Is(runErr, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			status = StatusCancelled
		}
	}

	slog.Debug("Run phase", "phase", phasePersisting, "status", status)
	o.persist(ctx, sess, &session.RunRecord{
		FinalOutput:     out.Content,
		Status:          string(status),
		ToolServersUsed: serversUsed,
		StartedAt:       started.UTC(),
		Duration:        time.Since(started),
		StepResults:     stepResults,
	})

	res := &Result{
		SessionID:       sid,
		Status:          status,
		FinalOutput:     out.Content,
		ToolCalls:       out.ToolCalls,
		ToolServersUsed: serversUsed,
		History:         sess.Turns,
		Timing:          Timing{StartedAt: started, Duration: time.Since(started)},
	}
	return res, runErr
}

// resolve gathers the runnable record, workflow steps, and every dependency
// server record. A reference to a missing server fails here, naming both the
// server and the component that wants it.
func (o *Orchestrator) resolve(req RunRequest) (*resolvedRun, error) {
	switch req.Kind {
	case config.TypeAgent, config.TypeLinearWorkflow, config.TypeCustomWorkflow:
	default:
		return nil, config.NewConfigError(req.Name,
			fmt.Sprintf("component type %q is not runnable", req.Kind), nil)
	}

	rec, ok := o.configs.GetConfig(req.Kind, req.Name)
	if !ok {
		return nil, config.NewConfigError(req.Name,
			fmt.Sprintf("%s %q is not defined", req.Kind, req.Name), nil)
	}
	rr := &resolvedRun{rec: rec}

	seen := make(map[string]bool)
	addServers := func(component string, names []string) error {
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			srv, ok := o.configs.GetConfig(config.TypeMCPServer, name)
			if !ok {
				return config.NewConfigError(component,
					fmt.Sprintf("mcp server %q is not defined", name), nil)
			}
			rr.servers = append(rr.servers, srv)
		}
		return nil
	}

	switch req.Kind {
	case config.TypeAgent:
		if err := addServers(rec.Name, rec.Agent.MCPServers); err != nil {
			return nil, err
		}

	case config.TypeCustomWorkflow:
		if err := addServers(rec.Name, rec.CustomWorkflow.MCPServers); err != nil {
			return nil, err
		}

	case config.TypeLinearWorkflow:
		for i, step := range rec.LinearWorkflow.Steps {
			stepRec, err := o.resolveStep(rec.Name, i, step)
			if err != nil {
				return nil, err
			}
			rr.steps = append(rr.steps, stepRec)

			switch stepRec.Type {
			case config.TypeAgent:
				err = addServers(stepRec.Name, stepRec.Agent.MCPServers)
			case config.TypeCustomWorkflow:
				err = addServers(stepRec.Name, stepRec.CustomWorkflow.MCPServers)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return rr, nil
}

// stepTypes are the component kinds a workflow step may reference, in the
// order they are probed when the step carries no type hint.
var stepTypes = []config.ComponentType{config.TypeAgent, config.TypeCustomWorkflow}

// resolveStep looks up one workflow step. A step without a type hint must
// match exactly one component kind; a name shared across kinds is an error,
// never a silent pick.
func (o *Orchestrator) resolveStep(workflow string, index int, step config.StepRef) (config.Record, error) {
	if step.Type != "" {
		t, err := config.ParseComponentType(step.Type)
		if err != nil {
			return config.Record{}, config.NewConfigError(workflow,
				fmt.Sprintf("step %d: %v", index, err), nil)
		}
		rec, ok := o.configs.GetConfig(t, step.Name)
		if !ok {
			return config.Record{}, config.NewConfigError(workflow,
				fmt.Sprintf("step %d references undefined %s %q", index, t, step.Name), nil)
		}
		return rec, nil
	}

	var matches []config.Record
	for _, t := range stepTypes {
		if rec, ok := o.configs.GetConfig(t, step.Name); ok {
			matches = append(matches, rec)
		}
	}
	switch len(matches) {
	case 0:
		return config.Record{}, config.NewConfigError(workflow,
			fmt.Sprintf("step %d references undefined component %q", index, step.Name), nil)
	case 1:
		return matches[0], nil
	default:
		return config.Record{}, config.NewConfigError(workflow,
			fmt.Sprintf("step %d: component %q exists as multiple types, add a type hint", index, step.Name), nil)
	}
}

// activate registers every dependency server that is not already live.
// Servers activated before a failure stay activated.
func (o *Orchestrator) activate(ctx context.Context, rr *resolvedRun) ([]string, error) {
	var used []string
	for _, srv := range rr.servers {
		used = append(used, srv.Name)
		if o.gateway.IsActive(srv.Name) {
			continue
		}
		if _, err := o.gateway.Register(ctx, srv); err != nil {
			return nil, &ExecutionError{Component: rr.rec.Name, StepIndex: -1, Err: err}
		}
	}
	return used, nil
}

func sessionKind(t config.ComponentType) string {
	if t == config.TypeAgent {
		return "agent"
	}
	return "workflow"
}

func (o *Orchestrator) loadSession(ctx context.Context, req RunRequest, rec config.Record) (string, *session.Session, error) {
	kind := sessionKind(req.Kind)
	sid := req.SessionID
	if sid == "" {
		sid = session.NewID(kind)
	} else if err := session.ValidateID(sid, kind); err != nil {
		return "", nil, config.NewConfigError(req.Name, err.Error(), nil)
	}

	sess, err := o.store.Load(ctx, sid)
	if errors.Is(err, session.ErrSessionNotFound) {
		sess = session.New(sid, rec.Name)
	} else if err != nil {
		return "", nil, &ExecutionError{Component: rec.Name, StepIndex: -1, Err: err}
	}
	return sid, sess, nil
}

// includeHistory resolves the effective history flag: the request override
// wins, then the component's own setting.
func (o *Orchestrator) includeHistory(req RunRequest, rec config.Record) bool {
	if req.IncludeHistory != nil {
		return *req.IncludeHistory
	}
	switch rec.Type {
	case config.TypeAgent:
		return rec.Agent.IncludeHistory
	case config.TypeLinearWorkflow:
		return rec.LinearWorkflow.IncludeHistory != nil && *rec.LinearWorkflow.IncludeHistory
	}
	return false
}

func (o *Orchestrator) dispatch(ctx context.Context, rr *resolvedRun, sid, input string, history []session.Turn, emit Emit) (*RunnerOutput, []session.StepResult, error) {
	in := RunnerInput{
		Record:  rr.rec,
		Input:   input,
		History: history,
		Tools:   o.gateway,
	}

	switch rr.rec.Type {
	case config.TypeAgent:
		out, err := o.agents.Run(ctx, in, emit)
		if err != nil {
			err = &ExecutionError{Component: rr.rec.Name, StepIndex: -1, Err: err}
		}
		return out, nil, err

	case config.TypeCustomWorkflow:
		if o.custom == nil {
			return nil, nil, &ExecutionError{
				Component: rr.rec.Name,
				StepIndex: -1,
				Err:       errors.New("no custom workflow runner configured"),
			}
		}
		out, err := o.custom.RunWorkflow(ctx, in, emit)
		if err != nil {
			err = &ExecutionError{Component: rr.rec.Name, StepIndex: -1, Err: err}
		}
		return out, nil, err

	case config.TypeLinearWorkflow:
		return o.runLinear(ctx, rr, sid, input, history, emit)
	}
	return nil, nil, &ExecutionError{
		Component: rr.rec.Name,
		StepIndex: -1,
		Err:       fmt.Errorf("component type %q is not runnable", rr.rec.Type),
	}
}

// persist saves the session and run record. Best effort: a run that already
// produced a result is not failed over a persistence error.
func (o *Orchestrator) persist(ctx context.Context, sess *session.Session, rec *session.RunRecord) {
	// Persistence must survive run cancellation.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := o.store.Save(pctx, sess); err != nil {
		slog.Error("Failed to persist session", "session_id", sess.ID, "error", err)
	}
	if err := o.store.SaveResult(pctx, sess.ID, rec); err != nil {
		slog.Error("Failed to persist run record", "session_id", sess.ID, "error", err)
	}
}

func send(emit Emit, e Event) {
	if emit != nil {
		emit(e)
	}
}

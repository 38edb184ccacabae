package orchestrator

import (
	"context"

	"github.com/conductor-framework/conductor/pkg/config"
	"github.com/conductor-framework/conductor/pkg/gateway"
	"github.com/conductor-framework/conductor/pkg/session"
)

// ToolSurface is the tool view a runner sees: the capabilities its dependency
// servers expose, and a way to call them by qualified name. Satisfied by
// *gateway.Gateway.
type ToolSurface interface {
	ListCapabilities(filter *gateway.Filter) []gateway.Capability
	Call(ctx context.Context, name string, args map[string]any) (string, error)
}

// RunnerInput is everything a runner needs for one invocation.
type RunnerInput struct {
	// Record is the resolved component driving this invocation.
	Record config.Record

	// Input is the user input, or the previous step's output inside a
	// workflow.
	Input string

	// History is the prior conversation, empty when history is disabled.
	History []session.Turn

	// Tools exposes the activated dependency servers.
	Tools ToolSurface
}

// RunnerOutput is one invocation's outcome. Turns carries intermediate
// conversation entries (tool traces); the final assistant turn is derived
// from Content by the caller and must not be included.
type RunnerOutput struct {
	Content   string
	Turns     []session.Turn
	ToolCalls int
}

// Emit receives runner events during a streaming run. A nil Emit is valid
// and means the caller does not want intermediate events.
type Emit func(Event)

// AgentRunner executes a single agent invocation. The LLM loop itself lives
// behind this interface; the orchestrator owns everything around it.
type AgentRunner interface {
	Run(ctx context.Context, in RunnerInput, emit Emit) (*RunnerOutput, error)
}

// CustomWorkflowRunner executes a user-supplied workflow module.
type CustomWorkflowRunner interface {
	RunWorkflow(ctx context.Context, in RunnerInput, emit Emit) (*RunnerOutput, error)
}

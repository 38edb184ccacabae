package orchestrator

import "time"

// EventType is the public streaming vocabulary. Runner-internal events are
// translated into these before they reach a consumer.
type EventType string

const (
	// EventSessionInfo is always the first event and carries the resolved
	// session id.
	EventSessionInfo EventType = "session_info"

	// EventContent is a chunk of model or workflow output.
	EventContent EventType = "content"

	// EventToolCall announces a tool dispatch.
	EventToolCall EventType = "tool_call"

	// EventToolResult carries a tool's output.
	EventToolResult EventType = "tool_result"

	// EventStepStarted and EventStepCompleted bracket one workflow step.
	EventStepStarted   EventType = "step_started"
	EventStepCompleted EventType = "step_completed"

	// EventComplete is terminal and carries the full result.
	EventComplete EventType = "complete"

	// EventError is terminal. Run failures surface here, never as a panic
	// or a dropped channel.
	EventError EventType = "error"
)

// Event is one streamed occurrence during a run.
type Event struct {
	Type      EventType
	SessionID string

	Content  string
	ToolName string
	ToolArgs map[string]any

	StepIndex int
	StepName  string

	Result *Result
	Err    error

	Timestamp time.Time
}

func newEvent(t EventType) Event {
	return Event{Type: t, Timestamp: time.Now().UTC()}
}

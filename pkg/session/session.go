// Package session persists conversation history and run outcomes.
//
// A session is a series of turns between a user and one owning agent or
// workflow. Stores keep the full history; a run appends its turns and a
// summary record when it finishes.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ErrSessionNotFound is returned when a session id has no stored state.
var ErrSessionNotFound = errors.New("session not found")

// Turn is one message in a conversation. Name carries the originating agent
// or tool when the role alone is ambiguous.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a conversation owned by one agent or workflow.
type Session struct {
	ID          string
	Owner       string
	Turns       []Turn
	CreatedAt   time.Time
	LastUpdated time.Time
	Metadata    map[string]string
}

// New creates an empty session.
func New(id, owner string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:          id,
		Owner:       owner,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// Append adds a turn and bumps the update time. Missing turn timestamps are
// filled in.
func (s *Session) Append(turn Turn) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	s.Turns = append(s.Turns, turn)
	s.LastUpdated = turn.Timestamp
}

// NewID mints a session id carrying the runnable kind as its prefix, e.g.
// "agent-<uuid>" or "workflow-<uuid>".
func NewID(kind string) string {
	return kind + "-" + uuid.NewString()
}

// ValidateID checks that an externally supplied id carries the expected kind
// prefix.
func ValidateID(id, kind string) error {
	if !strings.HasPrefix(id, kind+"-") {
		return fmt.Errorf("session id %q does not match kind %q", id, kind)
	}
	return nil
}

// StepResult is the outcome of one workflow step.
type StepResult struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RunRecord summarizes one completed run.
type RunRecord struct {
	FinalOutput     string        `json:"final_output,omitempty"`
	Status          string        `json:"status"`
	ToolServersUsed []string      `json:"tool_servers_used,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	StepResults     []StepResult  `json:"step_results,omitempty"`
}

// Store persists sessions and run records.
type Store interface {
	// Load retrieves a session by id. Returns ErrSessionNotFound when the
	// id has never been saved.
	Load(ctx context.Context, id string) (*Session, error)

	// Save writes the full session state, replacing any previous version.
	Save(ctx context.Context, s *Session) error

	// SaveResult appends a run record to a session's run history.
	SaveResult(ctx context.Context, id string, rec *RunRecord) error

	// List returns all stored session ids, sorted.
	List(ctx context.Context) ([]string, error)

	// Delete removes a session and its run records. Deleting an unknown id
	// is not an error.
	Delete(ctx context.Context, id string) error
}

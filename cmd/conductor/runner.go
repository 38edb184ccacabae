package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/conductor-framework/conductor/pkg/orchestrator"
)

// probeRunner stands in for a model-backed agent runner. It drives the full
// pipeline: dependencies get activated and the session is persisted, but
// instead of calling a model it reports the tool surface the component ended
// up with. Useful for verifying configuration and server connectivity.
type probeRunner struct{}

func (probeRunner) Run(_ context.Context, in orchestrator.RunnerInput, emit orchestrator.Emit) (*orchestrator.RunnerOutput, error) {
	caps := in.Tools.ListCapabilities(nil)

	var b strings.Builder
	fmt.Fprintf(&b, "%s received %q", in.Record.Name, in.Input)
	if len(in.History) > 0 {
		fmt.Fprintf(&b, " (%d prior turns)", len(in.History))
	}
	if len(caps) == 0 {
		b.WriteString("; no tools available")
	} else {
		b.WriteString("; tools:")
		for _, c := range caps {
			fmt.Fprintf(&b, " %s", c.Qualified())
		}
	}

	content := b.String()
	if emit != nil {
		emit(orchestrator.Event{
			Type:      orchestrator.EventContent,
			Content:   content,
			Timestamp: time.Now().UTC(),
		})
	}
	return &orchestrator.RunnerOutput{Content: content}, nil
}

var _ orchestrator.AgentRunner = probeRunner{}

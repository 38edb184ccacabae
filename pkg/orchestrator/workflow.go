package orchestrator

import (
	"context"
	"errors"

	"github.com/conductor-framework/conductor/pkg/config"
	"github.com/conductor-framework/conductor/pkg/session"
)

// runLinear executes workflow steps in declared order. Each step's output
// becomes the next step's input. A failing step aborts the sequence; outputs
// of the steps before it are kept in the returned turns, so they survive in
// the session history.
func (o *Orchestrator) runLinear(ctx context.Context, rr *resolvedRun, sid, input string, history []session.Turn, emit Emit) (*RunnerOutput, []session.StepResult, error) {
	out := &RunnerOutput{}
	var stepResults []session.StepResult
	current := input

	for i, stepRec := range rr.steps {
		started := newEvent(EventStepStarted)
		started.SessionID = sid
		started.StepIndex = i
		started.StepName = stepRec.Name
		send(emit, started)

		in := RunnerInput{
			Record:  stepRec,
			Input:   current,
			History: history,
			Tools:   o.gateway,
		}

		var stepOut *RunnerOutput
		var err error
		switch stepRec.Type {
		case config.TypeAgent:
			stepOut, err = o.agents.Run(ctx, in, emit)
		case config.TypeCustomWorkflow:
			if o.custom == nil {
				err = errors.New("no custom workflow runner configured")
			} else {
				stepOut, err = o.custom.RunWorkflow(ctx, in, emit)
			}
		}

		if err != nil {
			stepResults = append(stepResults, session.StepResult{
				Index: i,
				Name:  stepRec.Name,
				Error: err.Error(),
			})
			return out, stepResults, &ExecutionError{
				Component: rr.rec.Name,
				StepIndex: i,
				Err:       err,
			}
		}

		out.Turns = append(out.Turns, stepOut.Turns...)
		out.ToolCalls += stepOut.ToolCalls
		stepResults = append(stepResults, session.StepResult{
			Index:  i,
			Name:   stepRec.Name,
			Output: stepOut.Content,
		})

		// Intermediate step outputs become history turns; the last step's
		// output is the workflow's final answer.
		if i < len(rr.steps)-1 {
			out.Turns = append(out.Turns, session.Turn{
				Role:    session.RoleAssistant,
				Content: stepOut.Content,
				Name:    stepRec.Name,
			})
		}
		current = stepOut.Content
		out.Content = stepOut.Content

		completed := newEvent(EventStepCompleted)
		completed.SessionID = sid
		completed.StepIndex = i
		completed.StepName = stepRec.Name
		completed.Content = stepOut.Content
		send(emit, completed)
	}
	return out, stepResults, nil
}

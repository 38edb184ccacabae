package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/conductor-framework/conductor/pkg/config"
	"github.com/conductor-framework/conductor/pkg/gateway"
	"github.com/conductor-framework/conductor/pkg/orchestrator"
	"github.com/conductor-framework/conductor/pkg/session"
)

// RunCmd runs an agent or workflow through the full pipeline: dependency
// activation, session handling, and persistence.
type RunCmd struct {
	Kind  string `arg:"" help:"Component kind: agent, linear_workflow, or custom_workflow."`
	Name  string `arg:"" help:"Component name."`
	Input string `arg:"" optional:"" help:"Input text."`

	Session        string `help:"Continue an existing session by id."`
	Stream         bool   `help:"Stream events instead of waiting for the final output."`
	IncludeHistory *bool  `name:"include-history" negatable:"" help:"Override the component's history setting."`
}

func (c *RunCmd) Run(cli *CLI) error {
	kind, err := config.ParseComponentType(c.Kind)
	if err != nil {
		return err
	}

	mgr, err := cli.manager()
	if err != nil {
		return err
	}

	gw := gateway.New()
	defer gw.Close()

	store, err := session.NewFileStore(filepath.Join(config.DefaultUserRoot(), "sessions"))
	if err != nil {
		return err
	}

	orch := orchestrator.New(mgr, gw, store, probeRunner{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	req := orchestrator.RunRequest{
		Kind:           kind,
		Name:           c.Name,
		Input:          c.Input,
		SessionID:      c.Session,
		IncludeHistory: c.IncludeHistory,
	}

	if c.Stream {
		return c.runStream(ctx, orch, req)
	}

	res, err := orch.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("session: %s\n", res.SessionID)
	if len(res.ToolServersUsed) > 0 {
		fmt.Printf("servers: %v\n", res.ToolServersUsed)
	}
	fmt.Println(res.FinalOutput)
	return nil
}

func (c *RunCmd) runStream(ctx context.Context, orch *orchestrator.Orchestrator, req orchestrator.RunRequest) error {
	for ev := range orch.RunStream(ctx, req) {
		switch ev.Type {
		case orchestrator.EventSessionInfo:
			fmt.Printf("session: %s\n", ev.SessionID)
		case orchestrator.EventContent:
			fmt.Print(ev.Content)
		case orchestrator.EventToolCall:
			fmt.Printf("[tool call: %s]\n", ev.ToolName)
		case orchestrator.EventToolResult:
			fmt.Printf("[tool result: %s]\n", ev.ToolName)
		case orchestrator.EventStepStarted:
			fmt.Printf("[step %d: %s]\n", ev.StepIndex, ev.StepName)
		case orchestrator.EventStepCompleted:
			fmt.Printf("[step %d done]\n", ev.StepIndex)
		case orchestrator.EventComplete:
			fmt.Printf("\n%s\n", ev.Result.FinalOutput)
			fmt.Printf("status: %s\n", ev.Result.Status)
		case orchestrator.EventError:
			return ev.Err
		}
	}
	return nil
}

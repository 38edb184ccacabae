package main

import (
	"fmt"

	"github.com/conductor-framework/conductor/pkg/config"
)

// ListCmd lists components visible from the current directory, in shadowing
// order: a component defined closer to the invocation wins over one with the
// same name further out.
type ListCmd struct {
	Type string `arg:"" optional:"" help:"Limit to one component type."`
}

func (c *ListCmd) Run(cli *CLI) error {
	mgr, err := cli.manager()
	if err != nil {
		return err
	}

	types := config.ComponentTypes
	if c.Type != "" {
		t, err := config.ParseComponentType(c.Type)
		if err != nil {
			return err
		}
		types = []config.ComponentType{t}
	}

	for _, t := range types {
		records := mgr.ListConfigs(t)
		if len(records) == 0 {
			continue
		}
		fmt.Printf("%s:\n", t)
		for _, rec := range records {
			origin := string(rec.Provenance.ContextLevel)
			if rec.Provenance.ProjectName != "" {
				origin = fmt.Sprintf("%s %q", origin, rec.Provenance.ProjectName)
			}
			fmt.Printf("  %-30s %s\n", rec.Name, origin)
		}
	}

	for _, warn := range mgr.Warnings() {
		fmt.Printf("warning: %v\n", warn)
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/conductor-framework/conductor/pkg/config"
)

// ValidateCmd validates a single component, or every visible component when
// no arguments are given.
type ValidateCmd struct {
	Type string `arg:"" optional:"" help:"Component type."`
	Name string `arg:"" optional:"" help:"Component name."`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	mgr, err := cli.manager()
	if err != nil {
		return err
	}

	if c.Type == "" {
		warnings := mgr.ValidateAll()
		if len(warnings) == 0 {
			fmt.Println("all components valid")
			return nil
		}
		for _, w := range warnings {
			fmt.Printf("warning: %s\n", w)
		}
		return fmt.Errorf("%d validation problems", len(warnings))
	}

	t, err := config.ParseComponentType(c.Type)
	if err != nil {
		return err
	}
	if c.Name == "" {
		return fmt.Errorf("component name required when a type is given")
	}

	ok, fields := mgr.ValidateComponent(t, c.Name)
	if ok {
		fmt.Printf("%s %q is valid\n", t, c.Name)
		return nil
	}
	for _, f := range fields {
		fmt.Printf("  %s: %s\n", f.Field, f.Message)
	}
	return fmt.Errorf("%s %q is invalid", t, c.Name)
}

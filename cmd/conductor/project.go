package main

import "fmt"

// ProjectCmd manages member projects of the enclosing workspace.
type ProjectCmd struct {
	List   ProjectListCmd   `cmd:"" default:"1" help:"List workspace projects."`
	Create ProjectCreateCmd `cmd:"" help:"Scaffold a new project in the workspace."`
	Update ProjectUpdateCmd `cmd:"" help:"Update a project's description."`
	Delete ProjectDeleteCmd `cmd:"" help:"Remove a project from the workspace."`
}

type ProjectListCmd struct{}

func (c *ProjectListCmd) Run(cli *CLI) error {
	mgr, err := cli.manager()
	if err != nil {
		return err
	}
	projects, err := mgr.ListProjects()
	if err != nil {
		return err
	}
	for _, p := range projects {
		fmt.Println(p)
	}
	return nil
}

type ProjectCreateCmd struct {
	Name        string `arg:"" help:"Project name."`
	Description string `help:"Project description."`
}

func (c *ProjectCreateCmd) Run(cli *CLI) error {
	mgr, err := cli.manager()
	if err != nil {
		return err
	}
	if err := mgr.CreateProject(c.Name, c.Description); err != nil {
		return err
	}
	fmt.Printf("created project %q\n", c.Name)
	return nil
}

type ProjectUpdateCmd struct {
	Name        string `arg:"" help:"Project name."`
	Description string `help:"New project description."`
}

func (c *ProjectUpdateCmd) Run(cli *CLI) error {
	mgr, err := cli.manager()
	if err != nil {
		return err
	}
	if err := mgr.UpdateProject(c.Name, c.Description); err != nil {
		return err
	}
	fmt.Printf("updated project %q\n", c.Name)
	return nil
}

type ProjectDeleteCmd struct {
	Name string `arg:"" help:"Project name."`
}

func (c *ProjectDeleteCmd) Run(cli *CLI) error {
	mgr, err := cli.manager()
	if err != nil {
		return err
	}
	if err := mgr.DeleteProject(c.Name); err != nil {
		return err
	}
	fmt.Printf("deleted project %q\n", c.Name)
	return nil
}

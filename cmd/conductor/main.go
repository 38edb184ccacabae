// Command conductor manages hierarchical component configuration and runs
// agents and workflows against just-in-time activated tool servers.
//
// Usage:
//
//	conductor list [type]
//	conductor validate [type name]
//	conductor run agent assistant "summarize the backlog"
//	conductor schema
package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/conductor-framework/conductor/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Run      RunCmd      `cmd:"" help:"Run an agent or workflow."`
	List     ListCmd     `cmd:"" help:"List components visible from the current directory."`
	Validate ValidateCmd `cmd:"" help:"Validate components."`
	Project  ProjectCmd  `cmd:"" help:"Manage workspace member projects."`
	Schema   SchemaCmd   `cmd:"" help:"Generate JSON Schema for component definitions."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Dir      string `short:"C" help:"Directory to resolve configuration from." type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile  string `help:"Log file path (empty = stderr)."`
}

func (cli *CLI) manager() (*config.Manager, error) {
	dir := cli.Dir
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return nil, err
		}
	}
	return config.NewManager(dir)
}

func main() {
	// A .env next to the invocation is optional.
	_ = godotenv.Load()

	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("conductor"),
		kong.Description("Hierarchical agent configuration and just-in-time tool orchestration."),
		kong.UsageOnError(),
	)

	if err := setupLogging(cli.LogLevel, cli.LogFile); err != nil {
		ctx.FatalIfErrorf(err)
	}
	ctx.FatalIfErrorf(ctx.Run(cli))
}

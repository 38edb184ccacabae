package main

import (
	"fmt"
	"runtime/debug"

	"github.com/conductor-framework/conductor"
)

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := conductor.Version
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("conductor version %s\n", version)
	return nil
}

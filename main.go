package main

import (
	"context"
	"fmt"
	"os"

	"lamp/commands"
)

// Populated at build time via -ldflags.
var (
	version = "dev"
	commit  = "HEAD"
)

func build() string {
	short := commit
	if len(commit) > 7 {
		short = commit[:7]
	}
	return fmt.Sprintf("%s (%s)", version, short)
}

func main() {
	app := commands.NewApp(&commands.Controller{}, build())
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "lamp: %v\n", err)
		os.Exit(1)
	}
}

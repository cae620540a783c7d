package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tobert/reactmon/internal/cli"
	cliframework "github.com/urfave/cli/v3"
)

const version = "0.1.0-dev"

func main() {
	cli.Version = version

	app := &cliframework.Command{
		Name:    "reactmon",
		Usage:   "Latency monitor for react-instrumented applications",
		Version: version,
		Commands: []*cliframework.Command{
			cli.ServeCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// Command rcrtd runs the RCRT breadcrumb store: the HTTP API, the Context
// Assembly Engine, and the hygiene reaper, all driven from one process and
// one configuration file.
//
// Usage:
//
//	rcrtd serve --config config.yaml
//	rcrtd validate --config config.yaml
//	rcrtd migrate --config config.yaml
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve    ServeCmd    `cmd:"" help:"Run the HTTP API, assembly engine, and hygiene reaper."`
	Validate ValidateCmd `cmd:"" help:"Load and validate a configuration file without starting anything."`
	Migrate  MigrateCmd  `cmd:"" help:"Run the breadcrumb store's schema migrations and exit."`

	Config string `short:"c" help:"Path to config file." type:"path" default:"config.yaml"`
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("rcrtd"),
		kong.Description("RCRT — the breadcrumb store and context assembly engine"),
		kong.UsageOnError(),
	)

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

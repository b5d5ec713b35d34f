package main

import (
	"fmt"

	"github.com/rcrtd/rcrt/pkg/config"
)

// ValidateCmd loads a configuration file and reports whether it is well
// formed, without starting any component. Useful in CI and as a pre-deploy
// gate.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("rcrtd validate: %w", err)
	}
	fmt.Printf("config OK: database=%s tenant=%q server_port=%d\n", cfg.Database.Driver, cfg.Tenant, cfg.Server.Port)
	return nil
}

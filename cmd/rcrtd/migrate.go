package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rcrtd/rcrt/pkg/config"
	"github.com/rcrtd/rcrt/pkg/transform"
	"github.com/rcrtd/rcrt/pkg/store"
)

// MigrateCmd runs the breadcrumb store's schema migrations against the
// configured database and exits. Idempotent; safe to run on every
// deployment.
type MigrateCmd struct{}

func (c *MigrateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("rcrtd migrate: load config: %w", err)
	}

	db, err := sql.Open(cfg.Database.DriverName(), cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("rcrtd migrate: open database: %w", err)
	}
	defer db.Close()

	st := store.New(db, &cfg.Database, transform.New(nil, nil))
	if err := st.Migrate(context.Background()); err != nil {
		return fmt.Errorf("rcrtd migrate: %w", err)
	}
	fmt.Println("migrations applied")
	return nil
}

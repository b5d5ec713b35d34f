package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rcrtd/rcrt/pkg/assembly"
	"github.com/rcrtd/rcrt/pkg/auth"
	"github.com/rcrtd/rcrt/pkg/config"
	"github.com/rcrtd/rcrt/pkg/embedders"
	"github.com/rcrtd/rcrt/pkg/eventbus"
	"github.com/rcrtd/rcrt/pkg/graph"
	"github.com/rcrtd/rcrt/pkg/httpapi"
	"github.com/rcrtd/rcrt/pkg/hygiene"
	"github.com/rcrtd/rcrt/pkg/logger"
	"github.com/rcrtd/rcrt/pkg/observability"
	"github.com/rcrtd/rcrt/pkg/ratelimit"
	"github.com/rcrtd/rcrt/pkg/store"
	"github.com/rcrtd/rcrt/pkg/transform"
	"github.com/rcrtd/rcrt/pkg/vectorstore"
)

// ServeCmd starts the HTTP API alongside the Context Assembly Engine and
// the hygiene reaper, all sharing one breadcrumb store and event bus.
type ServeCmd struct {
	Watch bool `help:"Watch the config file for changes and hot-reload logger settings."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var cfg *config.Config
	var err error
	if c.Watch {
		loader, loaderErr := config.NewLoader(config.LoaderOptions{
			Type:  config.SourceFile,
			Path:  cli.Config,
			Watch: true,
			OnChange: func(next *config.Config) error {
				level, err := logger.ParseLevel(next.Logger.Level)
				if err != nil {
					return err
				}
				logger.Init(level, os.Stderr, next.Logger.Format)
				logger.GetLogger().Info("config reloaded", "path", cli.Config)
				return nil
			},
		})
		if loaderErr != nil {
			return fmt.Errorf("rcrtd serve: config watcher: %w", loaderErr)
		}
		cfg, err = loader.Load()
	} else {
		cfg, err = config.Load(cli.Config)
	}
	if err != nil {
		return fmt.Errorf("rcrtd serve: load config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Logger.Level)
	if err != nil {
		return fmt.Errorf("rcrtd serve: %w", err)
	}
	logger.Init(level, os.Stderr, cfg.Logger.Format)
	log := logger.GetLogger()

	obs, err := observability.NewManager(ctx, &cfg.Observability)
	if err != nil {
		return fmt.Errorf("rcrtd serve: observability: %w", err)
	}
	defer obs.Shutdown(context.Background())

	db, err := sql.Open(cfg.Database.DriverName(), cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("rcrtd serve: open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdle)

	embedderRegistry := embedders.NewEmbedderRegistry()
	var defaultEmbedder embedders.EmbedderProvider
	for name, ec := range cfg.Embedders {
		provider, err := embedderRegistry.CreateEmbedderFromConfig(name, ec)
		if err != nil {
			return fmt.Errorf("rcrtd serve: embedder %q: %w", name, err)
		}
		if name == cfg.DefaultEmbedder {
			defaultEmbedder = provider
		}
	}

	vectorRegistry := vectorstore.NewVectorStoreRegistry()
	var defaultVectorStore vectorstore.VectorStore
	for name, vc := range cfg.VectorStores {
		vs, err := vectorRegistry.CreateStoreFromConfig(name, vc)
		if err != nil {
			return fmt.Errorf("rcrtd serve: vector store %q: %w", name, err)
		}
		if name == cfg.DefaultVectorStore {
			defaultVectorStore = vs
		}
	}

	ets := transform.New(defaultEmbedder, log)
	bus := eventbus.New(eventbus.WithLogger(log), eventbus.WithMetrics(obs.Metrics()))
	edges := graph.NewStore()

	storeOpts := []store.Option{
		store.WithEventBus(bus),
		store.WithEdgeStore(edges),
		store.WithLogger(log),
		store.WithMetrics(obs.Metrics()),
	}
	if defaultVectorStore != nil {
		storeOpts = append(storeOpts, store.WithVectorStore(defaultVectorStore))
	}
	st := store.New(db, &cfg.Database, ets, storeOpts...)
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("rcrtd serve: migrate: %w", err)
	}

	cae, err := assembly.New(st, ets, edges, bus, cfg.Assembly,
		assembly.WithLogger(log), assembly.WithMetrics(obs.Metrics()))
	if err != nil {
		return fmt.Errorf("rcrtd serve: assembly engine: %w", err)
	}
	go func() {
		if err := cae.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("assembly engine stopped", "error", err)
		}
	}()

	reaper := hygiene.New(st, cfg.Hygiene, hygiene.WithLogger(log), hygiene.WithMetrics(obs.Metrics()))
	go func() {
		if err := reaper.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("hygiene reaper stopped", "error", err)
		}
	}()

	var validator *auth.Validator
	if cfg.Server.Auth.IsEnabled() {
		validator, err = auth.NewValidator(ctx, cfg.Server.Auth)
		if err != nil {
			return fmt.Errorf("rcrtd serve: auth validator: %w", err)
		}
	}

	var limiter *ratelimit.Limiter
	if cfg.Server.RateLimit != nil {
		limiter = ratelimit.New(*cfg.Server.RateLimit)
	}

	startedAt := time.Now()
	if _, _, err := st.Create(ctx, cfg.Tenant, "rcrtd", store.CreateInput{
		Schema: "system.startup.v1",
		Title:  "rcrtd started",
		Tags:   []string{"system:startup"},
		Context: map[string]interface{}{
			"started_at": startedAt.UTC().Format(time.RFC3339),
		},
	}, ""); err != nil {
		log.Warn("failed to emit startup breadcrumb", "error", err)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Store:       st,
		Bus:         bus,
		Validator:   validator,
		RateLimiter: limiter,
		Obs:         obs,
		Cfg:         cfg.Server,
		StartedAt:   startedAt,
		Log:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("rcrtd listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		return fmt.Errorf("rcrtd serve: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	return httpSrv.Shutdown(shutdownCtx)
}

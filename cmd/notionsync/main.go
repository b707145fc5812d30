// notionsync mirrors a Notion database into a Postgres table, evolving the
// destination schema to match the source's property definitions.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/snitinshk/notion-supabase-sync/internal/server"
	"github.com/snitinshk/notion-supabase-sync/pkg/checkpoint"
	"github.com/snitinshk/notion-supabase-sync/pkg/config"
	"github.com/snitinshk/notion-supabase-sync/pkg/logger"
	"github.com/snitinshk/notion-supabase-sync/pkg/notion"
	"github.com/snitinshk/notion-supabase-sync/pkg/postgres"
	"github.com/snitinshk/notion-supabase-sync/pkg/retry"
	"github.com/snitinshk/notion-supabase-sync/pkg/syncer"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:     "notionsync",
		Short:   "Incrementally mirror a Notion database into Postgres",
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	var (
		forceFullSync bool
		dryRun        bool
		maxRecords    int
	)
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Engine.Sync(cmd.Context(), syncer.Options{
				ForceFullSync: forceFullSync,
				DryRun:        dryRun,
				MaxRecords:    maxRecords,
			})
			if result != nil {
				out, _ := json.MarshalIndent(result, "", "  ")
				fmt.Println(string(out))
			}
			return err
		},
	}
	syncCmd.Flags().BoolVar(&forceFullSync, "full", false, "ignore the stored checkpoint and sync everything")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "fetch and transform without writing")
	syncCmd.Flags().IntVar(&maxRecords, "max-records", 0, "hard cap on fetched records (0 = unlimited)")
	root.AddCommand(syncCmd)

	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /sync, GET /healthz, and GET /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			if addr == "" {
				addr = app.Config.Server.Addr
			}
			srv := server.New(app.Engine, app.Postgres, addr, logger.Get())
			return srv.ListenAndServe()
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config server.addr)")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

// app bundles the wired components of one process.
type app struct {
	Config   *config.Config
	Engine   *syncer.Engine
	Postgres *postgres.Client
}

func (a *app) Close() {
	a.Postgres.Close()
}

// buildApp loads configuration, fails fast on missing credentials, and
// wires the engine.
func buildApp(configPath string) (*app, error) {
	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.FromEnv()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
		Development: cfg.Log.Development,
	}); err != nil {
		return nil, err
	}
	log := logger.Get()

	policy := retry.NewPolicy(cfg.Sync.RetryAttempts, cfg.Sync.RetryDelay, log)

	source := notion.NewClient(cfg.Notion, policy, log)

	ctx := context.Background()
	dest, err := postgres.NewClient(ctx, cfg.Postgres, policy, log)
	if err != nil {
		return nil, err
	}

	store := checkpoint.NewStore(dest.Pool(), cfg.Postgres.CheckpointTable, log)
	if err := store.EnsureTable(ctx); err != nil {
		dest.Close()
		return nil, err
	}

	engine := syncer.New(source, dest, store, cfg.Notion.DatabaseID, cfg.Postgres.Table, log)

	return &app{Config: cfg, Engine: engine, Postgres: dest}, nil
}

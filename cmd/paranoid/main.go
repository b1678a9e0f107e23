// Package main is the paranoid command line tool: it runs the soft-delete
// demo scenario and inspects or modifies records in a configured backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"paranoid/internal/app"
	"paranoid/internal/config"
	"paranoid/internal/infrastructure/storage/postgres"
	"paranoid/internal/schema"
	"paranoid/pkg/logger"
)

// runtime holds what every subcommand needs.
type runtime struct {
	cfg  config.Config
	app  *app.App
	pool *postgres.Pool
}

func (r *runtime) close(ctx context.Context) {
	if r.pool != nil {
		postgres.LogPoolStats(ctx, r.pool.Pool)
		r.pool.Close()
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "paranoid",
		Short:         "Soft-delete data access layer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file")

	// setup connects to the configured backend lazily, per command.
	setup := func(cmd *cobra.Command) (*runtime, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, err
		}

		log, err := logger.New(cfg.Logger())
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		logger.SetDefault(log)

		ctx := cmd.Context()
		reg := schema.Registry()
		rt := &runtime{cfg: cfg}

		switch cfg.Storage {
		case config.StoragePostgres:
			pool, err := postgres.NewPool(ctx, cfg.Pool())
			if err != nil {
				return nil, err
			}
			rt.pool = pool
			rt.app = app.NewPostgres(postgres.NewTxManager(pool), reg)
			logger.Info(ctx, "postgres backend ready", "app", cfg.AppName)
		default:
			rt.app, _ = app.NewMemory(reg)
			logger.Info(ctx, "memory backend ready", "app", cfg.AppName)
		}
		return rt, nil
	}

	root.AddCommand(
		newTypesCmd(),
		newInitSchemaCmd(setup),
		newDemoCmd(setup),
		newListCmd(setup),
		newCountCmd(setup),
		newDeleteCmd(setup),
		newRestoreCmd(setup),
	)
	return root
}

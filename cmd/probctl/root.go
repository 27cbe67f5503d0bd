package main

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/mmiddlezong/problem-database/internal/platform/config"
	"github.com/mmiddlezong/problem-database/internal/platform/database"
	"github.com/mmiddlezong/problem-database/internal/platform/logger"
)

// env is built once per invocation in PersistentPreRunE.
type env struct {
	cfg *config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:          "probctl",
		Short:        "Operate the problem database: schema migrations and problem seeding",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := config.Load()
			log, err := logger.New(cfg.AppEnv, cfg.LogFile)
			if err != nil {
				return err
			}
			e.cfg, e.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				e.log.Sync()
			}
		},
	}
	root.AddCommand(newMigrateCmd(e), newSeedCmd(e))
	return root
}

func (e *env) openDB(ctx context.Context) (*sql.DB, error) {
	return database.Connect(ctx, e.cfg.DBConnStr)
}

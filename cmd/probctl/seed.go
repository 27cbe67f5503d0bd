package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmiddlezong/problem-database/internal/app/seed"
	"github.com/mmiddlezong/problem-database/internal/app/service"
	"github.com/mmiddlezong/problem-database/internal/domain/repository"
	"github.com/mmiddlezong/problem-database/internal/platform/content"
	"github.com/mmiddlezong/problem-database/internal/platform/metrics"
)

func newSeedCmd(e *env) *cobra.Command {
	var (
		file  string
		reset bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load problems from a YAML seed file",
		Example: `  probctl seed --file seeds/problems.yaml
  probctl seed --file seeds/problems.yaml --reset`,
		RunE: func(cmd *cobra.Command, args []string) error {
			problems, err := seed.Load(file)
			if err != nil {
				return err
			}

			db, err := e.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			svc := service.NewProblemService(
				repository.NewPgProblemRepository(db),
				repository.NewSQLTransactor(db),
				content.NewClient(e.cfg.ContentAPIBaseURL, e.cfg.ContentAPISecret, e.cfg.ContentAPITimeout),
				metrics.New(),
				e.log,
			)
			n, err := svc.ImportProblems(cmd.Context(), problems, reset)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d problems\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "seeds/problems.yaml", "path to the YAML seed file")
	cmd.Flags().BoolVar(&reset, "reset", false, "delete all existing problems before seeding")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Andi3172/fullstack-tic-project/pkg/catalog/seed"
	"github.com/Andi3172/fullstack-tic-project/pkg/cli"
	"github.com/Andi3172/fullstack-tic-project/pkg/config"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
)

func runMigrations(ctx context.Context, cfg *config.Config, log logger.Logger, direction string, steps int) error {
	if cfg.Orders.Store != config.OrderStorePostgres {
		return errors.New("migrations apply to the postgres order store; set orders.store=postgres")
	}
	s := &stores{}
	if err := openPostgres(cfg, log, s); err != nil {
		return err
	}
	defer func() { _ = s.Close(log) }()
	return s.runMigrations(ctx, cfg, log, direction, steps)
}

// checkDependencies pings every configured store concurrently.
func checkDependencies(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	s, err := openStores(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close(log) }()

	if err := s.ping(ctx); err != nil {
		return fmt.Errorf("dependency check failed: %w", err)
	}
	log.Info("all dependencies reachable")
	return nil
}

func newSeedCommand(load cli.LoadFunc) *cobra.Command {
	var categories []string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import the parts dataset into the products collection",
		Long: "Fetches each category of the parts dataset and inserts records whose id\n" +
			"is not yet present. Existing products are never overwritten.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load(cmd.Flags())
			if err != nil {
				return err
			}

			s := &stores{}
			if err := openMongo(cfg, log, s); err != nil {
				return err
			}
			defer func() { _ = s.Close(log) }()
			if err := s.ensureIndexes(cmd.Context()); err != nil {
				return err
			}

			report, err := newImporter(cfg, s, log, categories).Run(cmd.Context())
			if err != nil {
				return err
			}
			printSeedReport(cmd, report)
			if failed := report.Failed(); len(failed) > 0 {
				return fmt.Errorf("seed finished with failed categories: %v", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&categories, "category", nil, "limit the import to these categories")
	return cmd
}

func printSeedReport(cmd *cobra.Command, report *seed.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-22s %8s %8s %8s %8s\n", "CATEGORY", "FETCHED", "NEW", "EXISTING", "UNNAMED")
	for _, c := range report.Categories {
		if c.Error != "" {
			fmt.Fprintf(out, "%-22s failed: %s\n", c.Category, c.Error)
			continue
		}
		fmt.Fprintf(out, "%-22s %8d %8d %8d %8d\n", c.Category, c.Fetched, c.Inserted, c.Existing, c.Unnamed)
	}
	fmt.Fprintf(out, "inserted %d products\n", report.Inserted())
}

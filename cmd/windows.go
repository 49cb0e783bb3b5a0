package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/example/ration-slots/internal/catalog"
	"github.com/example/ration-slots/internal/config"
	"github.com/example/ration-slots/internal/db"
	"github.com/example/ration-slots/internal/migrate"
	"github.com/spf13/cobra"
)

func newWindowsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Manage the slot window catalog",
	}
	cmd.AddCommand(newWindowsSeedCmd())
	cmd.AddCommand(newWindowsListCmd())
	return cmd
}

func openCatalogDB(ctx context.Context) (*db.DB, config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, config.Config{}, err
	}
	if cfg.DatabaseURL == "" {
		return nil, config.Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, config.Config{}, err
	}
	if err := migrate.Up(ctx, d); err != nil {
		d.Close()
		return nil, config.Config{}, err
	}
	return d, cfg, nil
}

func newWindowsSeedCmd() *cobra.Command {
	var labels string

	c := &cobra.Command{
		Use:   "seed",
		Short: "Insert slot windows (defaults to the standard distribution windows)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, _, err := openCatalogDB(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			ls := catalog.DefaultLabels
			if labels != "" {
				ls = nil
				for _, l := range strings.Split(labels, ",") {
					l = strings.TrimSpace(l)
					if l != "" {
						ls = append(ls, l)
					}
				}
			}

			if err := catalog.Seed(ctx, d, ls); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "seeded %d slot windows\n", len(ls))
			return nil
		},
	}

	c.Flags().StringVar(&labels, "labels", "", "comma-separated window labels (override defaults)")
	return c
}

func newWindowsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List slot windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, cfg, err := openCatalogDB(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			windows, err := catalog.NewPgCatalog(d, cfg.StoreTimeout).ListWindows(ctx)
			if err != nil {
				return err
			}
			for _, w := range windows {
				fmt.Fprintf(os.Stdout, "%-38s %2d  %s\n", w.ID, w.Position, w.Label)
			}
			return nil
		},
	}
}

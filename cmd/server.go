package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/ration-slots/internal/auth"
	"github.com/example/ration-slots/internal/booking"
	"github.com/example/ration-slots/internal/catalog"
	"github.com/example/ration-slots/internal/config"
	"github.com/example/ration-slots/internal/db"
	"github.com/example/ration-slots/internal/metrics"
	"github.com/example/ration-slots/internal/migrate"
	"github.com/example/ration-slots/internal/web"
	"github.com/spf13/cobra"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the reservation API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			slog.SetDefault(logger)
			metrics.Register()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			var (
				store      booking.Store
				cat        booking.Catalog
				households auth.HouseholdStore
			)

			if cfg.DatabaseURL != "" {
				d, err := db.Open(ctx, cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer d.Close()

				if err := d.Ping(ctx); err != nil {
					return fmt.Errorf("db ping: %w", err)
				}

				if migrateUp {
					if err := migrate.Up(ctx, d); err != nil {
						return err
					}
				}

				store = booking.NewPgStore(d, cfg.StoreTimeout)
				cat = catalog.NewPgCatalog(d, cfg.StoreTimeout)
				households = auth.NewPgHouseholds(d)
			} else {
				// no database configured: run entirely in memory (dev mode)
				logger.Warn("DATABASE_URL not set, using in-memory stores")
				store = booking.NewMemoryStore()
				cat = catalog.NewMemory(catalog.DefaultLabels)
				households = auth.NewMemHouseholds()
			}

			authStore := auth.NewStore(households, cfg.CookieHashKey, cfg.CookieBlockKey)
			engine := &booking.Engine{Store: store, Catalog: cat, Logger: logger}

			ws := &web.Server{
				Auth:    authStore,
				Engine:  engine,
				Catalog: cat,
				Logger:  logger,
				BaseURL: cfg.BaseURL,
			}
			return web.Start(ctx, cfg.ListenAddr, ws.Routes())
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/example/ration-slots/internal/auth"
	"github.com/example/ration-slots/internal/config"
	"github.com/example/ration-slots/internal/db"
	"github.com/example/ration-slots/internal/migrate"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newHouseholdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "household",
		Short: "Manage registered households",
	}
	cmd.AddCommand(newHouseholdAddCmd())
	return cmd
}

func newHouseholdAddCmd() *cobra.Command {
	var (
		username   string
		password   string
		name       string
		rationCard string
		admin      bool
	)

	c := &cobra.Command{
		Use:   "add",
		Short: "Register a household (use --admin for an administrator account)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}

			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := migrate.Up(ctx, d); err != nil {
				return err
			}

			role := auth.RoleMember
			if admin {
				role = auth.RoleAdministrator
			}

			store := auth.NewStore(auth.NewPgHouseholds(d), cfg.CookieHashKey, cfg.CookieBlockKey)
			h, err := store.Register(ctx, auth.Household{
				ID:           uuid.NewString(),
				Username:     username,
				Name:         name,
				RationCardID: rationCard,
				Role:         role,
			}, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "created household %q id=%s role=%s\n", h.Username, h.ID, h.Role)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "login username")
	c.Flags().StringVar(&password, "password", "", "login password")
	c.Flags().StringVar(&name, "name", "", "display name")
	c.Flags().StringVar(&rationCard, "ration-card", "", "ration card identifier")
	c.Flags().BoolVar(&admin, "admin", false, "grant the administrator role")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("password")
	_ = c.MarkFlagRequired("name")
	return c
}

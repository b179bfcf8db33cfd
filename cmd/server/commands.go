package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hireflow/internal/auth"
	"github.com/kiranshivaraju/hireflow/internal/config"
	"github.com/kiranshivaraju/hireflow/internal/store"
	"github.com/kiranshivaraju/hireflow/pkg/models"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Store.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate requires STORE_DRIVER=%s", config.DriverPostgres)
			}
			if dir == "" {
				dir = cfg.Database.MigrationsDir
			}
			if err := store.RunMigrations(cfg.Database.URL, dir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Migrations directory (default MIGRATIONS_DIR or ./migrations)")
	return cmd
}

func createAPIKeyCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create-api-key",
		Short: "Create an admin API key and print it once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Store.Driver != config.DriverPostgres {
				return fmt.Errorf("create-api-key requires STORE_DRIVER=%s", config.DriverPostgres)
			}

			st, closeStore, err := openStore(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer closeStore()

			raw, key, err := auth.GenerateAPIKey(name)
			if err != nil {
				return err
			}
			if err := st.CreateAPIKey(cmd.Context(), key); err != nil {
				return fmt.Errorf("store api key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:  %s\n", key.ID)
			fmt.Fprintf(out, "key: %s\n", raw)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Unique key name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func issueTokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Sign a bearer token for a principal",
		Long: `Signs a JWT with JWT_SECRET for the given subject and role. Identity is
owned by the surrounding platform; this command exists for local runs and
operator access.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			id, err := uuid.Parse(subject)
			if err != nil {
				return fmt.Errorf("--subject must be a UUID: %w", err)
			}
			r := models.Role(role)
			if !r.Valid() {
				return fmt.Errorf("--role must be one of seeker, employer, admin; got %q", role)
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}

			token, err := auth.NewJWTResolver(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer).
				Issue(models.Principal{ID: id, Role: r}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Principal id (UUID)")
	cmd.Flags().StringVar(&role, "role", "", "Principal role (seeker, employer, admin)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default JWT_TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

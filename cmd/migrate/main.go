package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nisHanRam/Placify-Backend/internal/app/migrate"
	"github.com/nisHanRam/Placify-Backend/internal/app/storage"
	"github.com/nisHanRam/Placify-Backend/pkg/config"
	"github.com/nisHanRam/Placify-Backend/pkg/logger"
)

var (
	configFile string
	timeout    time.Duration
	target     int64
	assumeYes  bool
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Placify database schema",
	Long: `Migrate applies, inspects and rolls back the schema of the configured
SQL backend (STORE_BACKEND=postgres or sqlite).

Example:
  migrate up
  migrate status
  migrate down --target 1
  migrate down --yes`,
	SilenceUsage: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), func(ctx context.Context, r migrate.Runner) error {
			return r.Ensure(ctx)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), func(ctx context.Context, r migrate.Runner) error {
			if err := r.Status(ctx); err != nil {
				return err
			}
			version, err := r.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "current version: %d\n", version)
			return nil
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration, or down to --target",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !assumeYes {
			if err := confirmDown(cmd.InOrStdin(), cmd.ErrOrStderr(), stdinIsTerminal(), target); err != nil {
				return err
			}
		}
		return withRunner(cmd.Context(), func(ctx context.Context, r migrate.Runner) error {
			return r.Down(ctx, target)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (env vars take precedence)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "command timeout")
	downCmd.Flags().Int64Var(&target, "target", 0, "target version (0 = roll back one step)")
	downCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(upCmd, statusCmd, downCmd)
}

func withRunner(parent context.Context, fn func(context.Context, migrate.Runner) error) error {
	if path := strings.TrimSpace(configFile); path != "" {
		if err := config.ReadFile(path); err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	cfg := config.LoadAPIConfig()
	log := logger.New("migrate", logger.ParseLevel(cfg.LogLevel))

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	backend, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.StoreBackend, err)
	}
	defer backend.Close()

	runner, err := backend.Migrations()
	if err != nil {
		return err
	}
	if err := runner.Ping(ctx); err != nil {
		return err
	}
	if err := fn(ctx, runner); err != nil {
		return err
	}
	log.Info("migration command completed", "backend", backend.Name)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package cli implements billctl, the operator tool for the billpay ledger.
package cli

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/quickbills/billpay-api/internal/config"
	"github.com/quickbills/billpay-api/internal/pkg/database"
	"github.com/quickbills/billpay-api/internal/pkg/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "billctl",
	Short: "Operate the billpay ledger",
	Long: `billctl runs maintenance tasks against the billpay database:
schema migrations, the reconciliation sweep, and operator accounts.
Connection settings come from the same environment as the API server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if driver, _ := cmd.Flags().GetString("driver"); driver != "" {
			cfg.DBDriver = driver
		}
		if dsn, _ := cmd.Flags().GetString("database-url"); dsn != "" {
			cfg.DatabaseURL = dsn
		}
		return logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})
	},
}

func init() {
	rootCmd.PersistentFlags().String("driver", "", "Database driver (postgres or sqlite), overrides DB_DRIVER")
	rootCmd.PersistentFlags().String("database-url", "", "Database DSN, overrides DATABASE_URL")
}

// Execute runs the command tree.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func openDB() (*sqlx.DB, error) {
	db, err := database.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.DBDriver, err)
	}
	return db, nil
}

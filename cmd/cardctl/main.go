// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tapinfi/cardhub/internal/config"
	"github.com/tapinfi/cardhub/internal/core"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "cardctl",
	Short: "Operator tasks for the card service",
	Long: `cardctl runs one-off maintenance against the card service's
database and key material. It reads the same config file and
environment variables as the API server.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")

	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(themeCmd)
	rootCmd.AddCommand(pruneSessionsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openDatabase loads config and connects to Postgres. The caller closes
// the returned database.
func openDatabase(ctx context.Context) (*config.Config, *core.Database, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	return cfg, db, nil
}

func closeDatabase(db *core.Database) {
	if err := db.Close(); err != nil {
		slog.Warn("database close error", "error", err)
	}
}

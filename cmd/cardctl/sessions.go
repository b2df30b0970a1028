// AngelaMos | 2026
// sessions.go

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tapinfi/cardhub/internal/auth"
)

var pruneGrace time.Duration

var pruneSessionsCmd = &cobra.Command{
	Use:   "prune-sessions",
	Short: "Delete refresh tokens that expired more than --grace ago",
	RunE:  runPruneSessions,
}

func init() {
	pruneSessionsCmd.Flags().DurationVar(&pruneGrace, "grace", 24*time.Hour, "keep tokens that expired within this window")
}

func runPruneSessions(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	_, db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	svc := auth.NewService(auth.Deps{Repo: auth.NewRepository(db.DB)})

	n, err := svc.PruneExpiredSessions(ctx, time.Now().Add(-pruneGrace))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "pruned %d expired sessions\n", n)
	return nil
}

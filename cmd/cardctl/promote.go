// AngelaMos | 2026
// promote.go

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tapinfi/cardhub/internal/account"
	"github.com/tapinfi/cardhub/internal/core"
)

var (
	promoteEmail  string
	promoteRevoke bool
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Grant or revoke admin rights for an account",
	RunE:  runPromote,
}

func init() {
	promoteCmd.Flags().StringVar(&promoteEmail, "email", "", "account email (required)")
	promoteCmd.Flags().BoolVar(&promoteRevoke, "revoke", false, "remove admin rights instead of granting them")
	_ = promoteCmd.MarkFlagRequired("email")
}

func runPromote(cmd *cobra.Command, _ []string) error {
	email := strings.TrimSpace(promoteEmail)
	if email == "" {
		return errors.New("--email must not be empty")
	}

	ctx := cmd.Context()
	_, db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	accounts := account.NewService(account.NewRepository(db.DB))
	if err := accounts.Promote(ctx, email, !promoteRevoke); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("no account with email %q", email)
		}
		return err
	}

	verb := "granted"
	if promoteRevoke {
		verb = "revoked"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "admin rights %s for %s\n", verb, email)
	return nil
}

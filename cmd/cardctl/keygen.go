// AngelaMos | 2026
// keygen.go

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tapinfi/cardhub/internal/auth"
	"github.com/tapinfi/cardhub/internal/config"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the ES256 key pair used to sign access tokens",
	Long: `Writes a fresh P-256 key pair to the paths configured under jwt.
Existing files are overwritten, which signs every current session out.`,
	RunE: runKeygen,
}

func runKeygen(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := auth.GenerateKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath)
	return nil
}

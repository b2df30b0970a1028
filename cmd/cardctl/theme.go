// AngelaMos | 2026
// theme.go

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tapinfi/cardhub/internal/core"
	"github.com/tapinfi/cardhub/internal/theme"
)

var (
	themeID       string
	themeName     string
	themeImageURL string
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Manage the theme catalog",
}

var themeAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a theme to the catalog",
	Long: `Registers a theme that admins can then assign to users. The id must
name one of the built-in renderers:

  ` + strings.Join(kindNames(), "\n  "),
	RunE: runThemeAdd,
}

func init() {
	themeAddCmd.Flags().StringVar(&themeID, "id", "", "theme id (required)")
	themeAddCmd.Flags().StringVar(&themeName, "name", "", "display name (required)")
	themeAddCmd.Flags().StringVar(&themeImageURL, "image-url", "", "preview image URL")
	_ = themeAddCmd.MarkFlagRequired("id")
	_ = themeAddCmd.MarkFlagRequired("name")

	themeCmd.AddCommand(themeAddCmd)
}

func kindNames() []string {
	kinds := theme.Kinds()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}
	return names
}

func runThemeAdd(cmd *cobra.Command, _ []string) error {
	req := theme.CreateThemeRequest{
		ID:       themeID,
		Name:     themeName,
		ImageURL: themeImageURL,
	}
	req.Trim()

	if err := core.NewValidator().Struct(req); err != nil {
		return fmt.Errorf("invalid theme: %v", core.FieldErrors(err))
	}

	ctx := cmd.Context()
	_, db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	svc := theme.NewService(theme.NewRepository(db.DB), nil, nil)

	t, err := svc.Create(ctx, req)
	if err != nil {
		if appErr, ok := core.AsAppError(err); ok {
			if errors.Is(err, core.ErrDuplicateKey) {
				return fmt.Errorf("theme %q already exists", req.ID)
			}
			return fmt.Errorf("%s: %v", appErr.Message, appErr.Fields)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "added theme %s (%s)\n", t.ID, t.Name)
	return nil
}

// AngelaMos | 2026
// repository.go

package theme

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tapinfi/cardhub/internal/core"
)

type Repository interface {
	ListAvailable(ctx context.Context) ([]Theme, error)
	GetAvailable(ctx context.Context, id string) (*Theme, error)
	CreateAvailable(ctx context.Context, t *Theme) error
	DeleteAvailable(ctx context.Context, id string) error
	CountAvailable(ctx context.Context) (int, error)
	ListForUser(ctx context.Context, userID string) ([]AssignedTheme, error)
	Assign(ctx context.Context, userID, themeID string) (bool, error)
	Unassign(ctx context.Context, userID, themeID string) error
	Apply(ctx context.Context, userID, themeID string) (bool, error)
	AppliedThemeID(ctx context.Context, userID string) (string, error)
}

type repository struct {
	db core.DB
}

func NewRepository(db core.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListAvailable(ctx context.Context) ([]Theme, error) {
	query := `
		SELECT id, name, image_url, created_at
		FROM available_themes
		ORDER BY created_at, id`

	var themes []Theme
	if err := r.db.SelectContext(ctx, &themes, query); err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}

	return themes, nil
}

func (r *repository) GetAvailable(ctx context.Context, id string) (*Theme, error) {
	query := `
		SELECT id, name, image_url, created_at
		FROM available_themes
		WHERE id = $1`

	var t Theme
	err := r.db.GetContext(ctx, &t, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get theme: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get theme: %w", err)
	}

	return &t, nil
}

func (r *repository) CreateAvailable(ctx context.Context, t *Theme) error {
	query := `
		INSERT INTO available_themes (id, name, image_url)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query, t.ID, t.Name, t.ImageURL).Scan(&t.CreatedAt)
	if core.IsUniqueViolation(err, "") {
		return fmt.Errorf("create theme: %w", core.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("create theme: %w", err)
	}

	return nil
}

// DeleteAvailable removes the theme and, through the foreign key cascade,
// every assignment of it. Cached theme ids pointing at it are cleared in
// the same transaction.
func (r *repository) DeleteAvailable(ctx context.Context, id string) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET themeid = NULL, updated_at = NOW() WHERE themeid = $1`,
			id,
		); err != nil {
			return fmt.Errorf("clear cached theme: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM available_themes WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete theme: %w", err)
		}

		return expectOneRow(result, "delete theme")
	})
}

func (r *repository) CountAvailable(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM available_themes`); err != nil {
		return 0, fmt.Errorf("count themes: %w", err)
	}
	return n, nil
}

func (r *repository) ListForUser(
	ctx context.Context,
	userID string,
) ([]AssignedTheme, error) {
	query := `
		SELECT t.id, t.name, t.image_url, t.created_at, ut.applied, ut.assigned_at
		FROM user_themes ut
		JOIN available_themes t ON t.id = ut.theme_id
		WHERE ut.user_id = $1
		ORDER BY ut.assigned_at, t.id`

	var themes []AssignedTheme
	if err := r.db.SelectContext(ctx, &themes, query, userID); err != nil {
		return nil, fmt.Errorf("list user themes: %w", err)
	}

	return themes, nil
}

// Assign grants a theme to a user. It reports false when the assignment
// already existed. A missing user or theme is ErrNotFound.
func (r *repository) Assign(ctx context.Context, userID, themeID string) (bool, error) {
	query := `
		INSERT INTO user_themes (user_id, theme_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, theme_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, userID, themeID)
	if core.IsForeignKeyViolation(err) {
		return false, fmt.Errorf("assign theme: %w", core.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("assign theme: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign theme: %w", err)
	}

	return rows == 1, nil
}

// Unassign removes the assignment. When it was the applied one the cached
// users.themeid is cleared with it.
func (r *repository) Unassign(ctx context.Context, userID, themeID string) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var applied bool
		err := tx.QueryRowxContext(ctx,
			`DELETE FROM user_themes WHERE user_id = $1 AND theme_id = $2 RETURNING applied`,
			userID, themeID,
		).Scan(&applied)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("unassign theme: %w", core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("unassign theme: %w", err)
		}

		if !applied {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET themeid = NULL, updated_at = NOW() WHERE id = $1`,
			userID,
		); err != nil {
			return fmt.Errorf("clear cached theme: %w", err)
		}

		return nil
	})
}

// Apply makes themeID the user's only applied theme. The user's assignment
// rows are locked first so concurrent applies for one user serialize, and
// the partial unique index on applied rows backs the invariant. It reports
// false when the theme was already applied. A theme that is not assigned
// to the user is ErrNotFound.
func (r *repository) Apply(ctx context.Context, userID, themeID string) (bool, error) {
	changed := false

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var rows []struct {
			ThemeID string `db:"theme_id"`
			Applied bool   `db:"applied"`
		}
		if err := tx.SelectContext(ctx, &rows,
			`SELECT theme_id, applied FROM user_themes WHERE user_id = $1 FOR UPDATE`,
			userID,
		); err != nil {
			return fmt.Errorf("lock user themes: %w", err)
		}

		assigned := false
		for _, row := range rows {
			if row.ThemeID != themeID {
				continue
			}
			assigned = true
			if row.Applied {
				return nil
			}
		}
		if !assigned {
			return fmt.Errorf("apply theme: %w", core.ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE user_themes SET applied = false WHERE user_id = $1 AND applied`,
			userID,
		); err != nil {
			return fmt.Errorf("reset applied theme: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE user_themes SET applied = true WHERE user_id = $1 AND theme_id = $2`,
			userID, themeID,
		); err != nil {
			return fmt.Errorf("set applied theme: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET themeid = $2, updated_at = NOW() WHERE id = $1`,
			userID, themeID,
		); err != nil {
			return fmt.Errorf("cache applied theme: %w", err)
		}

		changed = true
		return nil
	})

	return changed, err
}

// AppliedThemeID reads the applied assignment. No applied row is
// ErrNotFound.
func (r *repository) AppliedThemeID(ctx context.Context, userID string) (string, error) {
	query := `SELECT theme_id FROM user_themes WHERE user_id = $1 AND applied`

	var id string
	err := r.db.GetContext(ctx, &id, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("applied theme: %w", core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("applied theme: %w", err)
	}

	return id, nil
}

func expectOneRow(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}

// AngelaMos | 2026
// repository.go

package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tapinfi/cardhub/internal/core"
)

type Repository interface {
	Create(ctx context.Context, acct *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
	MarkEmailConfirmed(ctx context.Context, id string) error
	SetAdminByEmail(ctx context.Context, email string, isAdmin bool) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const selectAccount = `
	SELECT a.id, a.email, a.password_hash, a.email_confirmed_at,
	       a.token_version, COALESCE(u.is_admin, false) AS is_admin,
	       a.created_at, a.updated_at, a.deleted_at
	FROM accounts a
	LEFT JOIN users u ON u.id = a.id`

// Create inserts the account and its empty profile row in one statement.
func (r *repository) Create(ctx context.Context, acct *Account) error {
	query := `
		WITH acct AS (
			INSERT INTO accounts (id, email, password_hash, email_confirmed_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, email, token_version, created_at, updated_at
		), profile AS (
			INSERT INTO users (id, user_email)
			SELECT id, email FROM acct
		)
		SELECT token_version, created_at, updated_at FROM acct`

	err := r.db.QueryRowxContext(ctx, query,
		acct.ID,
		acct.Email,
		acct.PasswordHash,
		acct.EmailConfirmedAt,
	).Scan(&acct.TokenVersion, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		if core.IsUniqueViolation(err, "") {
			return fmt.Errorf("create account: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create account: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Account, error) {
	query := selectAccount + `
		WHERE a.id = $1 AND a.deleted_at IS NULL`

	var acct Account
	err := r.db.GetContext(ctx, &acct, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &acct, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*Account, error) {
	query := selectAccount + `
		WHERE a.email = $1 AND a.deleted_at IS NULL`

	var acct Account
	err := r.db.GetContext(ctx, &acct, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}

	return &acct, nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "update password", query, id, passwordHash)
}

func (r *repository) IncrementTokenVersion(
	ctx context.Context,
	id string,
) error {
	query := `
		UPDATE accounts
		SET token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "increment token version", query, id)
}

func (r *repository) MarkEmailConfirmed(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET email_confirmed_at = COALESCE(email_confirmed_at, NOW()), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "confirm email", query, id)
}

func (r *repository) SetAdminByEmail(
	ctx context.Context,
	email string,
	isAdmin bool,
) error {
	query := `
		UPDATE users u
		SET is_admin = $2, updated_at = NOW()
		FROM accounts a
		WHERE a.id = u.id AND a.email = $1 AND a.deleted_at IS NULL`

	return r.execOne(ctx, "set admin", query, email, isAdmin)
}

func (r *repository) execOne(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

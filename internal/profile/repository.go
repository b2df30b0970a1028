// AngelaMos | 2026
// repository.go

package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tapinfi/cardhub/internal/core"
)

const usernameConstraint = "users_username_key"

type Repository interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByUsername(ctx context.Context, username string) (*Profile, error)
	EnsureExists(ctx context.Context, id string) (*Profile, error)
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
	SaveDetails(ctx context.Context, p *Profile) error
	SetImageURL(ctx context.Context, id, kind, url string) (string, error)
	SetPublish(ctx context.Context, id string, publish bool) error
	TogglePublish(ctx context.Context, id string) (bool, error)
	SetLocks(ctx context.Context, id string, usernameLocked, fullNameLocked bool) error
	List(ctx context.Context, params ListParams) ([]Profile, int, error)
	Counts(ctx context.Context) (Counts, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const profileColumns = `
	id, username, full_name, role, company, about,
	profile_pic_url, cover_pic_url, phone_number, user_email,
	website_url, portfolio_url, facebook_url, instagram_url,
	linkedin_url, twitter_url, whatsapp_url, publish, themeid,
	is_username_locked, is_fullname_locked, is_admin,
	created_at, updated_at`

func (r *repository) GetByID(ctx context.Context, id string) (*Profile, error) {
	return r.getOne(ctx, "get profile", "id = $1", id)
}

// GetByUsername matches exactly; usernames are stored as typed.
func (r *repository) GetByUsername(
	ctx context.Context,
	username string,
) (*Profile, error) {
	return r.getOne(ctx, "get profile by username", "username = $1", username)
}

func (r *repository) getOne(
	ctx context.Context,
	op, where string,
	arg any,
) (*Profile, error) {
	query := `SELECT` + profileColumns + ` FROM users WHERE ` + where

	var p Profile
	err := r.db.GetContext(ctx, &p, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &p, nil
}

// EnsureExists creates the profile row for an account that predates it,
// copying the account email, and returns the row either way.
func (r *repository) EnsureExists(ctx context.Context, id string) (*Profile, error) {
	query := `
		INSERT INTO users (id, user_email)
		SELECT id, email FROM accounts WHERE id = $1 AND deleted_at IS NULL
		ON CONFLICT (id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *repository) UsernameTaken(
	ctx context.Context,
	username, excludeID string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND id <> $2)`

	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, username, excludeID); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}

	return taken, nil
}

// SaveDetails writes the editable card fields and sets both locks. The
// locks only ever move from false to true here.
func (r *repository) SaveDetails(ctx context.Context, p *Profile) error {
	query := `
		UPDATE users SET
			username = $2, full_name = $3, role = $4, company = $5, about = $6,
			phone_number = $7, website_url = $8, portfolio_url = $9,
			facebook_url = $10, instagram_url = $11, linkedin_url = $12,
			twitter_url = $13, whatsapp_url = $14,
			is_username_locked = true, is_fullname_locked = true,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &p.UpdatedAt, query,
		p.ID,
		p.Username,
		p.FullName,
		p.Role,
		p.Company,
		p.About,
		p.PhoneNumber,
		p.WebsiteURL,
		p.PortfolioURL,
		p.FacebookURL,
		p.InstagramURL,
		p.LinkedinURL,
		p.TwitterURL,
		p.WhatsappURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("save profile: %w", core.ErrNotFound)
	}
	if core.IsUniqueViolation(err, usernameConstraint) {
		return fmt.Errorf("save profile: %w", core.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	p.UsernameLocked = true
	p.FullNameLocked = true
	return nil
}

// SetImageURL stores the new image URL and returns the one it replaced.
func (r *repository) SetImageURL(
	ctx context.Context,
	id, kind, url string,
) (string, error) {
	column, ok := imageColumns[kind]
	if !ok {
		return "", fmt.Errorf("set image url: %w", core.ErrInvalidInput)
	}

	//nolint:gosec // G201: column comes from the fixed imageColumns map
	query := fmt.Sprintf(`
		UPDATE users u
		SET %[1]s = $2, updated_at = NOW()
		FROM (SELECT %[1]s AS previous FROM users WHERE id = $1 FOR UPDATE) prev
		WHERE u.id = $1
		RETURNING prev.previous`, column)

	var previous string
	err := r.db.GetContext(ctx, &previous, query, id, url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("set image url: %w", core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("set image url: %w", err)
	}

	return previous, nil
}

func (r *repository) SetPublish(ctx context.Context, id string, publish bool) error {
	query := `UPDATE users SET publish = $2, updated_at = NOW() WHERE id = $1`

	return r.execOne(ctx, "set publish", query, id, publish)
}

func (r *repository) TogglePublish(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE users SET publish = NOT publish, updated_at = NOW()
		WHERE id = $1
		RETURNING publish`

	var publish bool
	err := r.db.GetContext(ctx, &publish, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("toggle publish: %w", core.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("toggle publish: %w", err)
	}

	return publish, nil
}

func (r *repository) SetLocks(
	ctx context.Context,
	id string,
	usernameLocked, fullNameLocked bool,
) error {
	query := `
		UPDATE users
		SET is_username_locked = $2, is_fullname_locked = $3, updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "set locks", query, id, usernameLocked, fullNameLocked)
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Profile, int, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(user_email ILIKE $%d OR username ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+core.EscapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Published != nil {
		conditions = append(conditions, fmt.Sprintf("publish = $%d", argIdx))
		args = append(args, *params.Published)
		argIdx++
	}

	whereClause := "TRUE"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	//nolint:gosec // G201: whereClause only holds fixed fragments and placeholders
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM users WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}

	//nolint:gosec // G201: as above
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		profileColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var profiles []Profile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}

	return profiles, total, nil
}

func (r *repository) Counts(ctx context.Context) (Counts, error) {
	query := `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE publish) AS published
		FROM users`

	var c Counts
	if err := r.db.GetContext(ctx, &c, query); err != nil {
		return Counts{}, fmt.Errorf("count profiles: %w", err)
	}

	return c, nil
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

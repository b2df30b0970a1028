// AngelaMos | 2026
// repository.go

package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tapinfi/cardhub/internal/core"
)

type Repository interface {
	EnsureMember(ctx context.Context, userID string) (bool, error)
	GetMember(ctx context.Context, userID string) (*Member, error)
	IsMember(ctx context.Context, userID string) (bool, error)
	SaveCard(ctx context.Context, userID, username string) (bool, error)
	RemoveCard(ctx context.Context, userID, username string) error
	TouchCard(ctx context.Context, userID, username string) error
	ListCards(ctx context.Context, userID string, params ListParams) ([]SavedCard, int, error)
	Counts(ctx context.Context) (Counts, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// EnsureMember creates the membership row if it is missing, snapshotting
// the profile name and email (the account email when the profile has none)
// and whether the user already has saved cards. It reports whether a row
// was created. An unknown account is ErrNotFound.
func (r *repository) EnsureMember(ctx context.Context, userID string) (bool, error) {
	query := `
		INSERT INTO wallet_users (user_id, full_name, email, is_card_owner)
		SELECT
			a.id,
			COALESCE(u.full_name, ''),
			COALESCE(NULLIF(u.user_email, ''), a.email),
			EXISTS (SELECT 1 FROM wallet_cards wc WHERE wc.user_id = a.id)
		FROM accounts a
		LEFT JOIN users u ON u.id = a.id
		WHERE a.id = $1 AND a.deleted_at IS NULL
		ON CONFLICT (user_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("ensure wallet member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure wallet member: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) GetMember(ctx context.Context, userID string) (*Member, error) {
	query := `
		SELECT user_id, full_name, email, is_card_owner, joined_at
		FROM wallet_users
		WHERE user_id = $1`

	var m Member
	err := r.db.GetContext(ctx, &m, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get wallet member: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet member: %w", err)
	}

	return &m, nil
}

func (r *repository) IsMember(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM wallet_users WHERE user_id = $1)`

	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, userID); err != nil {
		return false, fmt.Errorf("check wallet member: %w", err)
	}

	return ok, nil
}

// SaveCard adds the card to the wallet. The unique (user_id, card_username)
// constraint makes a repeat a no-op, reported as false.
func (r *repository) SaveCard(ctx context.Context, userID, username string) (bool, error) {
	query := `
		INSERT INTO wallet_cards (user_id, card_username)
		VALUES ($1, $2)
		ON CONFLICT (user_id, card_username) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, userID, username)
	if core.IsForeignKeyViolation(err) {
		return false, fmt.Errorf("save card: %w", core.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("save card: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save card: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) RemoveCard(ctx context.Context, userID, username string) error {
	query := `DELETE FROM wallet_cards WHERE user_id = $1 AND card_username = $2`

	return r.execOne(ctx, "remove card", query, userID, username)
}

func (r *repository) TouchCard(ctx context.Context, userID, username string) error {
	query := `
		UPDATE wallet_cards SET last_viewed_at = NOW()
		WHERE user_id = $1 AND card_username = $2`

	return r.execOne(ctx, "mark card viewed", query, userID, username)
}

// ListCards returns the saved cards that are still published, most
// recently viewed first and then most recently saved.
func (r *repository) ListCards(
	ctx context.Context,
	userID string,
	params ListParams,
) ([]SavedCard, int, error) {
	where := `wc.user_id = $1 AND u.publish`
	args := []any{userID}

	if params.Search != "" {
		where += ` AND (
			u.full_name ILIKE $2 OR u.username ILIKE $2 OR u.role ILIKE $2
			OR u.company ILIKE $2 OR u.phone_number ILIKE $2)`
		args = append(args, "%"+core.EscapeLike(params.Search)+"%")
	}

	from := `
		FROM wallet_cards wc
		JOIN users u ON u.username = wc.card_username
		WHERE ` + where

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)`+from, args...); err != nil {
		return nil, 0, fmt.Errorf("count saved cards: %w", err)
	}

	//nolint:gosec // G201: from only holds fixed fragments and placeholders
	query := fmt.Sprintf(`
		SELECT u.username, u.full_name, u.profile_pic_url, u.role, u.company,
			u.phone_number, wc.saved_at, wc.last_viewed_at
		%s
		ORDER BY wc.last_viewed_at DESC NULLS LAST, wc.saved_at DESC
		LIMIT $%d OFFSET $%d`, from, len(args)+1, len(args)+2)

	cards := []SavedCard{}
	if err := r.db.SelectContext(ctx, &cards, query,
		append(args, params.PageSize, params.Offset())...,
	); err != nil {
		return nil, 0, fmt.Errorf("list saved cards: %w", err)
	}

	return cards, total, nil
}

func (r *repository) Counts(ctx context.Context) (Counts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM wallet_users) AS members,
			(SELECT COUNT(*) FROM wallet_cards) AS saved_cards`

	var c Counts
	if err := r.db.GetContext(ctx, &c, query); err != nil {
		return Counts{}, fmt.Errorf("count wallet: %w", err)
	}

	return c, nil
}

func (r *repository) execOne(ctx context.Context, op, query string, args ...any) error {
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

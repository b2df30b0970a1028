// AngelaMos | 2026
// entity.go

package wallet

import (
	"time"
)

// Member is the opt-in row that unlocks saving cards. Name and email are
// copied from the profile when the member joins.
type Member struct {
	UserID      string    `db:"user_id"`
	FullName    string    `db:"full_name"`
	Email       string    `db:"email"`
	IsCardOwner bool      `db:"is_card_owner"`
	JoinedAt    time.Time `db:"joined_at"`
}

// SavedCard is one wallet entry joined with the card it points at.
type SavedCard struct {
	Username      string     `db:"username"`
	FullName      string     `db:"full_name"`
	ProfilePicURL string     `db:"profile_pic_url"`
	Role          string     `db:"role"`
	Company       string     `db:"company"`
	PhoneNumber   string     `db:"phone_number"`
	SavedAt       time.Time  `db:"saved_at"`
	LastViewedAt  *time.Time `db:"last_viewed_at"`
}

type Counts struct {
	Members    int `db:"members"`
	SavedCards int `db:"saved_cards"`
}

// Outcome is the result of a save attempt.
type Outcome string

const (
	OutcomeNeedsAuth       Outcome = "needs_auth"
	OutcomeNeedsMembership Outcome = "needs_membership"
	OutcomeSaved           Outcome = "saved"
	OutcomeAlreadySaved    Outcome = "already_saved"
)

type SaveResult struct {
	Outcome    Outcome
	Username   string
	RedirectTo string
}

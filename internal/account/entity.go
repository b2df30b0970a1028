// AngelaMos | 2026
// entity.go

package account

import (
	"time"
)

// Account is the identity record behind a login. The public card fields
// live in the users table under the same id.
type Account struct {
	ID               string     `db:"id"`
	Email            string     `db:"email"`
	PasswordHash     string     `db:"password_hash"`
	EmailConfirmedAt *time.Time `db:"email_confirmed_at"`
	TokenVersion     int        `db:"token_version"`
	IsAdmin          bool       `db:"is_admin"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
	DeletedAt        *time.Time `db:"deleted_at"`
}

func (a *Account) IsDeleted() bool {
	return a.DeletedAt != nil
}

func (a *Account) IsConfirmed() bool {
	return a.EmailConfirmedAt != nil
}

func (a *Account) Role() string {
	if a.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

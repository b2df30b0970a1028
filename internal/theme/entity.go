// AngelaMos | 2026
// entity.go

package theme

import (
	"time"
)

type Theme struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	ImageURL  string    `db:"image_url"`
	CreatedAt time.Time `db:"created_at"`
}

func (t Theme) Kind() Kind {
	return ParseKind(t.ID)
}

// AssignedTheme is a theme an admin granted to one user, with whether the
// user currently has it applied.
type AssignedTheme struct {
	Theme
	Applied    bool      `db:"applied"`
	AssignedAt time.Time `db:"assigned_at"`
}

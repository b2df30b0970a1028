// AngelaMos | 2026
// entity.go

package profile

import (
	"time"
)

// Profile is the public business card row keyed by the account id. The
// username stays nil until the owner saves the card for the first time.
type Profile struct {
	ID             string    `db:"id"`
	Username       *string   `db:"username"`
	FullName       string    `db:"full_name"`
	Role           string    `db:"role"`
	Company        string    `db:"company"`
	About          string    `db:"about"`
	ProfilePicURL  string    `db:"profile_pic_url"`
	CoverPicURL    string    `db:"cover_pic_url"`
	PhoneNumber    string    `db:"phone_number"`
	UserEmail      string    `db:"user_email"`
	WebsiteURL     string    `db:"website_url"`
	PortfolioURL   string    `db:"portfolio_url"`
	FacebookURL    string    `db:"facebook_url"`
	InstagramURL   string    `db:"instagram_url"`
	LinkedinURL    string    `db:"linkedin_url"`
	TwitterURL     string    `db:"twitter_url"`
	WhatsappURL    string    `db:"whatsapp_url"`
	Publish        bool      `db:"publish"`
	ThemeID        *string   `db:"themeid"`
	UsernameLocked bool      `db:"is_username_locked"`
	FullNameLocked bool      `db:"is_fullname_locked"`
	IsAdmin        bool      `db:"is_admin"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (p *Profile) UsernameValue() string {
	if p.Username == nil {
		return ""
	}
	return *p.Username
}

// Counts summarizes profiles for the admin dashboard.
type Counts struct {
	Total     int `db:"total"`
	Published int `db:"published"`
}

const (
	ImageProfile = "profile"
	ImageCover   = "cover"
)

// imageColumns maps an upload kind to the column holding its URL.
var imageColumns = map[string]string{
	ImageProfile: "profile_pic_url",
	ImageCover:   "cover_pic_url",
}

func IsImageKind(kind string) bool {
	_, ok := imageColumns[kind]
	return ok
}

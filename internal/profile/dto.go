// AngelaMos | 2026
// dto.go

package profile

import (
	"strings"
	"time"

	"github.com/tapinfi/cardhub/internal/core"
)

type UpdateProfileRequest struct {
	Username     string `json:"username"      validate:"required,username"`
	FullName     string `json:"full_name"     validate:"required,max=120"`
	Company      string `json:"company"       validate:"required,max=120"`
	Role         string `json:"role"          validate:"required,max=120"`
	About        string `json:"about"         validate:"max=2000"`
	PhoneNumber  string `json:"phone_number"  validate:"omitempty,phone"`
	WebsiteURL   string `json:"website_url"   validate:"omitempty,http_url,max=500"`
	PortfolioURL string `json:"portfolio_url" validate:"omitempty,http_url,max=500"`
	FacebookURL  string `json:"facebook_url"  validate:"omitempty,social_url,max=500"`
	InstagramURL string `json:"instagram_url" validate:"omitempty,social_url,max=500"`
	LinkedinURL  string `json:"linkedin_url"  validate:"omitempty,social_url,max=500"`
	TwitterURL   string `json:"twitter_url"   validate:"omitempty,social_url,max=500"`
	WhatsappURL  string `json:"whatsapp_url"  validate:"omitempty,social_url,max=500"`
}

// Trim strips surrounding whitespace from every field except the
// username, whose embedded spaces must still fail validation.
func (r *UpdateProfileRequest) Trim() {
	for _, f := range []*string{
		&r.FullName, &r.Company, &r.Role, &r.About, &r.PhoneNumber,
		&r.WebsiteURL, &r.PortfolioURL, &r.FacebookURL, &r.InstagramURL,
		&r.LinkedinURL, &r.TwitterURL, &r.WhatsappURL,
	} {
		*f = strings.TrimSpace(*f)
	}
}

type SetPublishRequest struct {
	Publish *bool `json:"publish" validate:"required"`
}

type SetLocksRequest struct {
	UsernameLocked *bool `json:"is_username_locked" validate:"required"`
	FullNameLocked *bool `json:"is_fullname_locked" validate:"required"`
}

type ProfileResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role"`
	Company        string    `json:"company"`
	About          string    `json:"about"`
	ProfilePicURL  string    `json:"profile_pic_url"`
	CoverPicURL    string    `json:"cover_pic_url"`
	PhoneNumber    string    `json:"phone_number"`
	Email          string    `json:"user_email"`
	WebsiteURL     string    `json:"website_url"`
	PortfolioURL   string    `json:"portfolio_url"`
	FacebookURL    string    `json:"facebook_url"`
	InstagramURL   string    `json:"instagram_url"`
	LinkedinURL    string    `json:"linkedin_url"`
	TwitterURL     string    `json:"twitter_url"`
	WhatsappURL    string    `json:"whatsapp_url"`
	Publish        bool      `json:"publish"`
	UsernameLocked bool      `json:"is_username_locked"`
	FullNameLocked bool      `json:"is_fullname_locked"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AdminProfileResponse adds the fields only the dashboard shows.
type AdminProfileResponse struct {
	ProfileResponse
	ThemeID   string    `json:"themeid,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type AvailabilityResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type ImageResponse struct {
	Kind string `json:"kind"`
	URL  string `json:"url"`
}

type ListParams struct {
	core.PageParams
	Search    string
	Published *bool
}

func ToProfileResponse(p *Profile) ProfileResponse {
	return ProfileResponse{
		ID:             p.ID,
		Username:       p.UsernameValue(),
		FullName:       p.FullName,
		Role:           p.Role,
		Company:        p.Company,
		About:          p.About,
		ProfilePicURL:  p.ProfilePicURL,
		CoverPicURL:    p.CoverPicURL,
		PhoneNumber:    p.PhoneNumber,
		Email:          p.UserEmail,
		WebsiteURL:     p.WebsiteURL,
		PortfolioURL:   p.PortfolioURL,
		FacebookURL:    p.FacebookURL,
		InstagramURL:   p.InstagramURL,
		LinkedinURL:    p.LinkedinURL,
		TwitterURL:     p.TwitterURL,
		WhatsappURL:    p.WhatsappURL,
		Publish:        p.Publish,
		UsernameLocked: p.UsernameLocked,
		FullNameLocked: p.FullNameLocked,
		UpdatedAt:      p.UpdatedAt,
	}
}

func ToAdminProfileResponse(p *Profile) AdminProfileResponse {
	resp := AdminProfileResponse{
		ProfileResponse: ToProfileResponse(p),
		IsAdmin:         p.IsAdmin,
		CreatedAt:       p.CreatedAt,
	}
	if p.ThemeID != nil {
		resp.ThemeID = *p.ThemeID
	}
	return resp
}

func ToAdminProfileResponseList(profiles []Profile) []AdminProfileResponse {
	out := make([]AdminProfileResponse, 0, len(profiles))
	for i := range profiles {
		out = append(out, ToAdminProfileResponse(&profiles[i]))
	}
	return out
}

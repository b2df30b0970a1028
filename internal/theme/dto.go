// AngelaMos | 2026
// dto.go

package theme

import (
	"strings"
	"time"
)

type CreateThemeRequest struct {
	ID       string `json:"id"        validate:"required,max=64"`
	Name     string `json:"name"      validate:"required,max=100"`
	ImageURL string `json:"image_url" validate:"omitempty,http_url"`
}

func (r *CreateThemeRequest) Trim() {
	r.ID = strings.TrimSpace(r.ID)
	r.Name = strings.TrimSpace(r.Name)
	r.ImageURL = strings.TrimSpace(r.ImageURL)
}

type ThemeResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url,omitempty"`
	Renderer  string    `json:"renderer"`
	CreatedAt time.Time `json:"created_at"`
}

type AssignedThemeResponse struct {
	ThemeResponse
	Applied    bool      `json:"applied"`
	AssignedAt time.Time `json:"assigned_at"`
}

type ApplyResponse struct {
	ThemeID string `json:"theme_id"`
	Applied bool   `json:"applied"`
	Changed bool   `json:"changed"`
}

func ToThemeResponse(t Theme) ThemeResponse {
	return ThemeResponse{
		ID:        t.ID,
		Name:      t.Name,
		ImageURL:  t.ImageURL,
		Renderer:  t.Kind().Label(),
		CreatedAt: t.CreatedAt,
	}
}

func ToThemeResponseList(themes []Theme) []ThemeResponse {
	out := make([]ThemeResponse, len(themes))
	for i, t := range themes {
		out[i] = ToThemeResponse(t)
	}
	return out
}

func ToAssignedThemeResponseList(themes []AssignedTheme) []AssignedThemeResponse {
	out := make([]AssignedThemeResponse, len(themes))
	for i, t := range themes {
		out[i] = AssignedThemeResponse{
			ThemeResponse: ToThemeResponse(t.Theme),
			Applied:       t.Applied,
			AssignedAt:    t.AssignedAt,
		}
	}
	return out
}

// AngelaMos | 2026
// dto.go

package wallet

import (
	"strings"
	"time"

	"github.com/tapinfi/cardhub/internal/core"
)

type SaveCardRequest struct {
	Username string `json:"username" validate:"required,username"`
}

func (r *SaveCardRequest) Trim() {
	r.Username = strings.TrimSpace(r.Username)
}

type ListParams struct {
	core.PageParams
	Search string
}

type MemberResponse struct {
	UserID      string    `json:"user_id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	IsCardOwner bool      `json:"is_card_owner"`
	JoinedAt    time.Time `json:"joined_at"`
}

type SavedCardResponse struct {
	Username      string     `json:"username"`
	FullName      string     `json:"full_name"`
	ProfilePicURL string     `json:"profile_pic_url"`
	Role          string     `json:"role"`
	Company       string     `json:"company"`
	PhoneNumber   string     `json:"phone_number"`
	SavedAt       time.Time  `json:"saved_at"`
	LastViewedAt  *time.Time `json:"last_viewed_at"`
}

type SaveResponse struct {
	Outcome    Outcome `json:"outcome"`
	Username   string  `json:"username"`
	RedirectTo string  `json:"redirect_to,omitempty"`
}

func ToMemberResponse(m *Member) MemberResponse {
	return MemberResponse{
		UserID:      m.UserID,
		FullName:    m.FullName,
		Email:       m.Email,
		IsCardOwner: m.IsCardOwner,
		JoinedAt:    m.JoinedAt,
	}
}

func ToSavedCardResponseList(cards []SavedCard) []SavedCardResponse {
	out := make([]SavedCardResponse, len(cards))
	for i, c := range cards {
		out[i] = SavedCardResponse(c)
	}
	return out
}

func ToSaveResponse(r SaveResult) SaveResponse {
	return SaveResponse{
		Outcome:    r.Outcome,
		Username:   r.Username,
		RedirectTo: r.RedirectTo,
	}
}

// AngelaMos | 2026
// view.go

package card

import (
	"html/template"
	"net/url"
	"path"
	"strings"

	"github.com/tapinfi/cardhub/internal/profile"
	"github.com/tapinfi/cardhub/internal/theme"
)

const (
	defaultName    = "Guest User"
	defaultCompany = "Tapinfi"
)

// Link is one contact or social action on a rendered card.
type Link struct {
	Label string
	Icon  string
	URL   template.URL
}

// View is the template data for a published card.
type View struct {
	Username      string
	FullName      string
	FirstName     string
	Role          string
	Company       string
	About         string
	ProfilePicURL string
	CoverPicURL   string
	Contacts      []Link
	Socials       []Link
	PortfolioURL  string
	PortfolioName string
	ProfileURL    string
	VCardURL      string
	SaveURL       string
	Theme         string
}

// CardResponse is the public JSON shape of a published card. It carries
// no account state such as locks or admin flags.
type CardResponse struct {
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	Role          string `json:"role"`
	Company       string `json:"company"`
	About         string `json:"about"`
	ProfilePicURL string `json:"profile_pic_url"`
	CoverPicURL   string `json:"cover_pic_url"`
	PhoneNumber   string `json:"phone_number"`
	Email         string `json:"user_email"`
	WebsiteURL    string `json:"website_url"`
	PortfolioURL  string `json:"portfolio_url"`
	FacebookURL   string `json:"facebook_url"`
	InstagramURL  string `json:"instagram_url"`
	LinkedinURL   string `json:"linkedin_url"`
	TwitterURL    string `json:"twitter_url"`
	WhatsappURL   string `json:"whatsapp_url"`
}

type ResolutionResponse struct {
	State State         `json:"state"`
	Theme string        `json:"theme,omitempty"`
	Card  *CardResponse `json:"card,omitempty"`
}

func ToResolutionResponse(res Resolution) ResolutionResponse {
	if res.State != StatePublished || res.Profile == nil {
		return ResolutionResponse{State: res.State}
	}

	p := res.Profile
	return ResolutionResponse{
		State: res.State,
		Theme: res.Kind.Label(),
		Card: &CardResponse{
			Username:      p.UsernameValue(),
			FullName:      p.FullName,
			Role:          p.Role,
			Company:       p.Company,
			About:         p.About,
			ProfilePicURL: p.ProfilePicURL,
			CoverPicURL:   p.CoverPicURL,
			PhoneNumber:   p.PhoneNumber,
			Email:         p.UserEmail,
			WebsiteURL:    p.WebsiteURL,
			PortfolioURL:  p.PortfolioURL,
			FacebookURL:   p.FacebookURL,
			InstagramURL:  p.InstagramURL,
			LinkedinURL:   p.LinkedinURL,
			TwitterURL:    p.TwitterURL,
			WhatsappURL:   p.WhatsappURL,
		},
	}
}

// NewView builds template data. publicURL is the site origin used for the
// shareable card address.
func NewView(p *profile.Profile, kind theme.Kind, publicURL string) View {
	username := p.UsernameValue()

	name := strings.TrimSpace(p.FullName)
	if name == "" {
		name = defaultName
	}

	v := View{
		Username:      username,
		FullName:      name,
		FirstName:     strings.Fields(name)[0],
		Role:          p.Role,
		Company:       p.Company,
		About:         p.About,
		ProfilePicURL: p.ProfilePicURL,
		CoverPicURL:   p.CoverPicURL,
		PortfolioURL:  webLink(p.PortfolioURL),
		PortfolioName: documentName(p.PortfolioURL),
		ProfileURL:    CardURL(publicURL, username),
		VCardURL:      "/v1/cards/" + url.PathEscape(username) + "/vcard",
		SaveURL:       "/v1/wallet/cards",
		Theme:         kind.Label(),
	}

	if p.PhoneNumber != "" {
		v.Contacts = append(v.Contacts, Link{
			Label: "Call",
			Icon:  "phone",
			URL:   template.URL("tel:" + strings.Join(strings.Fields(p.PhoneNumber), "")), //nolint:gosec // validated phone number
		})
	}
	if p.UserEmail != "" {
		v.Contacts = append(v.Contacts, Link{
			Label: "Email",
			Icon:  "email",
			URL:   template.URL("mailto:" + url.PathEscape(p.UserEmail)), //nolint:gosec // escaped address
		})
	}
	if p.WebsiteURL != "" {
		v.Contacts = append(v.Contacts, Link{Label: "Website", Icon: "web", URL: safeURL(p.WebsiteURL)})
	}

	socials := []struct {
		label, icon, value string
	}{
		{"LinkedIn", "linkedin", p.LinkedinURL},
		{"Instagram", "instagram", p.InstagramURL},
		{"X (Twitter)", "x", p.TwitterURL},
		{"WhatsApp", "whatsapp", p.WhatsappURL},
		{"Facebook", "facebook", p.FacebookURL},
	}
	for _, s := range socials {
		if s.value == "" {
			continue
		}
		v.Socials = append(v.Socials, Link{Label: s.label, Icon: s.icon, URL: safeURL(s.value)})
	}

	return v
}

// CardURL is the shareable address of a card.
func CardURL(publicURL, username string) string {
	return strings.TrimRight(publicURL, "/") + "/profile/" + url.PathEscape(username)
}

// webLink adds a scheme to bare hosts so the link leaves the site.
func webLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

// safeURL passes only http(s) links through as trusted; anything else is
// dropped to an inert anchor.
func safeURL(raw string) template.URL {
	link := webLink(raw)
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return "#"
	}
	return template.URL(u.String()) //nolint:gosec // scheme is http or https
}

func documentName(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(webLink(raw))
	if err != nil {
		return "View Portfolio / Pitch Deck"
	}
	if name := path.Base(u.Path); name != "." && name != "/" && name != "" {
		return name
	}
	return "View Portfolio / Pitch Deck"
}

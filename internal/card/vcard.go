// AngelaMos | 2026
// vcard.go

package card

import (
	"bytes"
	"strings"

	"github.com/tapinfi/cardhub/internal/profile"
)

var vcardEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
)

// VCard renders a vCard 3.0 contact for the card. The organisation falls
// back to Tapinfi and the phone line is omitted when there is no number.
func VCard(p *profile.Profile, cardURL string) []byte {
	name := strings.TrimSpace(p.FullName)
	if name == "" {
		name = defaultName
	}
	org := strings.TrimSpace(p.Company)
	if org == "" {
		org = defaultCompany
	}

	var b bytes.Buffer
	line := func(s string) {
		b.WriteString(s)
		b.WriteString("\r\n")
	}

	line("BEGIN:VCARD")
	line("VERSION:3.0")
	line("FN:" + vcardEscaper.Replace(name))
	line("ORG:" + vcardEscaper.Replace(org))
	if p.Role != "" {
		line("TITLE:" + vcardEscaper.Replace(p.Role))
	}
	if phone := strings.Join(strings.Fields(p.PhoneNumber), ""); phone != "" {
		line("TEL;TYPE=cell:" + phone)
	}
	line("URL:" + cardURL)
	line("END:VCARD")

	return b.Bytes()
}

// VCardFilename mirrors the contact name with whitespace runs replaced.
func VCardFilename(p *profile.Profile) string {
	name := strings.TrimSpace(p.FullName)
	if name == "" {
		name = p.UsernameValue()
	}
	if name == "" {
		name = "contact"
	}
	return strings.Join(strings.Fields(name), "_") + ".vcf"
}

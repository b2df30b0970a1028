// AngelaMos | 2026
// render.go

package card

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/tapinfi/cardhub/internal/theme"
)

//go:embed templates
var templateFS embed.FS

var themeFiles = map[theme.Kind]string{
	theme.KindNone:                  "neutral",
	theme.KindBlueTheme:             "blue",
	theme.KindGreenProfile:          "green",
	theme.KindDirectorProfileTheme:  "director",
	theme.KindPinkBusinessCardTheme: "pink",
	theme.KindBusinessTheme:         "business",
	theme.KindEngineerTheme:         "engineer",
}

type statusPage struct {
	Title       string
	Heading     string
	Message     string
	Placeholder bool
}

var (
	unpublishedPage = statusPage{
		Title:       "Profile not published",
		Message:     "This profile is not published yet. Stay tuned!",
		Placeholder: true,
	}
	notFoundPage = statusPage{
		Title:   "Profile not found",
		Heading: "404",
		Message: "Profile not found.",
	}
)

// Renderer turns resolutions into HTML pages. Every Kind, KindNone
// included, has its own template set.
type Renderer struct {
	cards  map[theme.Kind]*template.Template
	status *template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{cards: make(map[theme.Kind]*template.Template, len(themeFiles))}

	for kind, name := range themeFiles {
		t, err := template.ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/themes/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s card template: %w", kind.Label(), err)
		}
		r.cards[kind] = t
	}

	status, err := template.ParseFS(templateFS, "templates/status.html")
	if err != nil {
		return nil, fmt.Errorf("parse status template: %w", err)
	}
	r.status = status

	return r, nil
}

// RenderCard writes the card with the template for kind, falling back to
// the neutral one for a kind without a template.
func (r *Renderer) RenderCard(w io.Writer, kind theme.Kind, v View) error {
	t, ok := r.cards[kind]
	if !ok {
		t = r.cards[theme.KindNone]
	}
	return execute(w, t, "layout", v)
}

func (r *Renderer) RenderUnpublished(w io.Writer) error {
	return execute(w, r.status, "status", unpublishedPage)
}

func (r *Renderer) RenderNotFound(w io.Writer) error {
	return execute(w, r.status, "status", notFoundPage)
}

// execute renders fully before writing so a template error never leaves a
// half-written page.
func execute(w io.Writer, t *template.Template, name string, data any) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// AngelaMos | 2026
// templates.go

package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type LinkData struct {
	AppName string
	Email   string
	Link    string
}

func ConfirmationMessage(to string, data LinkData) (Message, error) {
	body, err := render("confirm_email.html", data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Confirm your " + data.AppName + " account",
		HTML:    body,
	}, nil
}

func PasswordResetMessage(to string, data LinkData) (Message, error) {
	body, err := render("reset_password.html", data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Reset your " + data.AppName + " password",
		HTML:    body,
	}, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// AngelaMos | 2026
// mail_test.go

package mail

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmationMessage(t *testing.T) {
	msg, err := ConfirmationMessage("alice@example.com", LinkData{
		AppName: "Tapinfi",
		Email:   "alice@example.com",
		Link:    "https://app.example.com/confirm-email?token=abc123",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "Confirm your Tapinfi account", msg.Subject)
	assert.Contains(t, msg.HTML, "https://app.example.com/confirm-email?token=abc123")
	assert.Contains(t, msg.HTML, "<h2 style=\"margin-top: 0;\">Tapinfi</h2>")
}

func TestPasswordResetMessageEscapesInput(t *testing.T) {
	msg, err := PasswordResetMessage("bob@example.com", LinkData{
		AppName: "Tapinfi",
		Email:   "<script>alert(1)</script>",
		Link:    "https://app.example.com/reset-password?token=xyz",
	})
	require.NoError(t, err)

	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "reset-password?token=xyz")
}

func TestEnvelopeAddress(t *testing.T) {
	assert.Equal(t, "no-reply@tapinfi.local", envelopeAddress("Tapinfi <no-reply@tapinfi.local>"))
	assert.Equal(t, "plain@example.com", envelopeAddress("plain@example.com"))
}

func TestFormatMessageHeaders(t *testing.T) {
	raw := string(formatMessage("a@example.com", Message{
		To:      "b@example.com",
		Subject: "Hello",
		HTML:    "<p>hi</p>",
	}))

	assert.True(t, strings.HasPrefix(raw, "From: a@example.com\r\n"))
	assert.Contains(t, raw, "Content-Type: text/html; charset=\"utf-8\"\r\n\r\n<p>hi</p>")
}

func TestLogSenderNeverFails(t *testing.T) {
	s := NewLogSender(nil)
	assert.NoError(t, s.Send(context.Background(), Message{To: "x@example.com"}))
}

package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var confirmationTmpl = template.Must(template.ParseFS(templateFS, "templates/confirmation.html"))

// ConfirmationEmailData fills the confirmation email.
type ConfirmationEmailData struct {
	SiteName    string
	FirstName   string
	DisplayName string
	Link        string
	ExpiresIn   time.Duration
}

// Email is a rendered message.
type Email struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// BuildConfirmationEmail renders the account confirmation message.
func BuildConfirmationEmail(data ConfirmationEmailData) (Email, error) {
	if data.SiteName == "" {
		data.SiteName = "HiveCert"
	}

	var html bytes.Buffer
	if err := confirmationTmpl.Execute(&html, struct {
		ConfirmationEmailData
		Expires string
	}{data, humanDuration(data.ExpiresIn)}); err != nil {
		return Email{}, fmt.Errorf("render confirmation email: %w", err)
	}

	return Email{
		Subject:  fmt.Sprintf("Confirm your %s account", data.SiteName),
		HTMLBody: html.String(),
		TextBody: buildConfirmationText(data),
	}, nil
}

func buildConfirmationText(data ConfirmationEmailData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hi %s,\n\n", data.FirstName)
	fmt.Fprintf(&buf, "Your %s workspace %q is ready. Confirm your email address to start using it:\n\n", data.SiteName, data.DisplayName)
	buf.WriteString(data.Link + "\n\n")
	fmt.Fprintf(&buf, "This link expires in %s.\n\n", humanDuration(data.ExpiresIn))
	buf.WriteString("If you did not sign up, you can ignore this email.\n")
	return buf.String()
}

// PhoneCodeMessage is the SMS body carrying a verification code.
func PhoneCodeMessage(siteName, code string, ttl time.Duration) string {
	if siteName == "" {
		siteName = "HiveCert"
	}
	return fmt.Sprintf("%s verification code: %s. It expires in %s.", siteName, code, humanDuration(ttl))
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	case d >= time.Minute:
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}

// Package notifier implements the link-delivery transports: SMTP email
// and a gateway-backed SMS sender. Both satisfy auth.Notifier.
package notifier

import (
	"bytes"
	"context"
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templatesFS embed.FS

// DefaultEmailSubject is the subject line for verification and reset
// emails.
const DefaultEmailSubject = "blog app"

// Email sends verification and reset links over SMTP. The HTML body is
// rendered from an embedded template.
type Email struct {
	dialer  *gomail.Dialer
	from    string
	subject string
	engine  *django.Engine
}

// EmailOption configures the email notifier.
type EmailOption func(*Email)

// WithSubject overrides the default subject line.
func WithSubject(subject string) EmailOption {
	return func(e *Email) {
		if subject != "" {
			e.subject = subject
		}
	}
}

// NewEmail creates an email notifier. The template set is loaded up
// front so a broken template fails at startup, not at send time.
func NewEmail(host string, port int, username, password, from string, opts ...EmailOption) (*Email, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open email templates")
	}

	engine := django.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load email templates")
	}

	e := &Email{
		dialer:  gomail.NewDialer(host, port, username, password),
		from:    from,
		subject: DefaultEmailSubject,
		engine:  engine,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	return e, nil
}

// SendVerificationLink implements auth.Notifier. The underlying SMTP
// dial does not honor the context; cancellation takes effect before the
// dial starts, not during.
func (e *Email) SendVerificationLink(ctx context.Context, destination, url, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := e.engine.Render(&body, "verification_email", map[string]any{
		"url":   url,
		"label": label,
	}); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to render email body")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", destination)
	m.SetHeader("Subject", e.subject)
	m.SetBody("text/html", body.String())

	if err := e.dialer.DialAndSend(m); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to send email")
	}

	return nil
}

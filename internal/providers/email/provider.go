package email

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var ErrNoRecipients = errors.New("no_recipients")

// Provider delivers transactional mail to clients. Callers treat delivery as
// best-effort and never fail the business operation on a send error.
type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	// SendTemplate renders one of the embedded templates by name, without
	// the .html suffix, and sends it with the template's subject.
	SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error
}

// NoOpProvider stands in when SMTP is not configured. Templates are still
// rendered so a broken template shows up in development.
type NoOpProvider struct {
	Log *zap.Logger
}

func (p *NoOpProvider) Send(_ context.Context, to []string, subject string, _ string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}
	p.dropped(to, subject)
	return nil
}

func (p *NoOpProvider) SendTemplate(_ context.Context, to []string, templateName string, data map[string]any) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}
	subject, _, err := Render(templateName, data)
	if err != nil {
		return err
	}
	p.dropped(to, subject)
	return nil
}

func (p *NoOpProvider) dropped(to []string, subject string) {
	if p.Log != nil {
		p.Log.Debug("email disabled, message dropped", zap.Int("recipients", len(to)), zap.String("subject", subject))
	}
}

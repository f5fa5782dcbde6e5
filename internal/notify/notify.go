// Package notify delivers outbound notifications. The only channel today is
// SMTP mail to the support inbox when a contact-form message arrives.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/tbourn/service-connect/internal/config"
	"github.com/tbourn/service-connect/internal/domain"
)

// ErrNotConfigured is returned by New when no SMTP host is set.
var ErrNotConfigured = errors.New("notify: smtp not configured")

// Notifier is told about new contact-form messages.
type Notifier interface {
	ContactReceived(ctx context.Context, m *domain.ContactMessage) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) ContactReceived(context.Context, *domain.ContactMessage) error { return nil }

// sender is the subset of *gomail.Dialer used here; tests replace it.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends notifications through an SMTP relay.
type Mailer struct {
	From    string
	Support string
	dialer  sender
}

// New builds a Mailer from cfg. It returns ErrNotConfigured when cfg.Host is
// empty so callers can fall back to Nop.
func New(cfg config.SMTPConfig) (*Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.SupportEmail == "" {
		return nil, fmt.Errorf("notify: SUPPORT_EMAIL is required when SMTP_HOST is set")
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &Mailer{
		From:    from,
		Support: cfg.SupportEmail,
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

// ContactReceived mails the support inbox. Replies go to the submitter.
func (m *Mailer) ContactReceived(ctx context.Context, msg *domain.ContactMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g := gomail.NewMessage()
	g.SetHeader("From", m.From)
	g.SetHeader("To", m.Support)
	g.SetHeader("Reply-To", msg.Email)
	g.SetHeader("Subject", "[Contact] "+msg.Subject)
	g.SetBody("text/html", contactBody(msg))
	return m.dialer.DialAndSend(g)
}

func contactBody(msg *domain.ContactMessage) string {
	esc := html.EscapeString
	return fmt.Sprintf(`
		<p><strong>From:</strong> %s &lt;%s&gt;</p>
		<p><strong>Subject:</strong> %s</p>
		<p>%s</p>
		<p><small>Received %s</small></p>
	`, esc(msg.Name), esc(msg.Email), esc(msg.Subject),
		strings.ReplaceAll(esc(msg.Message), "\n", "<br>"),
		msg.CreatedAt.Format("2006-01-02 15:04:05"))
}

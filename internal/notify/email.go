package notify

import (
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// EmailSender delivers one HTML email.
type EmailSender interface {
	Send(to, subject, htmlBody string) error
}

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender builds the gomail-backed sender.
func NewSMTPSender(cfg config.NotificationConfig) EmailSender {
	return &smtpSender{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.EmailFrom,
	}
}

func (s *smtpSender) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return util.NewExternalServiceError("mail", err)
	}
	return nil
}

func cardCreatedBody(card *domain.Card) string {
	return fmt.Sprintf(`
		<html>
		<body>
			<h2>New support card</h2>
			<p><strong>%s</strong></p>
			<p>Status: %s<br>Source: %s<br>Opened by: %s</p>
			<p>Card id: %s</p>
		</body>
		</html>
	`, card.Title, card.Status, card.Source, card.CreatedBy, card.ID)
}

func cardUpdatedBody(card *domain.Card, diff map[string]events.FieldDiff) string {
	var changes strings.Builder
	for field, d := range diff {
		if len(d.Added) > 0 || len(d.Removed) > 0 {
			changes.WriteString(fmt.Sprintf("<li>%s: +[%s] -[%s]</li>",
				field, strings.Join(d.Added, ", "), strings.Join(d.Removed, ", ")))
			continue
		}
		changes.WriteString(fmt.Sprintf("<li>%s: %v &rarr; %v</li>", field, d.Old, d.New))
	}
	return fmt.Sprintf(`
		<html>
		<body>
			<h2>Card updated</h2>
			<p><strong>%s</strong> (%s)</p>
			<ul>%s</ul>
		</body>
		</html>
	`, card.Title, card.ID, changes.String())
}

func cardClosedBody(card *domain.Card) string {
	return fmt.Sprintf(`
		<html>
		<body>
			<h2>Card closed</h2>
			<p><strong>%s</strong> (%s) has been closed.</p>
		</body>
		</html>
	`, card.Title, card.ID)
}

func messageAddedBody(card *domain.Card, preview string) string {
	return fmt.Sprintf(`
		<html>
		<body>
			<h2>New reply</h2>
			<p><strong>%s</strong> (%s)</p>
			<blockquote>%s</blockquote>
		</body>
		</html>
	`, card.Title, card.ID, preview)
}

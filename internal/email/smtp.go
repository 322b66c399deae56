package email

import (
	"fmt"
	"log/slog"

	mail "github.com/go-mail/mail"
)

// SMTPSender delivers mail over SMTP with STARTTLS negotiation.
//
// Each Send dials a fresh connection. OTP traffic is a handful of messages a
// minute at most, so connection reuse isn't worth the bookkeeping.
type SMTPSender struct {
	host   string
	port   int
	from   string
	user   string
	pass   string
	logger *slog.Logger
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender creates an SMTPSender. from is the From header value, e.g.
// `"HD" <noreply@example.com>`.
func NewSMTPSender(host string, port int, from, user, pass string, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		host:   host,
		port:   port,
		from:   from,
		user:   user,
		pass:   pass,
		logger: logger,
	}
}

// Send delivers a multipart (text + HTML) message to a single recipient.
func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	// Prefer multipart/alternative when both bodies are present
	if textBody != "" {
		m.SetBody("text/plain", textBody)
		if htmlBody != "" {
			m.AddAlternative("text/html", htmlBody)
		}
	} else {
		m.SetBody("text/html", htmlBody)
	}

	d := mail.NewDialer(s.host, s.port, s.user, s.pass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("email: smtp send to %s: %w", to, err)
	}

	s.logger.Debug("email sent",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	return nil
}

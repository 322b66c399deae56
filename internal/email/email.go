// Package email delivers transactional mail (OTP codes) through an injected
// Sender, so the auth service never knows whether mail goes over SMTP or into
// a test fake.
package email

import (
	"fmt"
	"log/slog"
)

// Sender sends a single message. Implementations: SMTPSender for real
// delivery, LogSender for development, fakes in tests.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

// OTPMessage renders the verification email for a code.
func OTPMessage(code string) (subject, htmlBody, textBody string) {
	subject = "Verify your account"
	htmlBody = fmt.Sprintf("<p>Your OTP is: <b>%s</b></p><p>It will expire in 5 minutes.</p>", code)
	textBody = fmt.Sprintf("Your OTP is: %s\nIt will expire in 5 minutes.", code)
	return subject, htmlBody, textBody
}

// LogSender writes outgoing mail to the log instead of delivering it.
// Used when SMTP is not configured, so local development still surfaces the
// codes. Never use in production — the message body contains the OTP.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(to, subject, htmlBody, textBody string) error {
	s.Logger.Info("email delivery skipped (SMTP not configured)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", textBody),
	)
	return nil
}

var _ Sender = (*LogSender)(nil)

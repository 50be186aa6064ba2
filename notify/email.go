package notify

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// EmailSender delivers customer emails through a configured SMTP relay.
// With no SMTP_HOST configured it logs the message and succeeds, so
// development environments don't need a mail server.
type EmailSender struct {
	host     string
	port     string
	username string
	password string
	from     string
	logger   *zap.Logger
}

func NewEmailSender(logger *zap.Logger) *EmailSender {
	return &EmailSender{
		host:     getEnv("SMTP_HOST", ""),
		port:     getEnv("SMTP_PORT", "587"),
		username: getEnv("SMTP_USER", ""),
		password: getEnv("SMTP_PASSWORD", ""),
		from:     getEnv("SMTP_FROM", "orders@storefront.local"),
		logger:   logger,
	}
}

func (e *EmailSender) Send(to, subject, body string) error {
	if e.host == "" {
		e.logger.Info("SMTP not configured, logging email instead",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.String("body", body),
		)
		return nil
	}

	msg := []byte("From: " + e.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := e.host + ":" + e.port
	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}
	if err := smtp.SendMail(addr, auth, e.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

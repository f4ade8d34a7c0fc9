// internal/app/system/mailer/mailer.go
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Email is a fully rendered message ready to send.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer delivers email over SMTP. When no SMTP host is configured it logs
// the message instead so local development works without a mail server.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   *zap.Logger
}

func New(host string, port int, username, password, from string, logger *zap.Logger) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		logger:   logger,
	}
}

// Send delivers the email and reports which method was used ("smtp" or
// "log"). Callers that enqueue email as a background task treat errors as
// retryable.
func (m *Mailer) Send(e Email) (string, error) {
	if m.host == "" {
		m.logger.Info("email (no SMTP configured, logging instead)",
			zap.String("to", e.To),
			zap.String("subject", e.Subject),
			zap.String("body", e.TextBody))
		return "log", nil
	}

	msg := m.buildMessage(e)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	if err := smtp.SendMail(addr, auth, m.from, []string{e.To}, msg); err != nil {
		return "", fmt.Errorf("send email to %s: %w", e.To, err)
	}
	return "smtp", nil
}

// buildMessage assembles a multipart/alternative MIME message so clients can
// pick the HTML or text body.
func (m *Mailer) buildMessage(e Email) []byte {
	const boundary = "corix-mail-boundary"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", e.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", e.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(e.TextBody)
	b.WriteString("\r\n")

	if e.HTMLBody != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		b.WriteString(e.HTMLBody)
		b.WriteString("\r\n")
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String())
}

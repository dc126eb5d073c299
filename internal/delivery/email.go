// Package delivery sends the rendered weekly report out: email as the
// primary channel, telegram as an optional broadcast.
package delivery

import (
	"fmt"
	"mime/quotedprintable"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tinyvc/tinyvc/internal/config"
)

// Mailer sends multipart text+HTML reports over SMTP.
type Mailer struct {
	cfg    config.SMTPConfig
	logger zerolog.Logger
}

// NewMailer creates a Mailer.
func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{
		cfg:    cfg,
		logger: log.With().Str("component", "mailer").Logger(),
	}
}

// Configured reports whether SMTP delivery is set up at all.
func (m *Mailer) Configured() bool {
	return m.cfg.Server != "" && m.cfg.User != "" && m.cfg.Recipient != ""
}

// Send delivers the report as a multipart/alternative message: the raw
// markdown as the text part, the rendered document as the HTML part.
func (m *Mailer) Send(subject, markdownBody, htmlBody string) error {
	if !m.Configured() {
		return fmt.Errorf("smtp not configured")
	}

	msg, err := m.buildMessage(subject, markdownBody, htmlBody)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Server, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Server)
	if err := smtp.SendMail(addr, auth, m.cfg.User, []string{m.cfg.Recipient}, msg); err != nil {
		return fmt.Errorf("sending mail via %s: %w", addr, err)
	}

	m.logger.Info().Str("recipient", m.cfg.Recipient).Str("subject", subject).Msg("report emailed")
	return nil
}

func (m *Mailer) buildMessage(subject, textPart, htmlPart string) ([]byte, error) {
	const boundary = "tinyvc-report-boundary"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.User)
	fmt.Fprintf(&b, "To: %s\r\n", m.cfg.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", textPart},
		{"text/html; charset=utf-8", htmlPart},
	} {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		fmt.Fprintf(&b, "Content-Type: %s\r\n", part.contentType)
		b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")

		qp := quotedprintable.NewWriter(&b)
		if _, err := qp.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("encoding message part: %w", err)
		}
		if err := qp.Close(); err != nil {
			return nil, fmt.Errorf("encoding message part: %w", err)
		}
		b.WriteString("\r\n")
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String()), nil
}

// Package email delivers the digest over SMTP.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host       string
	Port       int
	Sender     string
	Password   string
	Recipients []string
}

func (c Config) Validate() error {
	switch {
	case c.Host == "":
		return errors.New("EMAIL_SMTP is required")
	case c.Sender == "" || c.Password == "":
		return errors.New("email credentials missing")
	case len(c.Recipients) == 0:
		return errors.New("EMAIL_RECIPIENTS is required")
	}
	return nil
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Sender struct {
	cfg    Config
	send   sendFunc
	now    func() time.Time
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Sender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		cfg:    cfg,
		send:   smtp.SendMail,
		now:    time.Now,
		logger: logger.With("component", "email"),
	}
}

func (s *Sender) Name() string { return "email" }

// Deliver sends body as a plain-text message. smtp.SendMail upgrades the
// connection with STARTTLS when the server offers it.
func (s *Sender) Deliver(ctx context.Context, subject, body string) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	auth := smtp.PlainAuth("", s.cfg.Sender, s.cfg.Password, s.cfg.Host)
	msg := BuildMessage(s.cfg.Sender, s.cfg.Recipients, subject, body, s.now())

	if err := s.send(addr, auth, s.cfg.Sender, s.cfg.Recipients, msg); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}
	s.logger.Info("email sent", "recipients", s.cfg.Recipients)
	return nil
}

// BuildMessage renders an RFC 5322 message with a UTF-8 plain-text body.
func BuildMessage(from string, to []string, subject, body string, date time.Time) []byte {
	var b strings.Builder
	header := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}

	header("From", from)
	header("To", strings.Join(to, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")

	body = strings.ReplaceAll(body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// ParseRecipients splits a comma separated address list.
func ParseRecipients(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

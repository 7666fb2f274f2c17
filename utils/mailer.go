package utils

import (
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/cppla/inkwell/config"
)

// ErrMailerDisabled is returned when SMTP has not been configured.
var ErrMailerDisabled = errors.New("smtp not configured")

// Mailer sends plain text email through an SMTP relay.
type Mailer struct {
	cfg config.SMTPSection
}

func NewMailer(cfg config.SMTPSection) *Mailer {
	return &Mailer{cfg: cfg}
}

// Enabled reports whether enough settings are present to send mail.
func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != "" && m.cfg.From != ""
}

// Send delivers one message to a single recipient.
func (m *Mailer) Send(to, subject, body string) error {
	if !m.Enabled() {
		return ErrMailerDisabled
	}
	cfg := m.cfg
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	msg := buildMessage(cfg, to, subject, body)

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	if !cfg.TLS {
		return smtp.SendMail(addr, auth, cfg.From, []string{to}, msg)
	}

	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return err
	}
	// ensure we don't hang forever
	_ = conn.SetDeadline(time.Now().Add(15 * time.Second))
	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
			return err
		}
	}
	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMessage(cfg config.SMTPSection, to, subject, body string) []byte {
	fromName := cfg.FromName
	if fromName == "" {
		fromName = "Inkwell"
	}
	headers := [][2]string{
		{"From", fmt.Sprintf("%s <%s>", mime.BEncoding.Encode("UTF-8", fromName), cfg.From)},
		{"To", to},
		{"Subject", mime.BEncoding.Encode("UTF-8", subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
	}
	var b strings.Builder
	for _, h := range headers {
		b.WriteString(h[0] + ": " + h[1] + "\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

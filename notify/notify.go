// Package notify delivers validation-failure reports to the operator mailbox
// over SMTP with implicit TLS. Delivery is strictly best-effort: every failure
// is logged and swallowed so a broken mail relay can never stall ingestion.
package notify

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/nexabank/bankfeed/logger"
)

// Environment variables carrying the sender credentials. They are loaded from
// .env by the config package before the mailer is built.
const (
	EnvAddress  = "BANKFEED_EMAIL_ADDRESS"
	EnvPassword = "BANKFEED_EMAIL_PASSWORD"
)

// Mailer sends plain-text validation reports.
type Mailer struct {
	host      string
	port      int
	sender    string
	password  string
	recipient string
	enabled   bool
}

// NewMailer builds a mailer from config values and credentials in the
// environment. With enabled=false, or without credentials, Notify degrades to
// a log line.
func NewMailer(host string, port int, recipient string, enabled bool) *Mailer {
	m := &Mailer{
		host:      host,
		port:      port,
		sender:    os.Getenv(EnvAddress),
		password:  os.Getenv(EnvPassword),
		recipient: recipient,
		enabled:   enabled,
	}
	if m.enabled && (m.sender == "" || m.password == "") {
		logger.Warnw("Email notifications enabled but credentials missing, disabling",
			"address_var", EnvAddress, "password_var", EnvPassword)
		m.enabled = false
	}
	return m
}

// Notify reports a failed file to the operator. Best-effort by contract.
func (m *Mailer) Notify(path, report string) {
	if !m.enabled {
		logger.Infow("Validation report (mail disabled)", "path", path)
		return
	}

	msg := buildMessage(m.sender, m.recipient, path, report)
	if err := m.send(msg); err != nil {
		logger.Warnw("Cannot send validation report", "path", path, "error", err)
		return
	}
	logger.Infow("Validation report sent", "path", path, "recipient", m.recipient)
}

func (m *Mailer) send(msg []byte) error {
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.host})
	if err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Quit()

	auth := smtp.PlainAuth("", m.sender, m.password, m.host)
	if err := client.Auth(auth); err != nil {
		return err
	}
	if err := client.Mail(m.sender); err != nil {
		return err
	}
	if err := client.Rcpt(m.recipient); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}

// buildMessage assembles the RFC 5322 message body.
func buildMessage(sender, recipient, path, report string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", sender)
	fmt.Fprintf(&b, "To: %s\r\n", recipient)
	fmt.Fprintf(&b, "Subject: Validation failed: %s\r\n", path)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "The file %s failed validation.\r\n\r\n", path)
	b.WriteString(report)
	b.WriteString("\r\n")
	return []byte(b.String())
}

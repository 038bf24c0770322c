package email

import (
	"crypto/tls"
	"fmt"
	"math/rand"
	"mime"
	"net"
	"net/smtp"
	"time"

	"github.com/opinio-dev/opinio/internal/config"
	"github.com/opinio-dev/opinio/internal/logger"
)

// SMTPTransport sends through an authenticated SMTP relay. Port 465 means
// implicit TLS, anything else STARTTLS.
type SMTPTransport struct {
	config *config.Smtp
	auth   smtp.Auth
}

func NewSMTPTransport(cfg *config.Smtp) *SMTPTransport {
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Server)
	return &SMTPTransport{config: cfg, auth: auth}
}

// Configured reports whether credentials were provided; an unconfigured
// transport is skipped when assembling the gateway.
func (t *SMTPTransport) Configured() bool {
	return t.config.Username != "" && t.config.Password != ""
}

func (t *SMTPTransport) Name() string { return "smtp" }

func (t *SMTPTransport) Send(msg Message) error {
	raw := t.buildMessage(msg)
	address := fmt.Sprintf("%s:%d", t.config.Server, t.config.Port)

	if t.config.Port == 465 {
		return t.sendImplicitTLS(address, msg.Recipient, raw)
	}
	return t.sendSTARTTLS(address, msg.Recipient, raw)
}

func (t *SMTPTransport) timeout() time.Duration {
	timeout := time.Duration(t.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return timeout
}

// sendImplicitTLS sends email over a connection that is TLS from the start (port 465).
func (t *SMTPTransport) sendImplicitTLS(address, recipient string, msg []byte) error {
	tlsConfig := &tls.Config{ServerName: t.config.Server}

	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: t.timeout()}, "tcp", address, tlsConfig)
	if err != nil {
		logger.Log.Error("failed to connect to SMTP server (implicit TLS)", "address", address, "error", err)
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, t.config.Server)
	if err != nil {
		logger.Log.Error("failed to create SMTP client", "error", err)
		return err
	}
	defer client.Close()

	return t.sendViaClient(client, recipient, msg)
}

// sendSTARTTLS sends email by upgrading a plain connection to TLS (port 587).
func (t *SMTPTransport) sendSTARTTLS(address, recipient string, msg []byte) error {
	conn, err := net.DialTimeout("tcp", address, t.timeout())
	if err != nil {
		logger.Log.Error("failed to connect to SMTP server", "address", address, "error", err)
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, t.config.Server)
	if err != nil {
		logger.Log.Error("failed to create SMTP client", "error", err)
		return err
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: t.config.Server}
	if err = client.StartTLS(tlsConfig); err != nil {
		logger.Log.Error("failed to start TLS", "error", err)
		return err
	}

	return t.sendViaClient(client, recipient, msg)
}

// sendViaClient performs auth, sets sender/recipient, and sends the message body.
func (t *SMTPTransport) sendViaClient(client *smtp.Client, recipient string, msg []byte) error {
	if err := client.Auth(t.auth); err != nil {
		logger.Log.Error("SMTP authentication failed", "error", err)
		return err
	}

	if err := client.Mail(t.config.Username); err != nil {
		logger.Log.Error("failed to set sender", "error", err)
		return err
	}

	if err := client.Rcpt(recipient); err != nil {
		logger.Log.Error("failed to set recipient", "recipient", recipient, "error", err)
		return err
	}

	w, err := client.Data()
	if err != nil {
		logger.Log.Error("failed to get data writer", "error", err)
		return err
	}

	if _, err = w.Write(msg); err != nil {
		logger.Log.Error("failed to write message", "error", err)
		return err
	}

	if err = w.Close(); err != nil {
		logger.Log.Error("failed to close data writer", "error", err)
		return err
	}

	return client.Quit()
}

func generateMessageID(domain string) string {
	t := time.Now().UnixNano()
	pid := rand.Int63()
	return fmt.Sprintf("<%d.%d@%s>", t, pid, domain)
}

const altBoundary = "opinio-alt-boundary"

func (t *SMTPTransport) buildMessage(msg Message) []byte {
	encodedSubject := mime.QEncoding.Encode("utf-8", msg.Subject)
	encodedSenderName := mime.QEncoding.Encode("utf-8", t.config.SenderName)

	msgID := generateMessageID(t.config.Server)
	date := time.Now().Format(time.RFC1123Z)

	return fmt.Appendf(nil,
		"Message-ID: %s\r\n"+
			"Date: %s\r\n"+
			"To: %s\r\n"+
			"From: %s <%s>\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: multipart/alternative; boundary=\"%s\"\r\n"+
			"\r\n"+
			"--%s\r\n"+
			"Content-Type: text/plain; charset=\"utf-8\"\r\n"+
			"\r\n"+
			"%s\r\n"+
			"--%s\r\n"+
			"Content-Type: text/html; charset=\"utf-8\"\r\n"+
			"\r\n"+
			"%s\r\n"+
			"--%s--\r\n",
		msgID, date, msg.Recipient, encodedSenderName, t.config.Username, encodedSubject,
		altBoundary, altBoundary, msg.Text, altBoundary, msg.HTML, altBoundary,
	)
}

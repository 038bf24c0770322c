// Package email delivers one-time codes to administrators. Transports are
// tried in priority order: authenticated SMTP, then the transactional HTTP
// API, then (outside production) a console fallback for development.
package email

import (
	"fmt"
	"net/http"

	"github.com/opinio-dev/opinio/internal/domain"
	internal_errors "github.com/opinio-dev/opinio/internal/errors"
	"github.com/opinio-dev/opinio/internal/logger"
)

// Message is a rendered email ready for any transport.
type Message struct {
	Recipient string
	Subject   string
	Text      string
	HTML      string
}

type Transport interface {
	Name() string
	Send(msg Message) error
}

type Gateway struct {
	transports []Transport
}

func NewGateway(transports ...Transport) *Gateway {
	return &Gateway{transports: transports}
}

// Deliver renders the OTP email and sends it through the first transport
// that succeeds. Every transport failure is logged; if all fail the caller
// gets a delivery error and the surrounding request fails.
func (g *Gateway) Deliver(email, code string, context domain.OtpContext, expiryMinutes int) error {
	msg := renderOtpMessage(email, code, context, expiryMinutes)

	for _, t := range g.transports {
		err := t.Send(msg)
		if err == nil {
			logger.Log.Info("otp delivered", "transport", t.Name(), "context", string(context))
			return nil
		}
		logger.Log.Error("otp delivery failed", "transport", t.Name(), "error", err)
	}

	return &internal_errors.ErrorWithStatusCode{
		Message:    "Failed to deliver verification code",
		StatusCode: http.StatusInternalServerError,
	}
}

func renderOtpMessage(email, code string, context domain.OtpContext, expiryMinutes int) Message {
	action := "admin login"
	if context == domain.OtpContextReset {
		action = "password reset"
	}

	subject := fmt.Sprintf("Your Opinio admin %s code", string(context))
	text := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, expiryMinutes)
	html := fmt.Sprintf(`<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <h2>Opinio - Verification Code</h2>
      <p>Hello,</p>
      <p>Your verification code for %s is:</p>
      <div style="background-color: #f3f4f6; border-radius: 8px; padding: 20px; margin: 20px 0; text-align: center;">
        <h1 style="letter-spacing: 2px; margin: 0;">%s</h1>
      </div>
      <p><strong>This code expires in %d minutes.</strong></p>
      <p style="color: #666; font-size: 14px;">If you didn't request this code, please ignore this email.</p>
    </div>
  </body>
</html>`, action, code, expiryMinutes)

	return Message{Recipient: email, Subject: subject, Text: text, HTML: html}
}

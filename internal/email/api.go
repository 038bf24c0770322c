package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opinio-dev/opinio/internal/config"
	"github.com/opinio-dev/opinio/internal/logger"
)

const defaultAPIURL = "https://api.brevo.com/v3/smtp/email"

// APITransport posts through a Brevo-style transactional email API.
type APITransport struct {
	config *config.EmailAPI
	client *http.Client
}

func NewAPITransport(cfg *config.EmailAPI) *APITransport {
	return &APITransport{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *APITransport) Configured() bool {
	return t.config.Key != "" && t.config.Sender != ""
}

func (t *APITransport) Name() string { return "email_api" }

type apiRecipient struct {
	Email string `json:"email"`
}

type apiSender struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type apiPayload struct {
	Sender      apiSender      `json:"sender"`
	To          []apiRecipient `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	TextContent string         `json:"textContent"`
}

func (t *APITransport) Send(msg Message) error {
	payload := apiPayload{
		Sender:      apiSender{Name: t.config.SenderName, Email: t.config.Sender},
		To:          []apiRecipient{{Email: msg.Recipient}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
		TextContent: msg.Text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	url := t.config.URL
	if url == "" {
		url = defaultAPIURL
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", t.config.Key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		// keep the response small; it only lands in our own logs
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Log.Error("email API rejected message", "status", resp.StatusCode, "body", string(detail))
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}

	return nil
}

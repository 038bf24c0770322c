package email

import "github.com/opinio-dev/opinio/internal/logger"

// ConsoleTransport surfaces the message through the operational log.
// Development only: setup never wires it when environment is production.
type ConsoleTransport struct{}

func NewConsoleTransport() *ConsoleTransport { return &ConsoleTransport{} }

func (t *ConsoleTransport) Name() string { return "console" }

func (t *ConsoleTransport) Send(msg Message) error {
	logger.Log.Info("[DEV] email fallback", "to", msg.Recipient, "subject", msg.Subject, "body", msg.Text)
	return nil
}

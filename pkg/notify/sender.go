package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/leadflowhq/leadflow/pkg/logger"
	"github.com/leadflowhq/leadflow/pkg/models"
)

// Sender delivers composed messages.
// If a SendGrid API key is configured and the recipient looks like an email
// address, delivery goes through SendGrid. Otherwise the message is logged
// (development mode, or phone-handle recipients awaiting an SMS provider).
type Sender struct {
	fromEmail   string
	fromName    string
	sendGridKey string
	logger      logger.Logger
}

// NewSender creates a new notification sender
func NewSender(fromEmail, fromName, sendGridAPIKey string, log logger.Logger) *Sender {
	if sendGridAPIKey == "" {
		log.Warn("notification sender in console-only mode, set SENDGRID_API_KEY for production")
	}
	return &Sender{
		fromEmail:   fromEmail,
		fromName:    fromName,
		sendGridKey: sendGridAPIKey,
		logger:      log,
	}
}

// Send delivers a message to the recipient
func (s *Sender) Send(ctx context.Context, recipient string, msg models.Message) error {
	if recipient == "" {
		return fmt.Errorf("recipient cannot be empty")
	}

	if s.sendGridKey != "" && strings.Contains(recipient, "@") {
		return s.sendViaSendGrid(recipient, msg)
	}

	s.logger.Info("notification delivered to console",
		"recipient", recipient,
		"subject", msg.Subject,
	)
	return nil
}

func (s *Sender) sendViaSendGrid(toEmail string, msg models.Message) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", toEmail)

	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, "")

	client := sendgrid.NewSendClient(s.sendGridKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned error status: %d", response.StatusCode)
	}

	s.logger.Debug("email sent", "to", toEmail, "status", response.StatusCode)
	return nil
}

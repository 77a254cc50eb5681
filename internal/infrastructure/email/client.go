// Package email provides the email client for sending transactional emails.
package email

import (
	"fmt"

	"github.com/resendlabs/resend-go"

	"github.com/hall-dev/halldev-go/internal/infrastructure/email/templates"
)

// Service defines the interface for sending emails, allowing for mock implementations in tests.
type Service interface {
	SendContactConfirmation(toEmail, name, message string) error
	SendConversationExport(toEmail string, messages []templates.ExportMessage) error
}

// ResendClient is the concrete implementation of the email Service using the Resend API.
type ResendClient struct {
	client    *resend.Client
	fromEmail string
	fromName  string
}

// NewService creates a new email service client, returning the Service interface.
func NewService(apiKey, fromEmail, fromName string) (Service, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	return &ResendClient{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

// SendContactConfirmation acknowledges a contact form submission.
func (c *ResendClient) SendContactConfirmation(toEmail, name, message string) error {
	content := templates.GetContactConfirmationContent(templates.ContactConfirmationProps{
		Name:    name,
		Message: message,
	})

	return c.send(toEmail, "We received your message", content)
}

// SendConversationExport delivers a chat transcript to the visitor.
func (c *ResendClient) SendConversationExport(toEmail string, messages []templates.ExportMessage) error {
	content := templates.GetConversationExportContent(templates.ConversationExportProps{
		Messages: messages,
	})

	return c.send(toEmail, "Your conversation transcript", content)
}

func (c *ResendClient) send(toEmail, subject, content string) error {
	htmlContent := templates.GetEmailLayout(templates.EmailLayoutProps{
		Content: content,
	})

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{toEmail},
		Subject: subject,
		Html:    htmlContent,
	}

	_, err := c.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	return nil
}

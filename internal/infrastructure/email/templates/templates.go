// Package templates provides HTML content for transactional emails.
package templates

import (
	"fmt"
	"html"
	"strings"
)

// EmailLayoutProps configures the shared email shell
type EmailLayoutProps struct {
	Content string
}

// GetEmailLayout wraps content in the shared HTML shell
func GetEmailLayout(props EmailLayoutProps) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background-color:#0a0a0a;font-family:Arial,Helvetica,sans-serif;">
  <table role="presentation" width="100%%" cellpadding="0" cellspacing="0">
    <tr><td align="center" style="padding:32px 16px;">
      <table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background-color:#141414;border-radius:8px;">
        <tr><td style="padding:24px 32px;border-bottom:1px solid #2a2a2a;">
          <span style="color:#00e5a0;font-size:20px;font-weight:bold;">/-HALL-DEV</span>
        </td></tr>
        <tr><td style="padding:32px;color:#e0e0e0;font-size:15px;line-height:1.6;">
          %s
        </td></tr>
        <tr><td style="padding:16px 32px;border-top:1px solid #2a2a2a;color:#707070;font-size:12px;">
          You are receiving this email because you interacted with hall-dev.com.
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`, props.Content)
}

// ContactConfirmationProps configures the contact confirmation email
type ContactConfirmationProps struct {
	Name    string
	Message string
}

// GetContactConfirmationContent builds the body for the confirmation
// sent after a contact form submission
func GetContactConfirmationContent(props ContactConfirmationProps) string {
	name := props.Name
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`
<h2 style="color:#ffffff;margin-top:0;">Thanks for reaching out, %s</h2>
<p>We received your message and will get back to you shortly.</p>
<blockquote style="border-left:3px solid #00e5a0;margin:16px 0;padding:8px 16px;color:#b0b0b0;">%s</blockquote>
<p>In the meantime, feel free to keep exploring the site or chat with our assistant.</p>`,
		html.EscapeString(name), html.EscapeString(props.Message))
}

// ConversationExportProps configures the conversation transcript email
type ConversationExportProps struct {
	Messages []ExportMessage
}

// ExportMessage is one transcript row in a conversation export email
type ExportMessage struct {
	Role    string
	Content string
}

// GetConversationExportContent renders a chat transcript for email delivery
func GetConversationExportContent(props ConversationExportProps) string {
	var sb strings.Builder
	sb.WriteString(`<h2 style="color:#ffffff;margin-top:0;">Your conversation transcript</h2>`)
	for _, msg := range props.Messages {
		label := "Assistant"
		color := "#00e5a0"
		if msg.Role == "user" {
			label = "You"
			color = "#6ab0ff"
		}
		sb.WriteString(fmt.Sprintf(
			`<p><strong style="color:%s;">%s:</strong> %s</p>`,
			color, label, html.EscapeString(msg.Content)))
	}
	return sb.String()
}

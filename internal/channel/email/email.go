// Package email is the SMTP delivery channel. Transport failures are
// captured into a structured Result and never escape as Go errors.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"

	"notification-service/internal/common/config"
	"notification-service/internal/common/logger"
	"notification-service/internal/models"
)

// Result is the structured outcome of one send attempt.
type Result struct {
	Success   bool
	Status    models.DeliveryStatus
	MessageID string
	Error     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Channel struct {
	config   config.SMTPConfig
	log      logger.Logger
	sendMail sendFunc
}

func NewChannel(cfg config.SMTPConfig, log logger.Logger) *Channel {
	c := &Channel{
		config: cfg,
		log:    log.WithFields(map[string]interface{}{"channel": "email"}),
	}
	c.sendMail = c.defaultSend
	return c
}

// Send delivers one rendered email. Missing or malformed addresses
// fail closed before the transport is dialed; exactly one SMTP call
// is made otherwise, with no retry.
func (c *Channel) Send(ctx context.Context, to, from, subject, htmlBody string) Result {
	if strings.TrimSpace(to) == "" {
		return failure("Recipient email address is missing")
	}
	if strings.TrimSpace(from) == "" {
		return failure("Sender email address is missing")
	}
	if !isValidEmail(to) {
		return failure(fmt.Sprintf("invalid 'to' email address: %s", to))
	}
	if !isValidEmail(from) {
		return failure(fmt.Sprintf("invalid 'from' email address: %s", from))
	}

	if err := ctx.Err(); err != nil {
		return failure(fmt.Sprintf("context cancelled before sending email: %v", err))
	}

	message := c.buildMessage(to, from, subject, htmlBody)
	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)

	var auth smtp.Auth
	if c.config.Username != "" && c.config.Password != "" {
		auth = smtp.PlainAuth("", c.config.Username, c.config.Password, c.config.Host)
	}

	if err := c.sendMail(addr, auth, from, []string{to}, []byte(message)); err != nil {
		c.log.Error("email send failed", map[string]interface{}{
			"to":    to,
			"error": err.Error(),
		})
		return failure(err.Error())
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), c.config.Host)
	c.log.Info("email sent", map[string]interface{}{
		"to":        to,
		"messageId": messageID,
	})

	return Result{
		Success:   true,
		Status:    models.StatusDelivered,
		MessageID: messageID,
	}
}

func failure(reason string) Result {
	return Result{
		Success: false,
		Status:  models.StatusFailed,
		Error:   reason,
	}
}

func (c *Channel) defaultSend(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	if c.config.UseTLS {
		return c.sendWithTLS(addr, auth, from, to, msg)
	}
	return smtp.SendMail(addr, auth, from, to, msg)
}

func (c *Channel) buildMessage(to, from, subject, htmlBody string) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("From: %s\r\n", from))
	builder.WriteString(fmt.Sprintf("To: %s\r\n", to))
	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(htmlBody)

	return builder.String()
}

func (c *Channel) sendWithTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{
		ServerName: c.config.Host,
	}

	if err = client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	for _, rcpt := range to {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}

	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

func isValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	if len(parts[0]) == 0 || len(parts[1]) == 0 {
		return false
	}
	if !strings.Contains(parts[1], ".") {
		return false
	}
	return true
}

// TestConnection dials the SMTP server and quits, verifying the
// channel configuration at startup.
func (c *Channel) TestConnection(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if c.config.UseTLS {
		tlsConfig := &tls.Config{
			ServerName: c.config.Host,
		}
		if err = client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	return client.Quit()
}

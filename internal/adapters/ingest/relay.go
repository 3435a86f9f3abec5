package ingest

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// SMTPRelay forwards mail to the next MTA over plain SMTP
type SMTPRelay struct {
	addr    string
	timeout time.Duration
	logger  *zap.Logger
}

// NewSMTPRelay creates a relay to host:port
func NewSMTPRelay(host string, port int, logger *zap.Logger) *SMTPRelay {
	return &SMTPRelay{
		addr:    net.JoinHostPort(host, fmt.Sprint(port)),
		timeout: 30 * time.Second,
		logger:  logger,
	}
}

// Send delivers data to the recipients the next hop accepts. It fails only when
// every recipient is refused.
func (r *SMTPRelay) Send(from string, to []string, data []byte) error {
	// Get hostname for EHLO
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	// Connect to the next hop with a timeout
	conn, err := net.DialTimeout("tcp", r.addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}
	// Bound the whole transaction
	if err := conn.SetDeadline(time.Now().Add(r.timeout)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set relay deadline: %w", err)
	}

	// Create a client
	c := smtp.NewClient(conn)
	defer c.Close()

	// Send EHLO
	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	// Set the sender
	if err := c.Mail(from, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	// Set the recipients
	accepted := 0
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt, nil); err != nil {
			r.logger.Warn("Relay refused recipient", zap.String("recipient", rcpt), zap.Error(err))
			// Keep going, the other recipients may still be accepted
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return fmt.Errorf("all recipients were rejected")
	}

	// Send the message data
	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	// Quit the connection
	if err := c.Quit(); err != nil {
		// The message is already accepted at this point
		r.logger.Warn("QUIT failed", zap.Error(err))
	}
	return nil
}

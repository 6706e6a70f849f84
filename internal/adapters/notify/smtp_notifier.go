package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"os"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/mikey/sms-guard/internal/core"
	"go.uber.org/zap"
)

// SMTPNotifier delivers notifications as email through an SMTP relay
type SMTPNotifier struct {
	address  string
	from     string
	to       string
	username string
	password string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSMTPNotifier creates a new SMTP notifier
func NewSMTPNotifier(address, from, to, username, password string, logger *zap.Logger) (*SMTPNotifier, error) {
	if to == "" {
		return nil, fmt.Errorf("smtp notifier requires a recipient")
	}
	return &SMTPNotifier{
		address:  address,
		from:     from,
		to:       to,
		username: username,
		password: password,
		timeout:  30 * time.Second,
		logger:   logger.Named("smtp-notify"),
	}, nil
}

// EnsureChannel is a no-op; mail has no channel registry
func (n *SMTPNotifier) EnsureChannel(context.Context, core.NotificationChannel) error {
	return nil
}

// Post sends the notification. Intrusive channels are sent with high priority headers.
func (n *SMTPNotifier) Post(ctx context.Context, notification core.Notification) error {
	msg := n.compose(notification)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", n.address)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP relay: %w", err)
	}

	deadline := time.Now().Add(n.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if n.username != "" {
		if err := c.Auth(sasl.NewPlainClient("", n.username, n.password)); err != nil {
			return fmt.Errorf("AUTH failed: %w", err)
		}
	}

	if err := c.Mail(n.from, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := c.Rcpt(n.to, nil); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(msg); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send notification data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		n.logger.Warn("QUIT command failed", zap.Error(err))
	}

	n.logger.Debug("Notification mailed",
		zap.Int32("id", notification.ID),
		zap.String("channel", notification.Channel.ID))
	return nil
}

func (n *SMTPNotifier) compose(notification core.Notification) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", n.from)
	fmt.Fprintf(&buf, "To: %s\r\n", n.to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", notification.Title))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "X-SMS-Guard-Notification-ID: %d\r\n", notification.ID)
	fmt.Fprintf(&buf, "X-SMS-Guard-Channel: %s\r\n", notification.Channel.ID)
	if notification.Channel.Intrusive {
		fmt.Fprintf(&buf, "X-Priority: 1\r\n")
		fmt.Fprintf(&buf, "Importance: high\r\n")
	}
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=utf-8\r\n")
	fmt.Fprintf(&buf, "Content-Transfer-Encoding: 8bit\r\n")
	fmt.Fprintf(&buf, "\r\n")
	fmt.Fprintf(&buf, "%s\r\n", notification.Body)
	return buf.Bytes()
}

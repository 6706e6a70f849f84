package gateway

import (
	"bytes"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/sms-guard/internal/ports"
	"github.com/mikey/sms-guard/internal/receiver"
	"go.uber.org/zap"
)

// SenderHeader carries the original SMS sender when an email-to-SMS bridge sets it
const SenderHeader = "X-SMS-Sender"

// SMTPGateway accepts text messages relayed by an email-to-SMS bridge
type SMTPGateway struct {
	receiver   ports.BatchReceiver
	logger     *zap.Logger
	listenAddr string
	server     *smtp.Server
}

// NewSMTPGateway creates a new SMTP gateway
func NewSMTPGateway(r ports.BatchReceiver, logger *zap.Logger, listenAddr string) *SMTPGateway {
	return &SMTPGateway{
		receiver:   r,
		logger:     logger.Named("smtp-gateway"),
		listenAddr: listenAddr,
	}
}

// Name implements ports.Gateway
func (g *SMTPGateway) Name() string {
	return "smtp"
}

// Start starts the SMTP server in the background
func (g *SMTPGateway) Start() error {
	g.server = smtp.NewServer(&smtpBackend{gateway: g})

	g.server.Addr = g.listenAddr
	g.server.Domain = "localhost"
	g.server.ReadTimeout = 30 * time.Second
	g.server.WriteTimeout = 30 * time.Second
	g.server.MaxMessageBytes = 1024 * 1024
	g.server.MaxRecipients = 50
	g.server.AllowInsecureAuth = true

	g.logger.Info("SMTP gateway starting", zap.String("address", g.listenAddr))

	go func() {
		if err := g.server.ListenAndServe(); err != nil && err != smtp.ErrServerClosed {
			g.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the SMTP server
func (g *SMTPGateway) Stop() error {
	if g.server != nil {
		return g.server.Close()
	}
	return nil
}

// toBatch converts a relayed email into a message batch
func (g *SMTPGateway) toBatch(envelopeFrom string, raw []byte) (receiver.Batch, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return receiver.Batch{}, fmt.Errorf("failed to parse email message: %w", err)
	}

	sender := strings.TrimSpace(decodeHeader(msg.Header.Get(SenderHeader)))
	if sender == "" {
		sender = localPart(envelopeFrom)
	}

	text, err := extractText(msg)
	if err != nil {
		return receiver.Batch{}, fmt.Errorf("failed to extract text content: %w", err)
	}

	receivedAt := time.Now()
	if date, err := msg.Header.Date(); err == nil {
		receivedAt = date
	}

	return receiver.NewTextBatch(sender, strings.TrimRight(text, "\r\n "), receivedAt), nil
}

func localPart(address string) string {
	if at := strings.LastIndexByte(address, '@'); at >= 0 {
		return address[:at]
	}
	return address
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	gateway *SMTPGateway
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{gateway: b.gateway}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	gateway *SMTPGateway
	from    string
}

func (s *smtpSession) Reset() {
	s.from = ""
}

func (s *smtpSession) Logout() error {
	return nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *smtpSession) Rcpt(_ string, _ *smtp.RcptOptions) error {
	return nil
}

// Data hands the message to the receiver and acknowledges it without waiting for triage
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.gateway.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	batch, err := s.gateway.toBatch(s.from, raw)
	if err != nil {
		s.gateway.logger.Warn("Rejecting relayed message", zap.Error(err))
		return &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Malformed message",
		}
	}

	logger := s.gateway.logger
	s.gateway.receiver.Receive(batch, receiver.CompletionFunc(func() {
		logger.Debug("Relayed message finished", zap.String("sender", batch.Sender))
	}))
	return nil
}

package ports

import (
	"github.com/mikey/sms-guard/internal/receiver"
)

// Gateway is an inbound boundary that feeds message batches to the receiver
type Gateway interface {
	// Name identifies the gateway in logs
	Name() string

	// Start starts accepting messages
	Start() error

	// Stop stops accepting messages
	Stop() error
}

// BatchReceiver accepts raw message batches from a gateway
type BatchReceiver interface {
	// Receive acknowledges the batch immediately and finishes completion when triage ends
	Receive(batch receiver.Batch, completion receiver.Completion)
}

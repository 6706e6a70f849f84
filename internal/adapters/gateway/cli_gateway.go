package gateway

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mikey/sms-guard/internal/core"
	"github.com/mikey/sms-guard/internal/receiver"
	"go.uber.org/zap"
)

// CLIGateway triages a single message from the command line and prints the outcome
type CLIGateway struct {
	triager receiver.Triager
	out     io.Writer
	logger  *zap.Logger
	verbose bool
}

// NewCLIGateway creates a new CLI gateway
func NewCLIGateway(triager receiver.Triager, out io.Writer, logger *zap.Logger, verbose bool) *CLIGateway {
	return &CLIGateway{
		triager: triager,
		out:     out,
		logger:  logger,
		verbose: verbose,
	}
}

// Name implements ports.Gateway
func (g *CLIGateway) Name() string {
	return "cli"
}

// Start is a no-op for the CLI gateway
func (g *CLIGateway) Start() error {
	return nil
}

// Stop is a no-op for the CLI gateway
func (g *CLIGateway) Stop() error {
	return nil
}

// ProcessBatch assembles the batch, triages it to completion and prints the decision
func (g *CLIGateway) ProcessBatch(ctx context.Context, batch receiver.Batch) (core.TriageDecision, error) {
	msg, err := receiver.Assemble(batch)
	if err != nil {
		return core.TriageDecision{}, err
	}

	g.logger.Debug("Processing message", zap.String("sender", msg.Sender))

	fmt.Fprintf(g.out, "\n=== Message Summary ===\n")
	fmt.Fprintf(g.out, "From: %s\n", msg.Sender)
	fmt.Fprintf(g.out, "Fragments: %d\n", len(batch.Fragments))
	fmt.Fprintf(g.out, "Body length: %d characters\n", len([]rune(msg.Body)))
	if g.verbose {
		fmt.Fprintf(g.out, "\nBody:\n%s\n", msg.Body)
	}

	fmt.Fprintf(g.out, "\n=== Triage ===\n")
	start := time.Now()
	decision, err := g.triager.Triage(ctx, msg)
	if err != nil {
		g.logger.Error("Failed to triage message", zap.Error(err))
		fmt.Fprintf(g.out, "Error: %v\n", err)
		return core.TriageDecision{}, err
	}

	fmt.Fprintf(g.out, "Decision: %s\n", decision)
	fmt.Fprintf(g.out, "Spam score: %.4f\n", decision.SpamScore)
	fmt.Fprintf(g.out, "Ham score: %.4f\n", decision.HamScore)
	if decision.FailOpen {
		fmt.Fprintf(g.out, "Classifier unavailable, delivered as normal\n")
	}
	fmt.Fprintf(g.out, "Processing time: %v\n", time.Since(start))

	return decision, nil
}

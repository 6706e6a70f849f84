package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mikey/sms-guard/internal/adapters/gateway"
	"github.com/mikey/sms-guard/internal/adapters/store"
	"github.com/mikey/sms-guard/internal/core"
	"github.com/mikey/sms-guard/internal/di"
	"github.com/mikey/sms-guard/internal/receiver"
	"go.uber.org/zap"
)

func main() {
	flags, err := di.ParseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if flags.Sender == "" {
		fmt.Fprintln(os.Stderr, "Error: -sender is required")
		os.Exit(2)
	}

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run triages the message named by the flags and prints the decision
func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	service *core.TriageService,
	st *store.SQLStore,
) error {
	defer logger.Sync()
	defer st.Stop()
	defer service.Stop()

	body, err := readBody(flags)
	if err != nil {
		return err
	}

	cli := gateway.NewCLIGateway(service, os.Stdout, logger, flags.Verbose)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	_, err = cli.ProcessBatch(ctx, receiver.NewTextBatch(flags.Sender, body, time.Now()))
	return err
}

// readBody returns the message body from the flag, the input file or stdin
func readBody(flags *di.CLIFlags) (string, error) {
	if flags.Body != "" {
		return flags.Body, nil
	}

	var (
		data []byte
		err  error
	)
	if flags.InputFile != "" {
		data, err = os.ReadFile(flags.InputFile)
		if err != nil {
			return "", fmt.Errorf("failed to read message file: %w", err)
		}
	} else {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read message from stdin: %w", err)
		}
	}

	return strings.TrimRight(string(data), "\r\n"), nil
}

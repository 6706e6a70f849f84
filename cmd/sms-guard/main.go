package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikey/sms-guard/internal/adapters/events"
	"github.com/mikey/sms-guard/internal/adapters/store"
	"github.com/mikey/sms-guard/internal/core"
	"github.com/mikey/sms-guard/internal/delivery"
	"github.com/mikey/sms-guard/internal/di"
	"github.com/mikey/sms-guard/internal/ports"
	"github.com/mikey/sms-guard/internal/receiver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	gateways []ports.Gateway,
	recv *receiver.Receiver,
	service *core.TriageService,
	debounce core.DebounceCache,
	st *store.SQLStore,
	hub *events.Hub,
	sink *delivery.Sink,
) error {
	defer logger.Sync()

	// Create the notification channels up front; failures are retried on first use
	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 10*time.Second)
	if err := sink.Channels().EnsureAll(setupCtx); err != nil {
		logger.Warn("Failed to create notification channels", zap.Error(err))
	}
	cancelSetup()

	if len(gateways) == 0 {
		logger.Warn("No gateways enabled, messages can only arrive through the API")
	}

	// Start the gateways
	var startGroup errgroup.Group
	for _, gw := range gateways {
		gw := gw
		startGroup.Go(func() error {
			if err := gw.Start(); err != nil {
				return fmt.Errorf("failed to start %s gateway: %w", gw.Name(), err)
			}
			return nil
		})
	}
	if err := startGroup.Wait(); err != nil {
		logger.Error("Failed to start gateways", zap.Error(err))
		stopGateways(logger, gateways)
		return err
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info("Shutting down...")

	stopGateways(logger, gateways)

	// Let accepted batches run to completion before tearing down their collaborators
	recv.Wait()
	service.Stop()

	// Stop the debounce cache if needed
	if stopper, ok := debounce.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	hub.Close()
	st.Stop()

	logger.Info("Shutdown complete")
	return nil
}

// stopGateways stops all gateways concurrently and logs failures
func stopGateways(logger *zap.Logger, gateways []ports.Gateway) {
	var g errgroup.Group
	for _, gw := range gateways {
		gw := gw
		g.Go(func() error {
			if err := gw.Stop(); err != nil {
				logger.Error("Failed to stop gateway", zap.String("gateway", gw.Name()), zap.Error(err))
				return err
			}
			return nil
		})
	}
	_ = g.Wait()
}

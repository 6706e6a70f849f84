package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/sms-guard/internal/adapters/events"
	"github.com/mikey/sms-guard/internal/adapters/store"
	"github.com/mikey/sms-guard/internal/config"
	"github.com/mikey/sms-guard/internal/core"
	"github.com/mikey/sms-guard/internal/delivery"
	"github.com/mikey/sms-guard/internal/factory"
	"github.com/mikey/sms-guard/internal/logging"
	"github.com/mikey/sms-guard/internal/ports"
	"github.com/mikey/sms-guard/internal/receiver"
	"github.com/mikey/sms-guard/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideTriage(container); err != nil {
		return nil, err
	}

	// Register gateways
	if err := container.Provide(factory.NewGatewayFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.GatewayFactory, r *receiver.Receiver) []ports.Gateway {
		return f.CreateGateways(r)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideTriage registers everything between the receiver and the collaborators.
// It expects *config.Config and *zap.Logger to be provided already.
func provideTriage(container *dig.Container) error {
	// Register factories
	for _, ctor := range []interface{}{
		utils.NewTextProcessor,
		factory.NewClassifierFactory,
		factory.NewDebounceFactory,
		factory.NewStoreFactory,
		factory.NewDeliveryFactory,
	} {
		if err := container.Provide(ctor); err != nil {
			return err
		}
	}

	// Register classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return err
	}

	// Register debounce cache
	if err := container.Provide(func(f *factory.DebounceFactory) (core.DebounceCache, error) {
		return f.CreateDebounceCache()
	}); err != nil {
		return err
	}

	// Register policy
	if err := container.Provide(func(f *factory.ClassifierFactory, debounce core.DebounceCache) *core.Policy {
		return f.CreatePolicy(debounce)
	}); err != nil {
		return err
	}

	// Register store
	if err := container.Provide(func(f *factory.StoreFactory) (*store.SQLStore, error) {
		return f.CreateStore()
	}); err != nil {
		return err
	}

	// Register notifier and live event hub
	if err := container.Provide(func(f *factory.DeliveryFactory) (core.Notifier, error) {
		return f.CreateNotifier()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.DeliveryFactory) (*events.Hub, error) {
		return f.CreateEventHub()
	}); err != nil {
		return err
	}

	// Register delivery sink
	if err := container.Provide(func(
		f *factory.DeliveryFactory,
		df *factory.DebounceFactory,
		st *store.SQLStore,
		notifier core.Notifier,
		hub *events.Hub,
	) (*delivery.Sink, error) {
		window, err := df.Window()
		if err != nil {
			return nil, err
		}
		return f.CreateSink(st, notifier, hub, window), nil
	}); err != nil {
		return err
	}

	// Register triage service
	if err := container.Provide(func(
		classifier core.Classifier,
		policy *core.Policy,
		sink *delivery.Sink,
		logger *zap.Logger,
	) *core.TriageService {
		return core.NewTriageService(classifier, policy, sink, logger)
	}); err != nil {
		return err
	}

	// Register receiver
	if err := container.Provide(func(service *core.TriageService, logger *zap.Logger) *receiver.Receiver {
		return receiver.NewReceiver(service, logger)
	}); err != nil {
		return err
	}

	return nil
}

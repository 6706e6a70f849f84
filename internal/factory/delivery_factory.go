package factory

import (
	"fmt"
	"os"
	"time"

	"github.com/mikey/sms-guard/internal/adapters/alert"
	"github.com/mikey/sms-guard/internal/adapters/events"
	"github.com/mikey/sms-guard/internal/adapters/notify"
	"github.com/mikey/sms-guard/internal/adapters/store"
	"github.com/mikey/sms-guard/internal/config"
	"github.com/mikey/sms-guard/internal/core"
	"github.com/mikey/sms-guard/internal/delivery"
	"go.uber.org/zap"
)

// DeliveryFactory creates the delivery sink and its collaborators
type DeliveryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewDeliveryFactory creates a new delivery factory
func NewDeliveryFactory(cfg *config.Config, logger *zap.Logger) *DeliveryFactory {
	return &DeliveryFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateNotifier creates the notifier based on the configuration
func (f *DeliveryFactory) CreateNotifier() (core.Notifier, error) {
	notificationsCfg := f.cfg.GetNotifications()

	switch notificationsCfg.Type {
	case "log":
		return notify.NewLogNotifier(f.logger), nil
	case "smtp":
		smtpCfg := f.cfg.GetSMTP()
		return notify.NewSMTPNotifier(
			smtpCfg.Address,
			smtpCfg.From,
			smtpCfg.To,
			smtpCfg.Username,
			smtpCfg.Password,
			f.logger,
		)
	default:
		return nil, fmt.Errorf("unsupported notifier type: %s", notificationsCfg.Type)
	}
}

// CreateEventHub creates the live event hub and attaches the AMQP listener when enabled
func (f *DeliveryFactory) CreateEventHub() (*events.Hub, error) {
	hub := events.NewHub(f.logger)

	amqpCfg := f.cfg.GetEvents().AMQP
	if !amqpCfg.Enabled {
		return hub, nil
	}

	listener, err := events.NewAMQPListener(amqpCfg.URL, amqpCfg.Exchange, amqpCfg.RoutingKey, f.logger)
	if err != nil {
		return nil, err
	}
	hub.Attach(listener)

	f.logger.Info("Live events forwarded to AMQP",
		zap.String("exchange", amqpCfg.Exchange),
		zap.String("routing_key", amqpCfg.RoutingKey))
	return hub, nil
}

// CreateSink creates the delivery sink over the store, notifier and event hub
func (f *DeliveryFactory) CreateSink(
	st *store.SQLStore,
	notifier core.Notifier,
	hub *events.Hub,
	window time.Duration,
) *delivery.Sink {
	notificationsCfg := f.cfg.GetNotifications()

	return delivery.NewSink(delivery.Dependencies{
		Quarantine: st,
		Inbox:      st,
		Contacts:   st,
		Notifier:   notifier,
		Permission: notify.StaticPermission(notificationsCfg.PermissionGranted),
		Alerter:    alert.NewBellAlerter(os.Stderr, time.Second, f.logger),
		Events:     hub,
	}, delivery.Options{
		InboxWindow:       window,
		LongBodyThreshold: notificationsCfg.LongBodyThreshold,
		Sound:             notificationsCfg.Sound,
	}, f.logger)
}

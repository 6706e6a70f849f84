package factory

import (
	"github.com/mikey/sms-guard/internal/adapters/gateway"
	"github.com/mikey/sms-guard/internal/config"
	"github.com/mikey/sms-guard/internal/ports"
	"go.uber.org/zap"
)

// GatewayFactory creates the inbound gateways based on configuration
type GatewayFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewGatewayFactory creates a new gateway factory
func NewGatewayFactory(cfg *config.Config, logger *zap.Logger) *GatewayFactory {
	return &GatewayFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateGateways creates every enabled gateway feeding r
func (f *GatewayFactory) CreateGateways(r ports.BatchReceiver) []ports.Gateway {
	gatewayCfg := f.cfg.GetGateway()

	var gateways []ports.Gateway
	if gatewayCfg.SMTP.Enabled {
		gateways = append(gateways, gateway.NewSMTPGateway(r, f.logger, gatewayCfg.SMTP.ListenAddress))
	}
	if gatewayCfg.HTTP.Enabled {
		gateways = append(gateways, gateway.NewHTTPGateway(r, f.logger, gatewayCfg.HTTP.ListenAddress))
	}

	if len(gateways) == 0 {
		f.logger.Warn("No inbound gateway enabled")
	}
	return gateways
}

package provider

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/meshpay/payment-service/internal/config"
	"github.com/meshpay/payment-service/internal/domain/event"
	domainProvider "github.com/meshpay/payment-service/internal/domain/provider"
	stripeAdapter "github.com/meshpay/payment-service/internal/infrastructure/provider/stripe"
	tossAdapter "github.com/meshpay/payment-service/internal/infrastructure/provider/toss"
)

// Registry holds one configured adapter per provider. Adapters are
// resolved by inbound route, never by payload inspection, so each
// delivery is verified under exactly the rules of the route it arrived
// on. Each adapter owns its own secrets.
type Registry struct {
	adapters map[event.Provider]domainProvider.Adapter
	logger   *zap.Logger
}

// NewRegistry builds adapters for every provider configured with a
// webhook secret.
func NewRegistry(cfg *config.Config, logger *zap.Logger) (*Registry, error) {
	adapters := make(map[event.Provider]domainProvider.Adapter)

	if cfg.Service.Stripe.WebhookSecret != "" {
		adapters[event.ProviderStripe] = stripeAdapter.NewAdapter(cfg.Service.Stripe.WebhookSecret, logger)
	}
	if cfg.Service.Toss.WebhookSecret != "" {
		adapters[event.ProviderToss] = tossAdapter.NewAdapter(cfg.Service.Toss.SecretKey, cfg.Service.Toss.WebhookSecret, logger)
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no payment provider configured")
	}

	return &Registry{
		adapters: adapters,
		logger:   logger,
	}, nil
}

// Get returns the adapter for a provider route segment.
func (r *Registry) Get(providerStr string) (domainProvider.Adapter, error) {
	p := event.Provider(providerStr)
	if !p.Valid() {
		return nil, fmt.Errorf("unknown provider: %s", providerStr)
	}

	adapter, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("provider not configured: %s", providerStr)
	}

	return adapter, nil
}

// RefundClient returns the outbound refund client for a provider, when
// the configured adapter supports one.
func (r *Registry) RefundClient(providerStr string) (domainProvider.RefundClient, error) {
	adapter, err := r.Get(providerStr)
	if err != nil {
		return nil, err
	}

	client, ok := adapter.(domainProvider.RefundClient)
	if !ok {
		return nil, fmt.Errorf("provider %s has no refund client", providerStr)
	}

	return client, nil
}

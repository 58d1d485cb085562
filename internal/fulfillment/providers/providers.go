// Package providers selects the configured fulfillment provider.
package providers

import (
	"fmt"

	"github.com/vtuhub/walletledger/internal/fulfillment"
	"github.com/vtuhub/walletledger/internal/fulfillment/mock"
	"github.com/vtuhub/walletledger/internal/fulfillment/vtpass"
	"github.com/vtuhub/walletledger/pkg/config"
	"github.com/vtuhub/walletledger/pkg/logger"
)

const stubAlias = "stub"

// New returns the provider named by cfg. The mock provider is the default.
func New(cfg config.FulfillmentConfig, logg *logger.Logger) (fulfillment.Provider, error) {
	switch name := cfg.ProviderName(); name {
	case config.FulfillmentProviderMock, stubAlias:
		return mock.New(), nil
	case config.FulfillmentProviderVTPass:
		client, err := vtpass.New(vtpass.Config{
			BaseURL:  cfg.BaseURL,
			APIKey:   cfg.APIKey,
			Username: cfg.Username,
			Password: cfg.Password,
			Timeout:  cfg.RequestTimeout,
		}, nil, logg)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown fulfillment provider %q", name)
	}
}

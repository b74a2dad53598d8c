// Package registry выбирает реализацию carrier.Client по конфигу.
package registry

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/ecommerce-omar/tracking-api/config"
	"github.com/ecommerce-omar/tracking-api/internal/integrations/carrier"
	"github.com/ecommerce-omar/tracking-api/internal/integrations/carrier/correios"
	"github.com/ecommerce-omar/tracking-api/internal/integrations/carrier/fake"
	"github.com/ecommerce-omar/tracking-api/internal/retry"
)

const ModeCorreios = "correios"

func CorreiosConfig(c config.CarrierConfig) correios.Config {
	return correios.Config{
		BaseURL:        c.BaseURL,
		Username:       c.Username,
		AccessCode:     c.AccessCode,
		PostcardNumber: c.PostcardNumber,
		TokenTTL:       time.Duration(c.TokenTTLSeconds) * time.Second,
		Timeout:        time.Duration(c.RequestTimeoutSeconds) * time.Second,
		Retry: retry.Options{
			MaxAttempts:  c.RetryMaxAttempts,
			InitialDelay: time.Duration(c.RetryInitialDelayMs) * time.Millisecond,
			MaxDelay:     time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		},
	}
}

// NewCorreios требует base_url; учётные данные проверяются при первом запросе токена.
func NewCorreios(c config.CarrierConfig, logger *slog.Logger) (*correios.Client, error) {
	if c.BaseURL == "" {
		return nil, errors.New("carrier.base_url is required for correios mode")
	}
	return correios.New(CorreiosConfig(c), logger), nil
}

// New returns the fake client for an empty or unknown mode, so local runs
// work without carrier access.
func New(c config.CarrierConfig, logger *slog.Logger) (carrier.Client, error) {
	switch c.Mode {
	case ModeCorreios:
		return NewCorreios(c, logger)
	default:
		return fake.New(), nil
	}
}

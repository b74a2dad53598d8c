package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ecommerce-omar/tracking-api/config"
	"github.com/ecommerce-omar/tracking-api/internal/integrations/carrier/correios"
	"github.com/ecommerce-omar/tracking-api/internal/integrations/carrier/fake"
)

func TestNew_SelectsByMode(t *testing.T) {
	c1, err := New(config.CarrierConfig{Mode: "correios", BaseURL: "http://localhost:9000"}, nil)
	require.NoError(t, err)
	_, ok := c1.(*correios.Client)
	require.True(t, ok)

	_, err = New(config.CarrierConfig{Mode: "correios"}, nil)
	require.Error(t, err)

	for _, mode := range []string{"", "fake", "unknown"} {
		c, err := New(config.CarrierConfig{Mode: mode}, nil)
		require.NoError(t, err)
		_, ok := c.(*fake.FakeClient)
		require.True(t, ok, mode)
	}
}

func TestCorreiosConfig_Durations(t *testing.T) {
	cfg := CorreiosConfig(config.CarrierConfig{
		BaseURL:               "http://carrier",
		Username:              "user",
		AccessCode:            "code",
		PostcardNumber:        "0070000000",
		TokenTTLSeconds:       3600,
		RequestTimeoutSeconds: 7,
		RetryMaxAttempts:      4,
		RetryInitialDelayMs:   250,
		RetryMaxDelayMs:       3000,
	})

	require.Equal(t, "http://carrier", cfg.BaseURL)
	require.Equal(t, "0070000000", cfg.PostcardNumber)
	require.Equal(t, time.Hour, cfg.TokenTTL)
	require.Equal(t, 7*time.Second, cfg.Timeout)
	require.Equal(t, 4, cfg.Retry.MaxAttempts)
	require.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
	require.Equal(t, 3*time.Second, cfg.Retry.MaxDelay)
}

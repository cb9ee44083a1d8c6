package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneh/internal/config"
	"moneh/internal/log"
)

func TestRunCleanupRunsInReverseOrder(t *testing.T) {
	var order []int
	step := func(n int) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, n)
			if n == 2 {
				return errors.New("ignored")
			}
			return nil
		}
	}

	RunCleanup(log.Discard(), time.Second, step(1), nil, step(2), step(3))

	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestLoadConfigValidates(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	t.Setenv(config.ConfigFileEnv, "")

	_, err := LoadConfig((*config.Config).Validate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "not-a-port", cfg.Port)
}

func TestSetupLoggerFallsBackOnBadLevel(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "loud", LogFormat: "json"})
	require.NotNil(t, logger)
	assert.Equal(t, log.ComponentApp, logger.Component())
}

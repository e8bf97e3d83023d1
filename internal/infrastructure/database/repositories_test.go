package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/custody-gateway/internal/config"
)

func TestNewRepositories(t *testing.T) {
	t.Run("memory driver", func(t *testing.T) {
		cfg := &config.Config{Store: config.StoreConfig{Driver: config.DriverMemory}}

		repos, err := NewRepositories(cfg, zap.NewNop())
		require.NoError(t, err)
		require.NotNil(t, repos.Account)
		require.NotNil(t, repos.Payment)
		assert.NoError(t, repos.Ping(context.Background()))
		assert.NoError(t, repos.Close(context.Background()))
	})

	t.Run("postgres driver does not connect eagerly", func(t *testing.T) {
		cfg := &config.Config{Store: config.StoreConfig{Driver: config.DriverPostgres}}

		repos, err := NewRepositories(cfg, zap.NewNop())
		require.NoError(t, err)
		assert.NoError(t, repos.Close(context.Background()), "closing an unopened handle is a no-op")
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := &config.Config{Store: config.StoreConfig{Driver: "sqlite"}}

		_, err := NewRepositories(cfg, zap.NewNop())
		assert.Error(t, err)
	})
}

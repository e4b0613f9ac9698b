package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"inventory/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	config.SetDefaults(v)
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := config.FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.AppPort)
	assert.Equal(t, config.DriverMemory, cfg.DBDriver)
	assert.Equal(t, config.EventsNone, cfg.EventsBackend)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 50, cfg.LowStockThreshold)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	require.Len(t, cfg.Accounts, 2)
	assert.Equal(t, "admin", cfg.Accounts[0].Role)
	assert.Equal(t, "manager", cfg.Accounts[1].Role)
}

func TestFromViper_Overrides(t *testing.T) {
	v := newViper()
	v.Set("DB_DRIVER", "SQLite")
	v.Set("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	v.Set("EVENTS_BACKEND", "kafka")
	v.Set("MANAGER_EMAIL", "")

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, config.DriverSQLite, cfg.DBDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Len(t, cfg.Accounts, 1)
}

func TestFromViper_Invalid(t *testing.T) {
	cases := map[string]func(v *viper.Viper){
		"driver":   func(v *viper.Viper) { v.Set("DB_DRIVER", "oracle") },
		"events":   func(v *viper.Viper) { v.Set("EVENTS_BACKEND", "nats") },
		"secret":   func(v *viper.Viper) { v.Set("JWT_SECRET", "") },
		"password": func(v *viper.Viper) { v.Set("ADMIN_PASSWORD", "123") },
		"brokers": func(v *viper.Viper) {
			v.Set("EVENTS_BACKEND", "kafka")
			v.Set("KAFKA_BROKERS", " , ")
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			v := newViper()
			mutate(v)
			_, err := config.FromViper(v)
			assert.Error(t, err)
		})
	}
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOW_STOCK_THRESHOLD=7\n"), 0o600))
	t.Setenv("APP_PORT", ":6000")
	t.Cleanup(func() { os.Unsetenv("LOW_STOCK_THRESHOLD") })

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.LowStockThreshold)
	assert.Equal(t, ":6000", cfg.AppPort)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_OverridesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORAGE_DRIVER", "")
	cfg, err := Parse([]byte(`
storage:
  driver: postgres
database:
  host: db
  port: 6432
  max_conns: 50
booking:
  hold_ttl: 15m
  lock_wait: 2s
worker:
  sweep_interval: 45s
  embedded: false
kafka:
  brokers: ["kafka:9092"]
`))
	require.NoError(t, err)

	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Booking.HoldTTL)
	assert.Equal(t, 2*time.Second, cfg.Booking.LockWait)
	assert.Equal(t, 45*time.Second, cfg.Worker.SweepInterval)
	assert.Equal(t, int32(50), cfg.Database.MaxConns)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	// untouched keys keep their defaults
	assert.Equal(t, 30, cfg.Booking.MaxNights)
	assert.Equal(t, "booking-events", cfg.Kafka.BookingEventsTopic)
	assert.Contains(t, cfg.Database.DSN(), "host=db port=6432")
}

func TestParse_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
		want string
	}{
		{name: "unknown driver", yaml: "storage:\n  driver: sqlite\n", want: "storage.driver"},
		{name: "zero ttl", yaml: "booking:\n  hold_ttl: 0s\n", want: "booking.hold_ttl"},
		{name: "memory without embedded sweeper", yaml: "worker:\n  embedded: false\n", want: "worker.embedded"},
		{name: "negative allotment", yaml: "booking:\n  default_allotment: -1\n", want: "booking.default_allotment"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("STORAGE_DRIVER", "")
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParse_EnvOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@h:5432/db")
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h:5432/db", cfg.Database.DSN())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  address: \":9999\"\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTP.Address)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

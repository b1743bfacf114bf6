package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := load(t)

	assert.Equal(t, "posiljke.sqlite3", cfg.DBPath)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout)
	assert.Equal(t, "posiljke.events", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("POSILJKE_BATCH_SIZE", "20")
	t.Setenv("POSILJKE_STORE_TIMEOUT", "3s")
	t.Setenv("POSILJKE_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("POSILJKE_DEST_BRANCH", "Maribor")

	cfg := load(t)

	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "Maribor", cfg.DestinationBranch)
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("POSILJKE_BATCH_SIZE", "-4")
	t.Setenv("POSILJKE_STORE_TIMEOUT", "soon")

	cfg := load(t)

	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout)
}

func TestDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("POSILJKE_ADDR=:9999\nPOSILJKE_LOG_LEVEL=debug\n"), 0o644))

	t.Setenv("POSILJKE_ADDR", ":7070")
	// Registers cleanup so the value loaded from the file does not leak.
	t.Setenv("POSILJKE_LOG_LEVEL", "")
	os.Unsetenv("POSILJKE_LOG_LEVEL")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posiljke.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"addr: \":6060\"\nbatch_size: 25\nkafka_brokers:\n  - a:9092\n  - b:9092\n",
	), 0o644))
	t.Setenv("POSILJKE_CONFIG", path)
	t.Setenv("POSILJKE_BATCH_SIZE", "30")

	cfg := load(t)

	assert.Equal(t, ":6060", cfg.Addr)
	assert.Equal(t, 30, cfg.BatchSize, "environment wins over the file")
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
}

func TestConfigFileMissing(t *testing.T) {
	t.Setenv("POSILJKE_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

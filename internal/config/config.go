// Package config loads settings from an optional .env file, an optional
// config file and the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. POSILJKE_DB.
const EnvPrefix = "POSILJKE"

type Config struct {
	DBPath string
	Addr   string

	LogFile  string
	LogLevel string

	// Import pipeline
	BatchSize         int
	StoreTimeout      time.Duration
	DestinationBranch string

	// Run lock; empty means in-process
	RedisAddr string

	// Notifications; no brokers means log only
	KafkaBrokers []string
	KafkaTopic   string
}

var defaults = map[string]any{
	"db":            "posiljke.sqlite3",
	"addr":          ":8080",
	"log":           "",
	"log_level":     "info",
	"batch_size":    50,
	"store_timeout": 10 * time.Second,
	"dest_branch":   "",
	"redis_addr":    "",
	"kafka_brokers": "",
	"kafka_topic":   "posiljke.events",
}

// Load reads .env files (if present), then the file named by
// POSILJKE_CONFIG (yaml, toml or json), then the environment. Environment
// variables win over both files. Only an unreadable config file is an error.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	return &Config{
		DBPath:            v.GetString("db"),
		Addr:              v.GetString("addr"),
		LogFile:           v.GetString("log"),
		LogLevel:          v.GetString("log_level"),
		BatchSize:         positiveInt(v, "batch_size"),
		StoreTimeout:      positiveDuration(v, "store_timeout"),
		DestinationBranch: v.GetString("dest_branch"),
		RedisAddr:         v.GetString("redis_addr"),
		KafkaBrokers:      list(v, "kafka_brokers"),
		KafkaTopic:        v.GetString("kafka_topic"),
	}, nil
}

func positiveInt(v *viper.Viper, key string) int {
	if i := v.GetInt(key); i > 0 {
		return i
	}
	return defaults[key].(int)
}

func positiveDuration(v *viper.Viper, key string) time.Duration {
	if d := v.GetDuration(key); d > 0 {
		return d
	}
	return defaults[key].(time.Duration)
}

// list accepts a comma separated string (environment) or a list (config file).
func list(v *viper.Viper, key string) []string {
	raw, ok := v.Get(key).(string)
	if !ok {
		return v.GetStringSlice(key)
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

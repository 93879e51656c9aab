package config

import (
	"time"

	"github.com/spf13/pflag"
)

// FetchConfig holds configuration for the fetch command.
type FetchConfig struct {
	Hashes       []string
	Tracked      []string
	Out          string
	Tokens       TokenConfig
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	Sink         string
	MetricsAddr  string
	LogLevel     string
}

// LoadFetch merges config file, environment variables, and flags into FetchConfig.
func LoadFetch(cfgFile string, flags *pflag.FlagSet) (FetchConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"out":              "./data/history_events.jsonl",
		"batch-size":       50,
		"max-retries":      5,
		"retry-backoff":    500 * time.Millisecond,
		"sink":             "jsonl",
		"token-cache-size": 4096,
		"log-level":        "info",
	})
	if err != nil {
		return FetchConfig{}, err
	}

	cfg := FetchConfig{
		Hashes:       getStringSlice(v, "tx"),
		Tracked:      getStringSlice(v, "tracked"),
		Out:          v.GetString("out"),
		Tokens:       loadTokenConfig(v),
		BatchSize:    v.GetInt("batch-size"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		Sink:         v.GetString("sink"),
		MetricsAddr:  v.GetString("metrics-addr"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}

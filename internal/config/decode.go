package config

import (
	"github.com/spf13/pflag"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	In          string
	Out         string
	Errors      string
	ChainID     uint64
	Tracked     []string
	Tokens      TokenConfig
	Sink        string
	MetricsAddr string
	LogLevel    string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"out":              "./data/history_events.jsonl",
		"errors":           "./data/decode_errors.jsonl",
		"chain-id":         uint64(1),
		"sink":             "jsonl",
		"token-cache-size": 4096,
		"log-level":        "info",
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		In:          v.GetString("in"),
		Out:         v.GetString("out"),
		Errors:      v.GetString("errors"),
		ChainID:     v.GetUint64("chain-id"),
		Tracked:     getStringSlice(v, "tracked"),
		Tokens:      loadTokenConfig(v),
		Sink:        v.GetString("sink"),
		MetricsAddr: v.GetString("metrics-addr"),
		LogLevel:    v.GetString("log-level"),
	}

	return cfg, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDecodeDefaultsAndFlags(t *testing.T) {
	chdir(t, t.TempDir())

	flags := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	flags.String("in", "", "")
	flags.StringSlice("tracked", nil, "")
	if err := flags.Parse([]string{"--in", "txs.jsonl", "--tracked", "0x01, 0x02,,"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadDecode("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.In != "txs.jsonl" {
		t.Fatalf("in mismatch: %s", cfg.In)
	}
	if cfg.ChainID != 1 || cfg.Tokens.CacheSize != 4096 || cfg.LogLevel != "info" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if len(cfg.Tracked) != 2 || cfg.Tracked[1] != "0x02" {
		t.Fatalf("tracked mismatch: %v", cfg.Tracked)
	}
}

func TestLoadFetchFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "fetch.yaml")
	content := "tx: 0xaa,0xbb\nretry-backoff: 2s\npg-dsn: postgres://localhost/history\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HISTORY_MAX_RETRIES", "9")

	cfg, err := LoadFetch(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Hashes) != 2 || cfg.Hashes[0] != "0xaa" {
		t.Fatalf("hashes mismatch: %v", cfg.Hashes)
	}
	if cfg.RetryBackoff != 2*time.Second {
		t.Fatalf("backoff mismatch: %s", cfg.RetryBackoff)
	}
	if cfg.MaxRetries != 9 {
		t.Fatalf("env override missing: %d", cfg.MaxRetries)
	}
	if cfg.Tokens.PGDSN != "postgres://localhost/history" {
		t.Fatalf("dsn mismatch: %s", cfg.Tokens.PGDSN)
	}
}

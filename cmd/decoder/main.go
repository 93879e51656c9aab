package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "decoder",
		Short:        "EVM transaction history decoder",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode transactions with receipt logs into history events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("in", "", "input transactions JSONL")
	decodeCmd.Flags().String("out", "./data/history_events.jsonl", "output decoded transactions JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().Uint64("chain-id", 1, "chain id of the input transactions")
	addCommonFlags(decodeCmd)

	root.AddCommand(decodeCmd)

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch transactions from a node, decode and store them",
		RunE:  runFetch,
	}

	fetchCmd.Flags().StringSlice("tx", nil, "transaction hashes (comma-separated)")
	fetchCmd.Flags().String("out", "./data/history_events.jsonl", "output decoded transactions JSONL")
	fetchCmd.Flags().Int("batch-size", 50, "transactions per storage write")
	fetchCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	fetchCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	addCommonFlags(fetchCmd)

	root.AddCommand(fetchCmd)

	counterpartiesCmd := &cobra.Command{
		Use:   "counterparties",
		Short: "Print the counterparty catalog of a chain as JSON",
		RunE:  runCounterparties,
	}

	counterpartiesCmd.Flags().Uint64("chain-id", 1, "chain id")

	root.AddCommand(counterpartiesCmd)

	return root
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("tracked", nil, "tracked account addresses (comma-separated)")
	cmd.Flags().String("rpc", "", "RPC URL used for token metadata (required by fetch)")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for token metadata and decoded events")
	cmd.Flags().String("sink", "jsonl", "where decoded transactions go (jsonl, postgres)")
	cmd.Flags().String("tokens", "", "JSON file of known tokens")
	cmd.Flags().Int("token-cache-size", 4096, "token metadata cache entries")
	cmd.Flags().String("metrics-addr", "", "serve /metrics and /health on this address")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

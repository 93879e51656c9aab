package model

import "testing"

func TestChainLocation(t *testing.T) {
	if got := ChainLocation(1); got != "ethereum" {
		t.Fatalf("location mismatch: %s", got)
	}
	if got := ChainLocation(424242); got != "evm_424242" {
		t.Fatalf("unknown chain location mismatch: %s", got)
	}
	if label, ok := ChainLabel(42161); !ok || label != "Arbitrum One" {
		t.Fatalf("label mismatch: %s %v", label, ok)
	}
	if _, ok := ChainLabel(424242); ok {
		t.Fatalf("unknown chain must not have a label")
	}
}

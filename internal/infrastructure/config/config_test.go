package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Fatalf("expected 24h token ttl, got %s", cfg.TokenTTL)
	}
	if cfg.Chain.DerivationScheme != "bip44-evm" {
		t.Fatalf("unexpected derivation scheme %q", cfg.Chain.DerivationScheme)
	}
	if cfg.Tasks.Workers != 8 || cfg.Tasks.MaxAttempts != 3 {
		t.Fatalf("unexpected task config %+v", cfg.Tasks)
	}
	if cfg.Chain.Enabled() {
		t.Fatalf("chain should be disabled without rpc url and mnemonic")
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("expected development env")
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	if _, err := Load(context.Background()); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}

func TestChainConfig_Fee(t *testing.T) {
	fee, err := ChainConfig{NetworkFeeWei: "1000"}.Fee()
	if err != nil {
		t.Fatalf("fee: %v", err)
	}
	if fee.Int64() != 1000 {
		t.Fatalf("expected 1000, got %s", fee)
	}

	if _, err := (ChainConfig{NetworkFeeWei: "-1"}).Fee(); err == nil {
		t.Fatalf("expected error for negative fee")
	}
	if _, err := (ChainConfig{NetworkFeeWei: "abc"}).Fee(); err == nil {
		t.Fatalf("expected error for non numeric fee")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestValidateRejectsMissingSymbol(t *testing.T) {
	cfg := Default()
	cfg.Symbol = ""
	if err := Validate(cfg); err == nil {
		t.Error("expected error for missing symbol")
	}
}

func TestValidateRejectsNonPositiveRiskAversion(t *testing.T) {
	cfg := Default()
	cfg.Quote.RiskAversion = 0
	if err := Validate(cfg); err == nil {
		t.Error("expected error for zero risk aversion")
	}
}

func TestValidateRejectsZeroBatchSize(t *testing.T) {
	cfg := Default()
	cfg.Sink.BatchSize = 0
	if err := Validate(cfg); err == nil {
		t.Error("expected error for zero batch size")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
env: test
symbol: ETHUSDT
quote:
  riskAversion: 0.2
  volatility: 0.03
  timeHorizon: 30
  inventoryPenalty: 2.0
  size: 1.0
risk:
  killSwitchThreshold: -5.0
  maxInventory: 0.2
  maxSpreadMultiplier: 2.0
sink:
  batchSize: 25
logging:
  level: debug
  outputs: [stdout]
  format: console
metrics:
  addr: ":9999"
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Symbol != "ETHUSDT" {
		t.Errorf("symbol = %q, want ETHUSDT", cfg.Symbol)
	}
	if cfg.Sink.BatchSize != 25 {
		t.Errorf("batchSize = %d, want 25", cfg.Sink.BatchSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAmbientOnlyZeroesQuoteSection(t *testing.T) {
	full := Default()
	full.Quote.RiskAversion = 0.5

	ambient := AmbientOnly(full)
	if ambient.Quote != (QuoteConfig{}) {
		t.Errorf("expected zeroed quote config, got %+v", ambient.Quote)
	}
	if ambient.Sink.BatchSize != full.Sink.BatchSize {
		t.Error("ambient fields should survive AmbientOnly")
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	initial := `
env: test
symbol: BTCUSDT
quote: {riskAversion: 0.1, volatility: 0.05, timeHorizon: 60, inventoryPenalty: 1.5, size: 1}
risk: {killSwitchThreshold: -10, maxInventory: 0.1, maxSpreadMultiplier: 3}
sink: {batchSize: 50}
logging: {level: info, outputs: [stdout], format: json}
`
	if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	reloaded := make(chan AppConfig, 1)
	w, err := NewWatcher(path, WatchConfig{Enabled: true, CooldownTime: 0}, func(cfg AppConfig) error {
		reloaded <- cfg
		return nil
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	updated := initial + "\nmetrics: {addr: \":9091\"}\n"
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Metrics.Addr != ":9091" {
			t.Errorf("reloaded metrics addr = %q, want :9091", cfg.Metrics.Addr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload callback")
	}
}

func TestWatcherDisabledDoesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("env: test\nsymbol: BTCUSDT\n"), 0644)

	w, err := NewWatcher(path, WatchConfig{Enabled: false}, func(AppConfig) error { return nil })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start on disabled watcher should be a no-op, got: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

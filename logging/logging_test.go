package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{Logger: zap.New(core), cfg: DefaultConfig()}, logs
}

func TestLogFillEmitsExpectedFields(t *testing.T) {
	l, logs := newObservedLogger()
	l.LogFill("BTCUSDT", "buy", 100.5, 0.01, -0.001, 1.005, 0.2, 19.9, 7)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["symbol"] != "BTCUSDT" || ctx["side"] != "buy" {
		t.Errorf("unexpected fields: %+v", ctx)
	}
}

func TestLogRiskEventMarksWarnLevel(t *testing.T) {
	l, logs := newObservedLogger()
	l.LogRiskEvent("kill_switch", map[string]interface{}{"pnl": -10.5})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", entries[0].Level)
	}
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "not-a-level", Outputs: []string{"stdout"}, Format: "json"})
	if err == nil {
		t.Error("expected error for invalid level")
	}
}

// Package logging wraps zap with the structured event helpers the engine's
// pipeline and driver call: fills, quotes, risk events, parse failures, and
// session lifecycle records.
package logging

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls where and how log lines are written.
type Config struct {
	Level      string   `yaml:"level"`       // debug, info, warn, error
	Outputs    []string `yaml:"outputs"`     // stdout, file
	OutputFile string   `yaml:"output_file"` // path, required if "file" is in Outputs
	ErrorFile  string   `yaml:"error_file"`  // optional separate error-level file
	Format     string   `yaml:"format"`      // json or console
}

// DefaultConfig returns stdout-only JSON logging at info level.
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Outputs: []string{"stdout"},
		Format:  "json",
	}
}

// Logger wraps a configured zap.Logger with the engine's event vocabulary.
type Logger struct {
	*zap.Logger
	cfg Config
}

// New builds a Logger from cfg, tee-ing stdout/file/error-file cores the
// way a production service typically layers its log sinks.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
	}

	var encoderCfg zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderCfg = zap.NewProductionEncoderConfig()
	}
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core

	if contains(cfg.Outputs, "stdout") {
		var encoder zapcore.Encoder
		if cfg.Format == "console" {
			encoder = zapcore.NewConsoleEncoder(encoderCfg)
		} else {
			encoder = zapcore.NewJSONEncoder(encoderCfg)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
	}

	if contains(cfg.Outputs, "file") && cfg.OutputFile != "" {
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("logging: open output file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(f), level))
	}

	if cfg.ErrorFile != "" {
		f, err := os.OpenFile(cfg.ErrorFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("logging: open error file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(f), zapcore.ErrorLevel))
	}

	core := zapcore.NewTee(cores...)
	zl := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return &Logger{Logger: zl, cfg: cfg}, nil
}

// WithFields returns a derived Logger carrying the given fields on every
// subsequent log line.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{Logger: l.Logger.With(toZapFields(fields)...), cfg: l.cfg}
}

// LogFill records a simulated maker fill, including its derived notional,
// effective spread, and slippage against the market mid at fill time.
func (l *Logger) LogFill(symbol, side string, price, size, fee, notional, effectiveSpread, slippageBps float64, orderID uint64) {
	l.Info("fill",
		zap.String("symbol", symbol),
		zap.String("side", side),
		zap.Float64("price", price),
		zap.Float64("size", size),
		zap.Float64("fee", fee),
		zap.Float64("notional", notional),
		zap.Float64("effective_spread", effectiveSpread),
		zap.Float64("slippage_bps", slippageBps),
		zap.Uint64("order_id", orderID),
		zap.String("ts", nowRFC3339()),
	)
}

// LogQuote records a generated quote.
func (l *Logger) LogQuote(symbol string, bid, ask, mid, volatility, inventory float64) {
	l.Debug("quote",
		zap.String("symbol", symbol),
		zap.Float64("bid", bid),
		zap.Float64("ask", ask),
		zap.Float64("mid", mid),
		zap.Float64("volatility", volatility),
		zap.Float64("inventory", inventory),
		zap.String("ts", nowRFC3339()),
	)
}

// LogRiskEvent records a kill-switch trip or a spread-widening event.
func (l *Logger) LogRiskEvent(event string, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["event"] = event
	fields["ts"] = nowRFC3339()
	l.Warn("risk_event", toZapFields(fields)...)
}

// LogSession records a session lifecycle transition (start/end).
func (l *Logger) LogSession(event, sessionID string, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["event"] = event
	fields["session_id"] = sessionID
	fields["ts"] = nowRFC3339()
	l.Info("session_event", toZapFields(fields)...)
}

// LogParseFailure records a dropped malformed frame.
func (l *Logger) LogParseFailure(reason string, malformedCount int) {
	l.Warn("parse_failure",
		zap.String("reason", reason),
		zap.Int("malformed_count", malformedCount),
		zap.String("ts", nowRFC3339()),
	)
}

// LogSinkFailure records a transient flush failure, per the sink's
// log-and-continue contract.
func (l *Logger) LogSinkFailure(rowType string, rows int, err error) {
	l.Error("sink_flush_failed",
		zap.String("row_type", rowType),
		zap.Int("rows", rows),
		zap.Error(err),
		zap.String("ts", nowRFC3339()),
	)
}

// Close flushes any buffered log entries.
func (l *Logger) Close() error {
	return l.Sync()
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func toZapFields(fields map[string]interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func contains(ss []string, target string) bool {
	for _, s := range ss {
		if s == target {
			return true
		}
	}
	return false
}

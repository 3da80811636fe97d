package sink

import (
	"go.uber.org/zap"

	"asmm-engine/logging"
)

// LogStore is a Store that writes each flushed batch as a structured log
// line rather than to a persistent time-series database. It stands in for
// the real store this repo does not own, while still exercising the exact
// batching and failure-tolerance contract a database-backed Store would.
type LogStore struct {
	logger *logging.Logger
}

// NewLogStore builds a LogStore writing through logger.
func NewLogStore(logger *logging.Logger) *LogStore {
	return &LogStore{logger: logger}
}

func (s *LogStore) AppendTicks(rows []TickRow) error {
	s.logger.Info("sink_flush", zap.String("row_type", "ticks"), zap.Int("rows", len(rows)))
	return nil
}

func (s *LogStore) AppendQuotes(rows []QuoteRow) error {
	s.logger.Info("sink_flush", zap.String("row_type", "quotes"), zap.Int("rows", len(rows)))
	return nil
}

func (s *LogStore) AppendStats(rows []StatRow) error {
	s.logger.Info("sink_flush", zap.String("row_type", "stats"), zap.Int("rows", len(rows)))
	return nil
}

// Package engine wires the tick parser, volatility estimator, quote
// generator, risk gate, fill simulator, position tracker, and sink batcher
// into a single pipeline, and drives that pipeline from a transport.Source
// through a Connecting -> Running -> Stopping -> Stopped state machine.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"asmm-engine/fill"
	"asmm-engine/latency"
	"asmm-engine/logging"
	"asmm-engine/metrics"
	"asmm-engine/position"
	"asmm-engine/quote"
	"asmm-engine/risk"
	"asmm-engine/sink"
	"asmm-engine/symbol"
	"asmm-engine/tick"
	"asmm-engine/transport"
	"asmm-engine/volatility"
)

// State is a point in the engine's lifecycle.
type State int

const (
	Connecting State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config holds the run-level parameters that don't belong to any single
// pipeline stage.
type Config struct {
	Symbol   string
	Duration time.Duration
	// StatusInterval is a wall-clock fallback that also triggers a status
	// snapshot, independent of tick volume. Zero or negative defaults to
	// 10 seconds.
	StatusInterval time.Duration
	// StatusEvery is the number of processed ticks between status
	// snapshots. Defaults to DefaultStatusEvery.
	StatusEvery int64
}

// DefaultStatusEvery mirrors the reference implementation's periodic
// console status cadence.
const DefaultStatusEvery = 100

// Stats is the engine's running tally, reported in status snapshots and
// folded into the session's final stats on Stop.
type Stats struct {
	mu             sync.RWMutex
	TicksReceived  int64
	MalformedTicks int64
	QuotesIssued   int64
	FillsSimulated int64
	NotionalTraded float64
}

func (s *Stats) snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		TicksReceived:  s.TicksReceived,
		MalformedTicks: s.MalformedTicks,
		QuotesIssued:   s.QuotesIssued,
		FillsSimulated: s.FillsSimulated,
		NotionalTraded: s.NotionalTraded,
	}
}

// Engine owns one trading pipeline for a single symbol and drives it from
// a transport.Source until its duration budget expires, its kill switch
// trips, or its context is canceled.
type Engine struct {
	cfg    Config
	sym    symbol.Symbol
	source transport.Source
	logger *logging.Logger

	parser     *tick.Parser
	volEst     *volatility.Estimator
	quoteGen   *quote.Generator
	riskGate   *risk.Gate
	fillSim    *fill.Simulator
	positions  *position.Tracker
	batcher    *sink.Batcher
	latencyMtr *latency.Meter

	mu      sync.RWMutex
	state   State
	session Session
	stats   Stats

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// Components bundles the pipeline stages an Engine is built from.
type Components struct {
	Source    transport.Source
	Logger    *logging.Logger
	Parser    *tick.Parser
	Vol       *volatility.Estimator
	QuoteGen  *quote.Generator
	RiskGate  *risk.Gate
	FillSim   *fill.Simulator
	Positions *position.Tracker
	Batcher   *sink.Batcher
	Latency   *latency.Meter
}

// New builds an Engine for cfg.Symbol from its components. The symbol must
// be one of the known enum values.
func New(cfg Config, c Components) (*Engine, error) {
	sym := symbol.Parse(cfg.Symbol)
	if !sym.IsKnown() {
		return nil, fmt.Errorf("engine: unknown symbol %q", cfg.Symbol)
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = 10 * time.Second
	}
	if cfg.StatusEvery <= 0 {
		cfg.StatusEvery = DefaultStatusEvery
	}

	return &Engine{
		cfg:        cfg,
		sym:        sym,
		source:     c.Source,
		logger:     c.Logger,
		parser:     c.Parser,
		volEst:     c.Vol,
		quoteGen:   c.QuoteGen,
		riskGate:   c.RiskGate,
		fillSim:    c.FillSim,
		positions:  c.Positions,
		batcher:    c.Batcher,
		latencyMtr: c.Latency,
		state:      Connecting,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}, nil
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Session returns the engine's session bookkeeping record.
func (e *Engine) Session() Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session
}

// Start begins the session, launches the transport source, and drives the
// pipeline in a background goroutine until ctx is canceled, the duration
// budget expires, or the risk gate trips the kill switch.
func (e *Engine) Start(ctx context.Context) error {
	now := time.Now()
	params := fmt.Sprintf("gamma=%.6f,sigma=%.6f,T=%.6f,kappa=%.6f",
		e.quoteGen.RiskAversion(), e.quoteGen.Volatility(),
		e.quoteGen.TimeHorizon(), e.quoteGen.InventoryPenalty())

	e.mu.Lock()
	e.session = NewSession(e.sym.String(), e.cfg.Duration, params, now)
	e.state = Running
	e.mu.Unlock()

	e.logger.LogSession("session_start", e.session.ID, map[string]interface{}{
		"symbol":   e.sym.String(),
		"duration": e.cfg.Duration.String(),
		"params":   params,
	})

	runCtx := ctx
	var cancel context.CancelFunc
	if e.cfg.Duration > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.Duration)
	}

	go e.run(runCtx, cancel)
	return nil
}

func (e *Engine) run(ctx context.Context, cancel context.CancelFunc) {
	defer close(e.doneChan)
	if cancel != nil {
		defer cancel()
	}

	sourceErr := make(chan error, 1)
	go func() {
		sourceErr <- e.source.Run(ctx, e.onFrame)
	}()

	statusTicker := time.NewTicker(e.cfg.StatusInterval)
	defer statusTicker.Stop()

	terminalStatus := "completed"
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-e.stopChan:
			terminalStatus = "stopped"
			break loop
		case err := <-sourceErr:
			if err != nil {
				e.logger.LogRiskEvent("transport_closed", map[string]interface{}{"error": err.Error()})
			}
			break loop
		case <-statusTicker.C:
			e.StatusSnapshot()
		}
	}

	e.finish(terminalStatus)
}

// StatusSnapshot emits a periodic counters snapshot: tick, malformed,
// quote and fill counts, fill rate, position, average entry, total P&L and
// traded notional. It does not include the mid, the engine's quotes, or
// the live volatility. onFrame calls it every
// StatusEvery ticks; the wall-clock status ticker also calls it so a
// quiet source still reports.
func (e *Engine) StatusSnapshot() {
	snap := e.stats.snapshot()
	pos := e.positions.Position(e.sym)
	fillRate := 0.0
	if snap.QuotesIssued > 0 {
		fillRate = float64(snap.FillsSimulated) / float64(snap.QuotesIssued)
	}
	e.logger.LogSession("status", e.session.ID, map[string]interface{}{
		"ticks":     snap.TicksReceived,
		"malformed": snap.MalformedTicks,
		"quotes":    snap.QuotesIssued,
		"fills":     snap.FillsSimulated,
		"fill_rate": fillRate,
		"position":  pos.Quantity,
		"avg_entry": pos.AveragePrice,
		"total_pnl": pos.TotalPnL(),
		"notional":  snap.NotionalTraded,
	})
}

// onFrame is the transport.Handler driving one pipeline pass per tick.
func (e *Engine) onFrame(frame []byte) {
	e.mu.RLock()
	state := e.state
	e.mu.RUnlock()
	if state != Running {
		return
	}

	stop := e.latencyMtr.Start("pipeline")
	defer stop()

	t, err := e.parser.Parse(frame)
	if err != nil {
		e.stats.mu.Lock()
		e.stats.MalformedTicks++
		e.stats.mu.Unlock()
		metrics.ParseFailures.Inc()
		e.logger.LogParseFailure(err.Error(), e.parser.Malformed)
		return
	}
	if t.Symbol != e.sym {
		return
	}

	e.stats.mu.Lock()
	e.stats.TicksReceived++
	ticks := e.stats.TicksReceived
	e.stats.mu.Unlock()
	metrics.TicksProcessed.Inc()
	if ticks%e.cfg.StatusEvery == 0 {
		e.StatusSnapshot()
	}

	mid := t.Mid()
	e.volEst.Update(mid)
	vol := e.volEst.Volatility()

	e.batcher.AppendTick(sink.TickRow{
		Time: nowRFC3339(), Symbol: e.sym.String(),
		Bid: t.Bid, BidSize: t.BidSize, Ask: t.Ask, AskSize: t.AskSize,
		Spread: t.Spread(), Mid: mid, SessionID: e.session.ID,
	})

	inventory := e.positions.Position(e.sym).Quantity
	totalPnL := e.positions.TotalPnL()

	if e.riskGate.ShouldStop(totalPnL) {
		metrics.KillSwitchTripped.Set(1)
		e.logger.LogRiskEvent("kill_switch_tripped", map[string]interface{}{
			"total_pnl": totalPnL,
			"symbol":    e.sym.String(),
		})
		e.Stop()
		return
	}

	e.quoteGen.SetVolatility(vol)
	q := e.quoteGen.Generate(e.sym, mid, vol, inventory)
	q = e.riskGate.WidenForInventory(q, inventory)

	e.stats.mu.Lock()
	e.stats.QuotesIssued++
	e.stats.mu.Unlock()
	metrics.QuotesGenerated.Inc()
	metrics.UpdateQuoteMetrics(e.quoteGen.ReservationPrice(mid, inventory), q.SpreadBps(), vol, inventory, e.riskGate.MaxInventory())

	pos := e.positions.Position(e.sym)
	e.batcher.AppendQuote(sink.QuoteRow{
		Time: nowRFC3339(), Symbol: e.sym.String(),
		OurBid: q.BidPrice, OurAsk: q.AskPrice, OurSpread: q.Spread(),
		SpreadBps: q.SpreadBps(), MarketMid: mid, Position: pos.Quantity,
		AvgEntry: pos.AveragePrice, Volatility: vol,
		Notional:  q.BidSize*q.BidPrice + q.AskSize*q.AskPrice,
		SessionID: e.session.ID,
	})

	fills := e.fillSim.Simulate(q, t.Bid, t.Ask)
	for _, f := range fills {
		e.positions.ApplyFill(f)
		e.stats.mu.Lock()
		e.stats.FillsSimulated++
		e.stats.NotionalTraded += f.NotionalValue()
		e.stats.mu.Unlock()
		metrics.FillsSimulated.Inc()
		e.logger.LogFill(f.Symbol.String(), f.Side.String(), f.Price, f.Size, f.Fee,
			f.NotionalValue(), f.EffectiveSpread(mid), f.SlippageBps(mid), f.OrderID)
	}
	e.positions.Mark(e.sym, mid)

	snap := e.stats.snapshot()
	pos = e.positions.Position(e.sym)
	metrics.UpdatePnLMetrics(pos.RealizedPnL, pos.UnrealizedPnL)
	fillRate := 0.0
	if snap.QuotesIssued > 0 {
		fillRate = float64(snap.FillsSimulated) / float64(snap.QuotesIssued)
	}
	e.batcher.AppendStat(sink.StatRow{
		Time: nowRFC3339(), Symbol: e.sym.String(),
		Position: pos.Quantity, AvgEntry: pos.AveragePrice,
		RealizedPnL: pos.RealizedPnL, UnrealizedPnL: pos.UnrealizedPnL,
		TotalPnL: pos.TotalPnL(), FillCount: snap.FillsSimulated,
		QuoteCount: snap.QuotesIssued, FillRate: fillRate,
		Notional:  snap.NotionalTraded,
		SessionID: e.session.ID,
	})
}

// Done returns a channel that is closed once the run loop has fully
// exited and the session's final stats are recorded, whether that's
// because the duration budget expired, the kill switch tripped, the
// transport closed, or Stop was called. A driver should select on this
// alongside its own shutdown signals rather than assume only an external
// Stop ends a run.
func (e *Engine) Done() <-chan struct{} {
	return e.doneChan
}

// Stop requests a graceful shutdown and waits for the run loop to exit.
func (e *Engine) Stop() error {
	e.mu.RLock()
	already := e.state == Stopped || e.state == Stopping
	e.mu.RUnlock()
	if already {
		return nil
	}

	e.setState(Stopping)
	e.stopOnce.Do(func() { close(e.stopChan) })

	select {
	case <-e.doneChan:
	case <-time.After(10 * time.Second):
		e.logger.LogRiskEvent("stop_timeout", nil)
	}
	return nil
}

func (e *Engine) finish(status string) {
	e.setState(Stopping)
	e.batcher.Flush()
	_ = e.source.Close()

	pos := e.positions.Position(e.sym)
	snap := e.stats.snapshot()
	e.mu.Lock()
	e.session = e.session.Finish(time.Now(), status, pos.TotalPnL(), pos.RealizedPnL, pos.UnrealizedPnL,
		int(snap.FillsSimulated), int(snap.QuotesIssued), pos.Quantity)
	e.state = Stopped
	e.mu.Unlock()

	e.logger.LogSession("session_end", e.session.ID, map[string]interface{}{
		"status":     status,
		"final_pnl":  pos.TotalPnL(),
		"ticks":      snap.TicksReceived,
		"malformed":  snap.MalformedTicks,
		"quotes":     snap.QuotesIssued,
		"fills":      snap.FillsSimulated,
	})
	e.logger.Info("engine stopped", zap.String("session_id", e.session.ID), zap.String("status", status))
}

// Health reports an error once the run has ended with status "stopped",
// i.e. after a kill-switch trip or an explicit Stop. A run that ended by
// duration expiry or transport close reports healthy.
func (e *Engine) Health() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state == Stopped && e.session.Status == "stopped" {
		return fmt.Errorf("engine: session %s ended abnormally", e.session.ID)
	}
	return nil
}

// Stats returns a snapshot of the engine's running counters.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// nowRFC3339 stamps sink rows the same way logging timestamps log lines.
func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

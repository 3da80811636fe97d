// Package metrics exposes the engine's live state as Prometheus gauges and
// counters and serves them over HTTP for scraping.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"asmm-engine/latency"
)

var (
	// ReservationPrice is the current Avellaneda-Stoikov reservation
	// price for the active symbol.
	ReservationPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "asmm_reservation_price",
		Help: "Current inventory-skewed reservation price.",
	})

	// QuoteSpreadBps is the current half-spread-derived quote spread in
	// basis points.
	QuoteSpreadBps = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "asmm_quote_spread_bps",
		Help: "Current quote spread in basis points.",
	})

	// VolatilityCurrent is the live annualized volatility estimate.
	VolatilityCurrent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "asmm_volatility_current",
		Help: "Current EWMA-estimated annualized volatility.",
	})

	// InventoryNet is the current net position quantity.
	InventoryNet = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "asmm_inventory_net",
		Help: "Current net position quantity for the active symbol.",
	})

	// InventoryRatio is |inventory| / max_inventory, the ratio the risk
	// gate widens spreads against.
	InventoryRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "asmm_inventory_ratio",
		Help: "Absolute inventory as a fraction of configured max inventory.",
	})

	// RealizedPnL, UnrealizedPnL, TotalPnL mirror the position tracker's
	// aggregate totals.
	RealizedPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "asmm_realized_pnl",
		Help: "Cumulative realized P&L across all symbols.",
	})
	UnrealizedPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "asmm_unrealized_pnl",
		Help: "Cumulative unrealized (marked) P&L across all symbols.",
	})
	TotalPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "asmm_total_pnl",
		Help: "Realized plus unrealized P&L across all symbols.",
	})

	// TicksProcessed, QuotesGenerated, FillsSimulated, ParseFailures are
	// monotonic run counters.
	TicksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asmm_ticks_processed_total",
		Help: "Total number of frames successfully parsed and processed.",
	})
	QuotesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asmm_quotes_generated_total",
		Help: "Total number of valid quotes generated.",
	})
	FillsSimulated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asmm_fills_simulated_total",
		Help: "Total number of simulated passive fills.",
	})
	ParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asmm_parse_failures_total",
		Help: "Total number of malformed frames dropped by the parser.",
	})

	// KillSwitchTripped is 1 once the P&L kill switch has fired this run.
	KillSwitchTripped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "asmm_kill_switch_tripped",
		Help: "1 if the P&L kill switch has tripped this run, else 0.",
	})
)

// init registers package latency's per-stage histogram with the default
// registry so it is served on /metrics.
func init() {
	prometheus.MustRegister(latency.Collector())
}

// UpdateQuoteMetrics refreshes the gauges derived from a single quoting
// step.
func UpdateQuoteMetrics(reservationPrice, spreadBps, volatility, inventory, maxInventory float64) {
	ReservationPrice.Set(reservationPrice)
	QuoteSpreadBps.Set(spreadBps)
	VolatilityCurrent.Set(volatility)
	InventoryNet.Set(inventory)
	if maxInventory > 0 {
		ratio := inventory / maxInventory
		if ratio < 0 {
			ratio = -ratio
		}
		InventoryRatio.Set(ratio)
	}
}

// UpdatePnLMetrics refreshes the gauges derived from the position tracker.
func UpdatePnLMetrics(realized, unrealized float64) {
	RealizedPnL.Set(realized)
	UnrealizedPnL.Set(unrealized)
	TotalPnL.Set(realized + unrealized)
}

// Server wraps an HTTP server exposing /metrics, built once so it can be
// registered with a lifecycle manager and shut down gracefully.
type Server struct {
	addr   string
	server *http.Server
}

// NewServer builds a Server bound to addr. A nil Server (empty addr) means
// metrics exposition is disabled for this run.
func NewServer(addr string) *Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/latency", latencyHandler())
	return &Server{addr: addr, server: &http.Server{Addr: addr, Handler: mux}}
}

// Start runs the HTTP server in a background goroutine. Errors other than
// a clean shutdown are surfaced via errCh.
func (s *Server) Start(errCh chan<- error) {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
}

// Stop gracefully shuts the server down within the given timeout.
func (s *Server) Stop(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// latencyHandler exposes the latency meter's global percentile report as
// plain text, a convenience alongside the Prometheus histogram also fed by
// package latency.
var globalMeter *latency.Meter

// SetLatencyMeter registers the meter /latency should report from.
func SetLatencyMeter(m *latency.Meter) {
	globalMeter = m
}

func latencyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if globalMeter == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(globalMeter.Report()))
	})
}

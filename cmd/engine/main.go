package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"asmm-engine/config"
	"asmm-engine/container"
	"asmm-engine/engine"
	"asmm-engine/fill"
	"asmm-engine/latency"
	"asmm-engine/logging"
	"asmm-engine/metrics"
	"asmm-engine/position"
	"asmm-engine/quote"
	"asmm-engine/risk"
	"asmm-engine/sink"
	"asmm-engine/tick"
	"asmm-engine/transport"
	"asmm-engine/volatility"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "path to YAML config file")
	wsURL := flag.String("ws", "", "venue websocket URL; empty runs the built-in simulated source")
	watchConfig := flag.Bool("watch-config", true, "hot-reload ambient config on file change")
	flag.Parse()

	durationSeconds := 120
	if args := flag.Args(); len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
			durationSeconds = v
		} else {
			log.Printf("invalid duration argument %q, using default %ds", args[0], durationSeconds)
		}
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Outputs:    cfg.Logging.Outputs,
		OutputFile: cfg.Logging.OutputFile,
		ErrorFile:  cfg.Logging.ErrorFile,
		Format:     cfg.Logging.Format,
	})
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Close()

	mgr := container.NewManager()

	metricsServer := metrics.NewServer(cfg.Metrics.Addr)
	if metricsServer != nil {
		mgr.Register("metrics", &container.FuncComponent{
			StartFunc: func(ctx context.Context) error {
				errCh := make(chan error, 1)
				metricsServer.Start(errCh)
				return nil
			},
			StopFunc: func() error { return metricsServer.Stop(5 * time.Second) },
		})
	}

	latencyMeter := latency.NewMeter()
	metrics.SetLatencyMeter(latencyMeter)

	var source transport.Source
	if *wsURL != "" {
		source = transport.NewWebSocketSource(*wsURL)
	} else {
		source = transport.NewSimulated(cfg.Symbol, 50000, 50*time.Millisecond, cfg.Fill.Seed)
	}

	quoteCfg := quote.Config{
		RiskAversion:     cfg.Quote.RiskAversion,
		Volatility:       cfg.Quote.Volatility,
		TimeHorizon:      cfg.Quote.TimeHorizon,
		InventoryPenalty: cfg.Quote.InventoryPenalty,
		Size:             cfg.Quote.Size,
	}
	riskGate := risk.NewGateWithThresholds(cfg.Risk.KillSwitchThreshold, cfg.Risk.MaxInventory, cfg.Risk.MaxSpreadMultiplier)

	store := sink.NewLogStore(logger)
	batcher := sink.NewBatcher(store, logger, cfg.Sink.BatchSize)

	eng, err := engine.New(engine.Config{
		Symbol:         cfg.Symbol,
		Duration:       time.Duration(durationSeconds) * time.Second,
		StatusInterval: 10 * time.Second,
	}, engine.Components{
		Source:    source,
		Logger:    logger,
		Parser:    tick.NewParser(),
		Vol:       volatility.NewEstimator(volatility.DefaultAlpha, volatility.DefaultFloor),
		QuoteGen:  quote.NewGenerator(quoteCfg),
		RiskGate:  riskGate,
		FillSim:   fill.NewSimulatorSeeded(cfg.Fill.Seed),
		Positions: position.NewTracker(),
		Batcher:   batcher,
		Latency:   latencyMeter,
	})
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}

	mgr.Register("engine", &container.FuncComponent{
		StartFunc: eng.Start,
		StopFunc:  eng.Stop,
		HealthFunc: eng.Health,
	})

	if *watchConfig {
		watcher, err := config.NewWatcher(*cfgPath, config.DefaultWatchConfig(), func(ambient config.AppConfig) error {
			riskGate.SetKillSwitchThreshold(ambient.Risk.KillSwitchThreshold)
			riskGate.SetMaxInventory(ambient.Risk.MaxInventory)
			riskGate.SetMaxSpreadMultiplier(ambient.Risk.MaxSpreadMultiplier)
			batcher.SetBatchSize(ambient.Sink.BatchSize)
			logger.LogSession("config_reload", eng.Session().ID, nil)
			return nil
		})
		if err != nil {
			log.Fatalf("build config watcher: %v", err)
		}
		mgr.Register("config-watcher", &container.FuncComponent{
			StartFunc: watcher.Start,
			StopFunc:  watcher.Stop,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mgr.StartAll(ctx); err != nil {
		log.Fatalf("start components: %v", err)
	}

	if ok, _ := daemon.SdNotify(false, daemon.SdNotifyReady); !ok {
		logger.Debug("systemd notify socket not present, skipping READY=1")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	watchdogDone := startWatchdog(ctx)
	defer close(watchdogDone)

	select {
	case <-stop:
		logger.LogSession("signal_received", eng.Session().ID, nil)
	case <-ctx.Done():
	case <-eng.Done():
		logger.LogSession("engine_done", eng.Session().ID, map[string]interface{}{"status": eng.Session().Status})
	}

	cancel()
	if err := mgr.StopAll(); err != nil {
		logger.LogRiskEvent("shutdown_error", map[string]interface{}{"error": err.Error()})
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// startWatchdog periodically pings systemd's watchdog, if one is
// configured, so the unit isn't killed as unresponsive while the engine's
// run loop is healthy. Closing the returned channel stops the ping.
func startWatchdog(ctx context.Context) chan struct{} {
	done := make(chan struct{})
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return done
	}
	go func() {
		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
	return done
}

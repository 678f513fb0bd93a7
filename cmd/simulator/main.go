package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/signalsfoundry/orbital-energy-sim/core"
	"github.com/signalsfoundry/orbital-energy-sim/internal/api"
	"github.com/signalsfoundry/orbital-energy-sim/internal/chain"
	"github.com/signalsfoundry/orbital-energy-sim/internal/logging"
	"github.com/signalsfoundry/orbital-energy-sim/internal/observability"
)

func main() {
	addr := flag.String("addr", ":8000", "HTTP address the simulation API listens on")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	tick := flag.Duration("tick", 0, "tick period override (0 keeps the default)")
	scenarioPath := flag.String("scenario", "", "path to a JSON scenario (empty seeds the stock fleet)")
	ledgerDB := flag.String("ledger-db", "", "path to a SQLite file mirroring notable transactions (empty disables)")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	collector, err := observability.NewSimCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	tracingShutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}

	cfg := core.DefaultConfig()
	if *tick > 0 {
		cfg.TickPeriod = *tick
	}

	var mirror core.LedgerMirror
	var sqliteMirror *chain.SQLiteMirror
	if *ledgerDB != "" {
		sqliteMirror, err = chain.NewSQLiteMirror(*ledgerDB, log)
		if err != nil {
			log.Error(ctx, "failed to open ledger mirror", logging.String("path", *ledgerDB), logging.String("error", err.Error()))
			os.Exit(1)
		}
		mirror = sqliteMirror
	}

	world := core.NewWorld()
	events := core.NewEventLog(cfg.EventLogCapacity)
	notify := core.MultiNotifier(events, core.NotifierFunc(func(eventType string, payload map[string]any) {
		switch eventType {
		case "task.assigned":
			collector.IncTaskAssigned()
		case "task.completed":
			collector.IncTaskCompleted()
		case "transaction.completed":
			if label := transferLabel(eventType, payload); label != "" {
				collector.IncTransfer(label)
			}
			if cost, ok := payload["cost"].(float64); ok {
				collector.AddTradedVolume(cost)
			}
		}
		log.Debug(context.Background(), "event",
			logging.String("type", eventType),
			logging.Any("payload", payload))
	}))

	seedWorld(world, cfg, *scenarioPath, log)

	econ := core.NewEconomics(world, cfg, notify, log, mirror)
	delegator := core.NewDelegator(world, cfg, notify)
	satTicker := core.NewSatelliteTicker(world, cfg, notify, log)
	orch := core.NewOrchestrator(world, cfg, econ, notify, log)
	monitor := core.NewEquilibriumMonitor(world, cfg, notify, log)
	loadgen := core.NewLoadGenerator(world, log)

	scheduler := core.NewScheduler(
		world, cfg, delegator, satTicker, orch, monitor, notify, log,
		core.WithTickMetrics(collector),
		core.WithTracer(otel.Tracer("simulator")),
	)
	scheduler.Start()

	server := api.NewServer(world, cfg, orch, econ, loadgen, events, log)
	router := api.NewRouter(server, collector)

	httpSrv := &http.Server{
		Addr:    *addr,
		Handler: router,
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(context.Background(), "http server exited", logging.String("error", err.Error()))
		}
	}()
	log.Info(ctx, "simulation API listening", logging.String("addr", *addr))

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-stopCtx.Done()

	log.Info(ctx, "shutting down simulator")
	loadgen.Stop()
	scheduler.Stop(2 * cfg.TickPeriod)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if sqliteMirror != nil {
		_ = sqliteMirror.Close()
	}
	observability.ShutdownWithTimeout(context.Background(), tracingShutdown, log)
}

// seedWorld loads the scenario file when given, falling back to the
// stock fleet on an empty path.
func seedWorld(world *core.World, cfg *core.Config, path string, log logging.Logger) {
	ctx := context.Background()

	if path == "" {
		sum := core.SeedDefault(world, cfg)
		log.Info(ctx, "seeded stock scenario",
			logging.Int("satellites", len(sum.SatelliteIDs)),
			logging.Int("drones", len(sum.DroneIDs)))
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Error(ctx, "failed to open scenario", logging.String("path", path), logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer f.Close()

	sum, err := core.LoadScenario(world, cfg, f)
	if err != nil {
		log.Error(ctx, "failed to load scenario", logging.String("path", path), logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "loaded scenario",
		logging.String("path", path),
		logging.Int("satellites", len(sum.SatelliteIDs)),
		logging.Int("drones", len(sum.DroneIDs)))
}

// transferLabel maps transaction events onto the transfer counter label;
// other event types return "" and are not counted.
func transferLabel(eventType string, payload map[string]any) string {
	if eventType != "transaction.completed" {
		return ""
	}
	if t, ok := payload["type"].(string); ok {
		return t
	}
	return "unknown"
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

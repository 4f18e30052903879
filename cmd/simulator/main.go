package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/subseaworks/corridor-simulator/core"
	"github.com/subseaworks/corridor-simulator/internal/api"
	"github.com/subseaworks/corridor-simulator/internal/logging"
	"github.com/subseaworks/corridor-simulator/internal/observability"
	"github.com/subseaworks/corridor-simulator/timectrl"
)

func main() {
	listen := flag.String("listen", ":8080", "HTTP listen address for the API surface")
	seed := flag.Int64("seed", time.Now().UnixNano(), "RNG seed for assessment and isolation streams")
	dilation := flag.Float64("dilation", 1.0, "initial time dilation factor")
	missionTick := flag.Duration("mission-tick", 100*time.Millisecond, "mission tick interval (AUV physics)")
	worldTick := flag.Duration("world-tick", 500*time.Millisecond, "world tick interval (hazards, sectors, isolation)")
	accelerated := flag.Bool("accelerated", false, "run ticks as fast as possible instead of real-time")
	inject := flag.String("inject", "", "hazard to inject at startup, as kind:asset:kp:severity")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	simMetrics, err := observability.NewSimCollector(nil)
	if err != nil {
		log.Error(ctx, "metrics init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	apiMetrics, err := observability.NewAPICollector(nil)
	if err != nil {
		log.Error(ctx, "metrics init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	sim := core.NewSimulation(core.Config{
		Seed:    *seed,
		Logger:  log,
		Metrics: simMetrics,
	})
	if err := sim.SetTimeDilation(*dilation); err != nil {
		log.Error(ctx, "invalid dilation", logging.String("error", err.Error()))
		os.Exit(1)
	}

	if *inject != "" {
		if err := injectStartupHazard(sim, *inject); err != nil {
			log.Error(ctx, "startup hazard rejected", logging.String("error", err.Error()))
			os.Exit(1)
		}
	}

	mode := timectrl.RealTime
	if *accelerated {
		mode = timectrl.Accelerated
	}
	sched := timectrl.NewScheduler(sim, *missionTick, *worldTick, mode)
	schedDone := sched.Run(ctx)

	server := api.NewServer(sim, log,
		api.WithMetricsHandler(simMetrics.Handler()),
		api.WithAPIMetrics(apiMetrics),
	)
	httpServer := &http.Server{
		Addr:    *listen,
		Handler: server.Router(),
	}

	go func() {
		log.Info(ctx, "API listening", logging.String("addr", *listen))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logging.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	<-schedDone
}

// injectStartupHazard parses a kind:asset:kp:severity argument and applies
// it before the scheduler starts.
func injectStartupHazard(sim *core.Simulation, arg string) error {
	parts := strings.Split(arg, ":")
	if len(parts) != 4 {
		return fmt.Errorf("expected kind:asset:kp:severity, got %q", arg)
	}
	kp, err := strconv.Atoi(parts[2])
	if err != nil {
		return fmt.Errorf("bad kilometre-point %q: %w", parts[2], err)
	}
	_, err = sim.InjectHazard(parts[0], parts[1], kp, parts[3])
	return err
}

package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/argie33/algo-sub006/internal/api"
	"github.com/argie33/algo-sub006/internal/config"
	"github.com/argie33/algo-sub006/internal/logger"
	"github.com/argie33/algo-sub006/internal/monitoring"
	"github.com/argie33/algo-sub006/internal/quality"
	"github.com/argie33/algo-sub006/internal/scheduler"
)

func main() {
	var (
		configFile = flag.String("config", "config/config.yaml", "Configuration file path")
		demo       = flag.Bool("demo", false, "Feed synthetic market data for local testing")
	)
	flag.Parse()

	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.Logging)
	log.Info("starting quality engine", "name", cfg.App.Name, "version", cfg.App.Version, "env", cfg.App.Env)

	monitor, err := quality.NewMonitor(cfg.Quality, log)
	if err != nil {
		log.Fatal("failed to create quality monitor", "error", err)
	}

	metrics := monitoring.NewMetrics()
	unbind := metrics.Bind(monitor)
	defer unbind()

	sched := scheduler.New(log)
	interval := cfg.Quality.AggregationInterval.Std()
	if err := sched.Add("aggregate-system-metrics", "@every "+interval.String(), func() error {
		metrics.SetSystem(monitor.Tick())
		return nil
	}); err != nil {
		log.Fatal("failed to schedule aggregation", "error", err)
	}
	sched.Start()

	server := api.NewServer(cfg, monitor, metrics, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("api server failed", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *demo {
		go runDemoFeed(ctx, monitor, log)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("received shutdown signal", "signal", sig.String())

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("error during server shutdown", "error", err)
	}
	log.Info("quality engine stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}

// runDemoFeed pushes synthetic price records through the monitor so the API
// and metrics surfaces have something to show without a live data source.
func runDemoFeed(ctx context.Context, monitor *quality.Monitor, log logger.Logger) {
	symbols := []struct {
		name  string
		price float64
	}{
		{"AAPL", 187.40},
		{"MSFT", 415.20},
		{"BTC-USD", 64200.00},
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for i := range symbols {
				drift := 1 + (rng.Float64()-0.5)*0.01
				symbols[i].price *= drift

				record := quality.Record{
					"symbol":    symbols[i].name,
					"price":     symbols[i].price,
					"volume":    float64(rng.Intn(5_000_000) + 100_000),
					"timestamp": time.Now(),
				}
				// Occasionally drop volume to exercise completeness scoring.
				if rng.Intn(20) == 0 {
					delete(record, "volume")
				}

				if _, err := monitor.Validate(symbols[i].name, record, "demo-feed"); err != nil {
					log.Warn("demo feed validation error", "symbol", symbols[i].name, "error", err)
				}
			}
		}
	}
}

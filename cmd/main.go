package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	pl "github.com/HannahMarsh/PrettyLogger"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/config"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/data"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/experiment"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/exp/slog"
)

func main() {
	logLevel := flag.String("log-level", "info", "Log level")
	configFile := flag.String("config", "config.yml", "Configuration file")
	prefix := flag.String("output-prefix", "", "Prefix of the CSV and JSON result files (default: timestamp)")
	workers := flag.Int("workers", -1, "Number of parallel queries (default: from config)")

	flag.Usage = flag.PrintDefaults
	flag.Parse()

	pl.SetUpLogrusAndSlog(*logLevel)

	// set GOMAXPROCS
	if _, err := maxprocs.Set(); err != nil {
		slog.Error("failed to set max procs", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load config", err)
		os.Exit(1)
	}
	if *workers >= 0 {
		cfg.Output.Workers = *workers
	}
	if *prefix != "" {
		cfg.Output.CSV = *prefix + ".csv"
		cfg.Output.JSON = *prefix + ".json"
	} else if cfg.Output.CSV == "" && cfg.Output.JSON == "" && cfg.Output.Postgres == "" {
		cfg.Output.CSV = time.Now().Format("2006-01-02_15:04:05") + ".csv"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStores(ctx, cfg.Output)
	if err != nil {
		slog.Error("failed to open result stores", err)
		os.Exit(1)
	}

	// Create a channel to receive OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Printf("Received signal: %s\n", sig)
		cancel()
	}()

	queries := experiment.Queries(cfg)
	slog.Info("starting sweep", "queries", len(queries), "workers", cfg.Output.Workers)

	reports, err := experiment.Sweep(ctx, cfg, store)
	if closeErr := store.Close(); closeErr != nil {
		slog.Error("failed to close result stores", closeErr)
	}
	if err != nil {
		slog.Error("sweep failed", err)
		os.Exit(1)
	}
	slog.Info("All data collected", "reports", len(reports), "csv", cfg.Output.CSV, "json", cfg.Output.JSON)
}

func openStores(ctx context.Context, out config.Output) (data.MultiStore, error) {
	stores := make(data.MultiStore, 0)
	if out.CSV != "" {
		s, err := data.NewCSVStore(out.CSV)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	if out.JSON != "" {
		stores = append(stores, data.NewJSONStore(out.JSON))
	}
	if out.Postgres != "" {
		s, err := data.NewPostgresStore(ctx, out.Postgres)
		if err != nil {
			_ = stores.Close()
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, nil
}

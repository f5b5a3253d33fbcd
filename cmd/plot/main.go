package main

import (
	"flag"
	"os"
	"strings"

	pl "github.com/HannahMarsh/PrettyLogger"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/data"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/display"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
	"golang.org/x/exp/slog"
)

func main() {
	logLevel := flag.String("log-level", "info", "Log level")
	input := flag.String("input", "results.csv", "Report file written by a sweep (.csv, .json or .json.gz)")
	estimators := flag.String("estimators", "first_reach,first_sent,shortest_path,dummy", "Comma separated estimators to plot")
	output := flag.String("output", "plots", "Output directory")
	buckets := flag.Int("buckets", 10, "Number of histogram buckets")

	flag.Usage = flag.PrintDefaults
	flag.Parse()

	pl.SetUpLogrusAndSlog(*logLevel)

	reports, err := readReports(*input)
	if err != nil {
		slog.Error("failed to read reports", err)
		os.Exit(1)
	}
	slog.Info("loaded reports", "count", len(reports), "input", *input)

	names := utils.Map(strings.Split(*estimators, ","), strings.TrimSpace)
	all, err := display.PlotAll(reports, names, *output, *buckets)
	if err != nil {
		slog.Error("failed to plot reports", err)
		os.Exit(1)
	}
	for _, estimator := range names {
		slog.Info("plots written", "estimator", estimator, "metrics", all[estimator].Metrics, "spread", all[estimator].Spread)
	}
}

func readReports(path string) ([]data.Report, error) {
	if strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".json.gz") {
		return data.ReadJSON(path)
	}
	return data.ReadCSV(path)
}

package display

import (
	"fmt"
	"image/color"
	"os"
	"runtime"
	"sync"

	pl "github.com/HannahMarsh/PrettyLogger"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/data"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

const (
	MetricHitRatio    = "hit_ratio"
	MetricInverseRank = "inverse_rank"
	MetricEntropy     = "entropy"
	MetricNDCG        = "ndcg"
	MetricSpreadRatio = "message_spread_ratio"
)

// Metrics lists the report columns that can be plotted against the adversary ratio.
var Metrics = []string{MetricHitRatio, MetricInverseRank, MetricEntropy, MetricNDCG}

var barColor = color.RGBA{R: 173, G: 202, B: 237, A: 255}

// Images maps each generated chart to its file path.
type Images struct {
	Metrics map[string]string `json:"metrics"`
	Spread  string            `json:"spread"`
}

// PlotReports renders one chart per metric for the given estimator, with one
// line per protocol, plus a histogram of message spread ratios. Files are
// written into dir, which is created if missing.
func PlotReports(reports []data.Report, estimator, dir string, numBuckets int) (Images, error) {
	stream := utils.NewStream(reports).Filter(func(r data.Report) bool { return r.Estimator == estimator })
	filtered := stream.Values()
	if len(filtered) == 0 {
		return Images{}, errs.Config("display.PlotReports()", "no reports for estimator %q", estimator)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Images{}, pl.WrapError(err, "failed to create plot directory")
	}

	images := Images{Metrics: make(map[string]string, len(Metrics))}
	for _, metric := range Metrics {
		series, err := summarize(filtered, estimator, metric)
		if err != nil {
			return Images{}, err
		}
		path, err := createLinePlot(dir, fmt.Sprintf("%s_%s", estimator, metric), series,
			fmt.Sprintf("%s (%s estimator)", metric, estimator), "adversary ratio", metric)
		if err != nil {
			return Images{}, pl.WrapError(err, "failed to plot %s", metric)
		}
		images.Metrics[metric] = path
	}

	spread := stream.MapToFloat64(func(r data.Report) float64 { return r.MessageSpreadRatio }).Values()
	path, err := createHistogramPlot(dir, fmt.Sprintf("%s_%s", estimator, MetricSpreadRatio), computeHistogram(spread, numBuckets),
		fmt.Sprintf("Message spread ratio (mean=%.3f)", stat.Mean(spread, nil)), "spread ratio", "Frequency (# of runs)")
	if err != nil {
		return Images{}, pl.WrapError(err, "failed to plot spread ratios")
	}
	images.Spread = path
	return images, nil
}

// PlotAll runs PlotReports for every estimator in parallel. It stops at the
// first estimator that fails.
func PlotAll(reports []data.Report, estimators []string, dir string, numBuckets int) (map[string]Images, error) {
	var mu sync.Mutex
	all := make(map[string]Images, len(estimators))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, estimator := range estimators {
		estimator := estimator
		g.Go(func() error {
			images, err := PlotReports(reports, estimator, dir, numBuckets)
			if err != nil {
				return pl.WrapError(err, "display.PlotAll(): estimator %s", estimator)
			}
			mu.Lock()
			all[estimator] = images
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

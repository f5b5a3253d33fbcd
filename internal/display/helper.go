package display

import (
	"fmt"
	"image/color"
	"path/filepath"

	pl "github.com/HannahMarsh/PrettyLogger"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/data"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

type bucket struct {
	min, max float64
	count    int
}

func (b bucket) contains(value float64) bool {
	return b.min <= value && value <= b.max
}

// metricValue picks a named column out of a report.
func metricValue(r data.Report, metric string) (float64, error) {
	switch metric {
	case MetricHitRatio:
		return r.HitRatio, nil
	case MetricInverseRank:
		return r.InverseRank, nil
	case MetricEntropy:
		return r.Entropy, nil
	case MetricNDCG:
		return r.NDCG, nil
	case MetricSpreadRatio:
		return r.MessageSpreadRatio, nil
	default:
		return 0, errs.Config("display.metricValue()", "unknown metric %q", metric)
	}
}

// summarize averages a metric over trials, keyed by protocol then adversary ratio.
// Points of each series are sorted by ratio.
func summarize(reports []data.Report, estimator, metric string) (map[string]plotter.XYs, error) {
	grouped := make(map[string]map[float64][]float64)
	for _, r := range reports {
		if r.Estimator != estimator {
			continue
		}
		v, err := metricValue(r, metric)
		if err != nil {
			return nil, err
		}
		if _, ok := grouped[r.Protocol]; !ok {
			grouped[r.Protocol] = make(map[float64][]float64)
		}
		grouped[r.Protocol][r.AdversaryRatio] = append(grouped[r.Protocol][r.AdversaryRatio], v)
	}

	series := make(map[string]plotter.XYs, len(grouped))
	for protocol, byRatio := range grouped {
		ratios := utils.SortedKeys(byRatio)
		pts := make(plotter.XYs, len(ratios))
		for i, ratio := range ratios {
			pts[i].X = ratio
			pts[i].Y = stat.Mean(byRatio[ratio], nil)
		}
		series[protocol] = pts
	}
	return series, nil
}

func computeHistogram(values []float64, numBuckets int) []bucket {
	if len(values) == 0 {
		return nil
	}
	numBuckets = utils.Max(numBuckets, 5)
	sorted := utils.Copy(values)
	utils.SortOrdered(sorted)
	xMin, xMax := sorted[0], sorted[len(sorted)-1]
	width := (xMax - xMin) / float64(numBuckets)

	buckets := make([]bucket, numBuckets)
	for i := range buckets {
		buckets[i] = bucket{min: xMin + float64(i)*width, max: xMin + float64(i+1)*width}
	}
	buckets[numBuckets-1].max = xMax
	for _, v := range sorted {
		if i := utils.FindIndex(buckets, func(b bucket) bool { return b.contains(v) }); i >= 0 {
			buckets[i].count++
		}
	}
	return buckets
}

func createLinePlot(dir, file string, series map[string]plotter.XYs, title, xLabel, yLabel string) (string, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = true

	args := make([]interface{}, 0, 2*len(series))
	for _, protocol := range utils.SortedKeys(series) {
		args = append(args, protocol, series[protocol])
	}
	if err := plotutil.AddLinePoints(p, args...); err != nil {
		return "", pl.WrapError(err, "failed to add line points")
	}

	path := filepath.Join(dir, file+".png")
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", pl.WrapError(err, "failed to save plot")
	}
	return path, nil
}

func createHistogramPlot(dir, file string, buckets []bucket, title, xLabel, yLabel string) (string, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	labels := make([]string, len(buckets))
	counts := make(plotter.Values, len(buckets))
	for i, b := range buckets {
		labels[i] = fmt.Sprintf("%.2f", b.min)
		counts[i] = float64(b.count)
	}

	barWidth := 8 * vg.Inch / vg.Length(int(float64(len(buckets))*1.2)+1)
	bars, err := plotter.NewBarChart(counts, barWidth)
	if err != nil {
		return "", pl.WrapError(err, "failed to create bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = color.Color(barColor)
	p.Add(bars)
	p.NominalX(labels...)

	path := filepath.Join(dir, file+".png")
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return "", pl.WrapError(err, "failed to save plot")
	}
	return path, nil
}

package simulation

import (
	"math"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/adversary"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/data"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/message"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
	"gonum.org/v1/gonum/stat"
)

// Evaluator scores the source predictions of one estimator against the
// true message sources.
type Evaluator struct {
	sim         *Simulator
	estimator   adversary.Estimator
	predictions *adversary.Predictions
	ranks       []int
}

func NewEvaluator(sim *Simulator, estimator adversary.Estimator) (*Evaluator, error) {
	if !sim.hasRun {
		return nil, errs.State("simulation.NewEvaluator()", "the simulation has not been run")
	}
	ids := utils.Map(sim.messages, func(m *message.Message) string {
		return m.ID()
	})
	preds, err := sim.adversary.Predict(estimator, ids)
	if err != nil {
		return nil, errs.Wrap(err, "simulation.NewEvaluator(): prediction failed")
	}
	e := &Evaluator{sim: sim, estimator: estimator, predictions: preds}
	e.ranks = make([]int, len(sim.messages))
	for i, m := range sim.messages {
		e.ranks[i] = rankOf(preds.Rows[i], preds.Column(m.Source()))
	}
	return e, nil
}

// rankOf is the 1-based position of column j when row is sorted in
// decreasing order, ties going to the lower column.
func rankOf(row []float64, j int) int {
	rank := 1
	for k, p := range row {
		if p > row[j] || (p == row[j] && k < j) {
			rank++
		}
	}
	return rank
}

func (e *Evaluator) Predictions() *adversary.Predictions {
	return e.predictions
}

func (e *Evaluator) Ranks() []int {
	return utils.Copy(e.ranks)
}

// ExactHits is 1 for every message whose source got the top rank, 0 otherwise.
func (e *Evaluator) ExactHits() []float64 {
	return utils.Map(e.ranks, func(r int) float64 {
		if r == 1 {
			return 1
		}
		return 0
	})
}

func (e *Evaluator) InverseRanks() []float64 {
	return utils.Map(e.ranks, func(r int) float64 {
		return 1 / float64(r)
	})
}

func (e *Evaluator) NDCG() []float64 {
	return utils.Map(e.ranks, func(r int) float64 {
		return 1 / math.Log2(1+float64(r))
	})
}

// Entropies is the Shannon entropy of every prediction row, in bits.
func (e *Evaluator) Entropies() []float64 {
	return utils.Map(e.predictions.Rows, func(row []float64) float64 {
		return stat.Entropy(row) / math.Ln2
	})
}

// MessageSpreadRatios is the fraction of nodes every message reached.
func (e *Evaluator) MessageSpreadRatios() []float64 {
	n := float64(e.sim.adversary.Network().NumNodes())
	return utils.Map(e.sim.messages, func(m *message.Message) float64 {
		return float64(m.Reached()) / n
	})
}

// Report averages every metric over the messages.
func (e *Evaluator) Report() data.Report {
	return data.Report{
		Estimator:          string(e.estimator),
		HitRatio:           stat.Mean(e.ExactHits(), nil),
		InverseRank:        stat.Mean(e.InverseRanks(), nil),
		Entropy:            stat.Mean(e.Entropies(), nil),
		NDCG:               stat.Mean(e.NDCG(), nil),
		MessageSpreadRatio: stat.Mean(e.MessageSpreadRatios(), nil),
	}
}

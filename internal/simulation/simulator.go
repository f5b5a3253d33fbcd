package simulation

import (
	"math/rand"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/adversary"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/message"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/network"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/protocol"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
	"golang.org/x/exp/slog"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultCoverageThreshold = 1.0
	DefaultMaxTrials         = 100
)

type Options struct {
	Seed int64
	// UseNodeWeights samples message sources proportionally to node weights.
	UseNodeWeights bool
}

// Simulator spreads a batch of messages from honest sources while one
// adversary listens.
type Simulator struct {
	adversary *adversary.Adversary
	messages  []*message.Message
	hasRun    bool
}

func New(adv *adversary.Adversary, numMessages int, opts Options) (*Simulator, error) {
	if numMessages < 1 {
		return nil, errs.Config("simulation.New()", "need at least one message, got %d", numMessages)
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	sources, err := adv.Network().SampleRandomNodes(numMessages, network.SampleOptions{
		Replace:    true,
		UseWeights: opts.UseNodeWeights,
		Exclude:    adv.Nodes(),
		Rng:        rng,
	})
	if err != nil {
		return nil, errs.Wrap(err, "simulation.New(): failed to sample message sources")
	}
	messages := make([]*message.Message, len(sources))
	for i, source := range sources {
		messages[i] = message.New(source, rng)
	}
	return &Simulator{adversary: adv, messages: messages}, nil
}

// Run spreads every message until it reaches coverageThreshold of the
// nodes, runs out of events, or fails to reach a new node in maxTrials
// consecutive steps. Events still in flight are then delivered to the
// adversary without being forwarded.
func (s *Simulator) Run(coverageThreshold float64, maxTrials int) error {
	if coverageThreshold <= 0 || coverageThreshold > 1 {
		return errs.Config("simulation.Simulator.Run()", "coverage threshold must be in (0, 1], got %v", coverageThreshold)
	}
	if maxTrials < 1 {
		return errs.Config("simulation.Simulator.Run()", "max trials must be positive, got %d", maxTrials)
	}
	for _, m := range s.messages {
		coverage, trials := 0.0, 0
		for coverage < coverageThreshold {
			c, _, empty := m.Process(s.adversary)
			if empty {
				break
			}
			if c > coverage {
				coverage, trials = c, 0
				continue
			}
			if trials++; trials >= maxTrials {
				slog.Debug("message stalled", "message", m.ID(), "coverage", coverage, "trials", trials)
				break
			}
		}
		m.FlushQueue(s.adversary)
	}
	s.hasRun = true
	return nil
}

// NodeContactTimeQuantiles computes, for every message, the given quantiles
// of the time it took to first reach each node, and returns their mean and
// standard deviation over messages.
func (s *Simulator) NodeContactTimeQuantiles(qs ...float64) (means, stds []float64, err error) {
	if !s.hasRun {
		return nil, nil, errs.State("simulation.Simulator.NodeContactTimeQuantiles()", "the simulation has not been run")
	}
	for _, q := range qs {
		if q < 0 || q > 1 {
			return nil, nil, errs.Config("simulation.Simulator.NodeContactTimeQuantiles()", "quantile %v is outside [0, 1]", q)
		}
	}
	perQuantile := make([][]float64, len(qs))
	for _, m := range s.messages {
		times := make([]float64, 0, m.Reached())
		for _, t := range m.FirstContactTimes() {
			times = append(times, t)
		}
		utils.SortOrdered(times)
		for i, q := range qs {
			perQuantile[i] = append(perQuantile[i], stat.Quantile(q, stat.LinInterp, times, nil))
		}
	}
	means = make([]float64, len(qs))
	stds = make([]float64, len(qs))
	for i := range qs {
		means[i], stds[i] = stat.PopMeanStdDev(perQuantile[i], nil)
	}
	return means, stds, nil
}

func (s *Simulator) Messages() []*message.Message {
	return s.messages
}

func (s *Simulator) Adversary() *adversary.Adversary {
	return s.adversary
}

func (s *Simulator) Protocol() protocol.Protocol {
	return s.adversary.Protocol()
}

func (s *Simulator) HasRun() bool {
	return s.hasRun
}

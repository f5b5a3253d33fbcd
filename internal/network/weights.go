package network

import (
	"math"
	"math/rand"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
)

const (
	NodeWeightRandom = "random"
	NodeWeightStake  = "stake"

	EdgeWeightRandom     = "random"
	EdgeWeightNormal     = "normal"
	EdgeWeightUnweighted = "unweighted"
	EdgeWeightCustom     = "custom"
)

// Round trip times between Ethereum peers, in milliseconds.
const (
	normalLatencyMean = 171.0
	normalLatencyStd  = 76.0
	maxRandomLatency  = 1000.0
)

type NodeWeightGenerator struct {
	mode  string
	stake []float64
}

// NewNodeWeightGenerator validates mode. stake is the empirical distribution
// the "stake" mode draws from and is ignored otherwise.
func NewNodeWeightGenerator(mode string, stake []float64) (*NodeWeightGenerator, error) {
	switch mode {
	case NodeWeightRandom:
	case NodeWeightStake:
		if len(stake) == 0 {
			return nil, errs.Config("network.NewNodeWeightGenerator()", "stake mode needs a non-empty stake distribution")
		}
		for _, s := range stake {
			if s < 0 || math.IsNaN(s) {
				return nil, errs.Config("network.NewNodeWeightGenerator()", "stake values must be non-negative, got %v", s)
			}
		}
	default:
		return nil, errs.Config("network.NewNodeWeightGenerator()", "invalid node weight mode %q", mode)
	}
	return &NodeWeightGenerator{mode: mode, stake: utils.Copy(stake)}, nil
}

func (g *NodeWeightGenerator) Mode() string {
	return g.mode
}

// Generate assigns a weight to every node, in the order given.
func (g *NodeWeightGenerator) Generate(nodes []int64, r *rand.Rand) map[int64]float64 {
	weights := make(map[int64]float64, len(nodes))
	switch g.mode {
	case NodeWeightStake:
		values := g.stakeValues(len(nodes), r)
		for i, n := range nodes {
			weights[n] = values[i]
		}
	default:
		for _, n := range nodes {
			weights[n] = r.Float64()
		}
	}
	return weights
}

// stakeValues truncates a shuffled copy of the distribution to n values, or
// pads it by resampling when the distribution is shorter than n.
func (g *NodeWeightGenerator) stakeValues(n int, r *rand.Rand) []float64 {
	values := utils.GetShuffledCopy(r, g.stake)
	for len(values) < n {
		values = append(values, utils.RandomElement(r, g.stake))
	}
	return values[:n]
}

type EdgeWeightGenerator struct {
	mode     string
	fallback *EdgeWeightGenerator
}

func NewEdgeWeightGenerator(mode string) (*EdgeWeightGenerator, error) {
	switch mode {
	case EdgeWeightRandom, EdgeWeightNormal, EdgeWeightUnweighted, EdgeWeightCustom:
		return &EdgeWeightGenerator{mode: mode}, nil
	default:
		return nil, errs.Config("network.NewEdgeWeightGenerator()", "invalid edge weight mode %q", mode)
	}
}

func (g *EdgeWeightGenerator) Mode() string {
	return g.mode
}

// Derived returns the generator used for networks built on top of this
// one, e.g. anonymity graphs. Links of a derived network rarely carry a
// measured latency, so custom mode falls back to the normal RTT model.
func (g *EdgeWeightGenerator) Derived() *EdgeWeightGenerator {
	if g.mode != EdgeWeightCustom {
		return g
	}
	return &EdgeWeightGenerator{
		mode:     EdgeWeightCustom,
		fallback: &EdgeWeightGenerator{mode: EdgeWeightNormal},
	}
}

// Generate returns one latency per link. latencies is only read in custom mode.
func (g *EdgeWeightGenerator) Generate(links []Link, latencies map[Link]float64, r *rand.Rand) (map[Link]float64, error) {
	weights := make(map[Link]float64, len(links))
	for _, l := range links {
		w, err := g.weight(l, latencies, r)
		if err != nil {
			return nil, err
		}
		weights[l] = w
	}
	return weights, nil
}

func (g *EdgeWeightGenerator) weight(l Link, latencies map[Link]float64, r *rand.Rand) (float64, error) {
	switch g.mode {
	case EdgeWeightRandom:
		return r.Float64() * maxRandomLatency, nil
	case EdgeWeightNormal:
		return math.Max(0, r.NormFloat64()*normalLatencyStd+normalLatencyMean), nil
	case EdgeWeightUnweighted:
		return 1, nil
	default:
		if w, ok := latencies[l]; ok {
			if w < 0 {
				return 0, errs.Config("network.EdgeWeightGenerator.Generate()", "negative latency %v on edge (%d, %d)", w, l.U, l.V)
			}
			return w, nil
		}
		if g.fallback != nil {
			return g.fallback.weight(l, latencies, r)
		}
		return 0, errs.Config("network.EdgeWeightGenerator.Generate()", "missing latency for edge (%d, %d)", l.U, l.V)
	}
}

package network

import (
	"math/rand"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
)

type SampleOptions struct {
	Replace    bool
	UseWeights bool
	Exclude    []int64
	// Rng overrides the network's own generator, so that callers owning a
	// seeded generator keep their draws reproducible.
	Rng *rand.Rand
}

// SampleRandomNodes draws count nodes, uniformly or proportionally to the
// node weights. Excluded nodes leave both the candidates and the weight total.
func (n *Network) SampleRandomNodes(count int, opts SampleOptions) ([]int64, error) {
	r := opts.Rng
	if r == nil {
		r = n.rng
	}
	if count < 0 {
		return nil, errs.Config("network.SampleRandomNodes()", "negative sample size %d", count)
	}
	excluded := make(map[int64]bool, len(opts.Exclude))
	for _, id := range opts.Exclude {
		excluded[id] = true
	}
	candidates := utils.Filter(n.nodes, func(id int64) bool {
		return !excluded[id]
	})
	if count == 0 {
		return []int64{}, nil
	}
	if len(candidates) == 0 {
		return nil, errs.Config("network.SampleRandomNodes()", "no candidate nodes left to sample from")
	}
	if !opts.Replace && count > len(candidates) {
		return nil, errs.Config("network.SampleRandomNodes()", "cannot sample %d nodes without replacement from %d candidates", count, len(candidates))
	}

	var probs []float64
	if opts.UseWeights {
		probs = n.normalizedWeights(candidates)
	}

	sample := make([]int64, 0, count)
	switch {
	case probs == nil && opts.Replace:
		for i := 0; i < count; i++ {
			sample = append(sample, utils.RandomElement(r, candidates))
		}
	case probs == nil:
		sample = utils.RandomSubset(r, candidates, count)
	case opts.Replace:
		for i := 0; i < count; i++ {
			sample = append(sample, candidates[utils.WeightedIndex(r, probs)])
		}
	default:
		idx := utils.WeightedSubset(r, probs, count)
		if len(idx) < count {
			return nil, errs.Config("network.SampleRandomNodes()", "only %d candidates have positive weight, %d requested", len(idx), count)
		}
		for _, i := range idx {
			sample = append(sample, candidates[i])
		}
	}
	return sample, nil
}

// normalizedWeights returns the candidates' weights scaled to sum to 1, or
// nil when they carry no mass at all.
func (n *Network) normalizedWeights(candidates []int64) []float64 {
	probs := utils.Map(candidates, n.NodeWeight)
	total := utils.SumFloat(probs)
	if total <= 0 {
		return nil
	}
	for i := range probs {
		probs[i] /= total
	}
	return probs
}

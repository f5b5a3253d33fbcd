package network

import (
	"math/rand"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
	"golang.org/x/exp/slog"
)

const maxRegularAttempts = 100

// randomRegularEdges pairs node stubs at random, re-pairing only the stubs
// that formed loops or parallel edges, until every node has degree k.
func randomRegularEdges(numNodes, k int, r *rand.Rand) ([][2]int64, error) {
	if numNodes <= 0 || k < 0 {
		return nil, errs.Config("network.NewRandomRegular()", "invalid size n=%d k=%d", numNodes, k)
	}
	if k >= numNodes {
		return nil, errs.Config("network.NewRandomRegular()", "degree k=%d must be smaller than n=%d", k, numNodes)
	}
	if (numNodes*k)%2 != 0 {
		return nil, errs.Config("network.NewRandomRegular()", "n*k must be even, got n=%d k=%d", numNodes, k)
	}
	for attempt := 0; attempt < maxRegularAttempts; attempt++ {
		if edges, ok := tryRegular(numNodes, k, r); ok {
			return edges, nil
		}
		slog.Debug("retrying random regular graph", "attempt", attempt, "n", numNodes, "k", k)
	}
	return nil, errs.Config("network.NewRandomRegular()", "no %d-regular graph on %d nodes after %d attempts", k, numNodes, maxRegularAttempts)
}

func tryRegular(numNodes, k int, r *rand.Rand) ([][2]int64, bool) {
	links := make(map[Link]bool, numNodes*k/2)
	ordered := make([][2]int64, 0, numNodes*k/2)

	stubs := make([]int64, 0, numNodes*k)
	for i := 0; i < k; i++ {
		for v := 0; v < numNodes; v++ {
			stubs = append(stubs, int64(v))
		}
	}
	for len(stubs) > 0 {
		r.Shuffle(len(stubs), func(i, j int) {
			stubs[i], stubs[j] = stubs[j], stubs[i]
		})
		leftover := make(map[int64]int)
		for i := 0; i+1 < len(stubs); i += 2 {
			l := NewLink(stubs[i], stubs[i+1])
			if l.U != l.V && !links[l] {
				links[l] = true
				ordered = append(ordered, [2]int64{l.U, l.V})
			} else {
				leftover[stubs[i]]++
				leftover[stubs[i+1]]++
			}
		}
		if !suitable(links, leftover) {
			return nil, false
		}
		stubs = stubs[:0]
		for _, v := range utils.SortedKeys(leftover) {
			for i := 0; i < leftover[v]; i++ {
				stubs = append(stubs, v)
			}
		}
	}
	return ordered, true
}

// suitable reports whether the leftover stubs can still form at least one new link.
func suitable(links map[Link]bool, leftover map[int64]int) bool {
	if len(leftover) == 0 {
		return true
	}
	nodes := utils.SortedKeys(leftover)
	for i, u := range nodes {
		for _, v := range nodes[:i] {
			if !links[NewLink(u, v)] {
				return true
			}
		}
	}
	return false
}

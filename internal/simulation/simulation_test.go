package simulation

import (
	"math"
	"testing"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/adversary"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/network"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/protocol"
	"github.com/stretchr/testify/require"
)

const seed = 11

func generators(t *testing.T, edgeMode string) (*network.NodeWeightGenerator, *network.EdgeWeightGenerator) {
	t.Helper()
	nw, err := network.NewNodeWeightGenerator(network.NodeWeightRandom, nil)
	require.NoError(t, err)
	ew, err := network.NewEdgeWeightGenerator(edgeMode)
	require.NoError(t, err)
	return nw, ew
}

func TestDisconnectedGraphStalls(t *testing.T) {
	nw, ew := generators(t, network.EdgeWeightUnweighted)
	net, err := network.New(nw, ew, network.Topology{
		Edges: [][2]int64{{0, 1}, {1, 2}, {2, 0}, {3, 4}, {4, 5}, {5, 3}},
	}, seed)
	require.NoError(t, err)
	d, err := protocol.NewDandelion(net, 1.0, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	adv, err := adversary.New(d, adversary.Options{Nodes: []int64{}})
	require.NoError(t, err)

	sim, err := New(adv, 5, Options{Seed: seed})
	require.NoError(t, err)
	require.NoError(t, sim.Run(1.0, 3))
	require.True(t, sim.HasRun())
	for _, m := range sim.Messages() {
		require.Less(t, m.Reached(), 6, "message from %d reached every node", m.Source())
		require.Equal(t, 0, m.QueueSize())
	}
}

func TestRunValidation(t *testing.T) {
	nw, ew := generators(t, network.EdgeWeightNormal)
	net, err := network.NewRandomRegular(nw, ew, 30, 4, seed)
	require.NoError(t, err)
	p, err := protocol.NewBroadcast(net, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	adv, err := adversary.New(p, adversary.Options{Ratio: 0.1, Seed: seed})
	require.NoError(t, err)

	_, err = New(adv, 0, Options{})
	require.ErrorIs(t, err, errs.ErrConfig)

	sim, err := New(adv, 4, Options{Seed: seed, UseNodeWeights: true})
	require.NoError(t, err)
	for _, m := range sim.Messages() {
		require.False(t, adv.IsAdversarial(m.Source()))
	}

	_, _, err = sim.NodeContactTimeQuantiles(0.5)
	require.ErrorIs(t, err, errs.ErrState)
	_, err = NewEvaluator(sim, adversary.FirstReach)
	require.ErrorIs(t, err, errs.ErrState)

	require.ErrorIs(t, sim.Run(0, 10), errs.ErrConfig)
	require.ErrorIs(t, sim.Run(0.5, 0), errs.ErrConfig)
}

func TestNodeContactTimeQuantiles(t *testing.T) {
	nw, ew := generators(t, network.EdgeWeightUnweighted)
	net, err := network.New(nw, ew, network.Topology{
		Edges: [][2]int64{{0, 1}, {0, 2}, {0, 3}, {1, 4}, {4, 5}},
	}, seed)
	require.NoError(t, err)
	p, err := protocol.NewBroadcast(net, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	adv, err := adversary.New(p, adversary.Options{Nodes: []int64{}})
	require.NoError(t, err)
	sim, err := New(adv, 10, Options{Seed: seed})
	require.NoError(t, err)
	require.NoError(t, sim.Run(1.0, 100))

	means, stds, err := sim.NodeContactTimeQuantiles(0, 0.5, 1)
	require.NoError(t, err)
	require.Len(t, means, 3)
	require.Zero(t, means[0])
	require.Zero(t, stds[0])
	require.GreaterOrEqual(t, means[2], 2.0)
	require.LessOrEqual(t, means[2], 4.0)
	require.LessOrEqual(t, means[1], means[2])

	_, _, err = sim.NodeContactTimeQuantiles(1.5)
	require.ErrorIs(t, err, errs.ErrConfig)
}

func TestRankOf(t *testing.T) {
	row := []float64{0.2, 0.5, 0.2, 0.1}
	require.Equal(t, 2, rankOf(row, 0))
	require.Equal(t, 1, rankOf(row, 1))
	require.Equal(t, 3, rankOf(row, 2))
	require.Equal(t, 4, rankOf(row, 3))
}

func buildProtocols(t *testing.T, net *network.Network) []protocol.Protocol {
	t.Helper()
	b, err := protocol.NewBroadcast(net, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	d, err := protocol.NewDandelion(net, 0.5, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	dpp, err := protocol.NewDandelionPlusPlus(net, 0.5, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	tor, err := protocol.NewTOREnhanced(net, 2, 2, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	onion, err := protocol.NewOnionRouting(net, 3, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	return []protocol.Protocol{b, d, dpp, tor, onion}
}

func TestEvaluator(t *testing.T) {
	nw, ew := generators(t, network.EdgeWeightNormal)
	net, err := network.NewRandomRegular(nw, ew, 60, 6, seed)
	require.NoError(t, err)

	for _, p := range buildProtocols(t, net) {
		adv, err := adversary.ForProtocol(p, adversary.Options{Ratio: 0.2, Seed: seed})
		require.NoError(t, err)
		sim, err := New(adv, 15, Options{Seed: seed})
		require.NoError(t, err)
		require.NoError(t, sim.Run(DefaultCoverageThreshold, DefaultMaxTrials))
		honest := len(adv.Candidates())

		for _, est := range adversary.Estimators {
			ev, err := NewEvaluator(sim, est)
			require.NoError(t, err, "%s %s", p, est)

			preds := ev.Predictions()
			require.Len(t, preds.Rows, 15)
			for _, row := range preds.Rows {
				sum := 0.0
				for j, prob := range row {
					if adv.IsAdversarial(preds.Nodes[j]) {
						require.Zero(t, prob)
					}
					sum += prob
				}
				require.InDelta(t, 1.0, sum, 1e-9, "%s %s", p, est)
			}

			for i, r := range ev.Ranks() {
				require.GreaterOrEqual(t, r, 1)
				require.LessOrEqual(t, r, net.NumNodes())
				require.InDelta(t, 1/float64(r), ev.InverseRanks()[i], 1e-12)
				require.InDelta(t, 1/math.Log2(1+float64(r)), ev.NDCG()[i], 1e-12)
			}
			for _, h := range ev.Entropies() {
				require.GreaterOrEqual(t, h, -1e-12)
				require.LessOrEqual(t, h, math.Log2(float64(honest))+1e-9)
			}
			for _, s := range ev.MessageSpreadRatios() {
				require.Greater(t, s, 0.0)
				require.LessOrEqual(t, s, 1.0)
			}

			report := ev.Report()
			require.Equal(t, string(est), report.Estimator)
			require.GreaterOrEqual(t, report.HitRatio, 0.0)
			require.LessOrEqual(t, report.HitRatio, 1.0)
			if est == adversary.Dummy {
				require.InDelta(t, math.Log2(float64(honest)), report.Entropy, 1e-9)
			}
		}
	}
}

func TestBroadcastFirstReachBeatsDummy(t *testing.T) {
	nw, ew := generators(t, network.EdgeWeightNormal)
	net, err := network.NewRandomRegular(nw, ew, 100, 8, seed)
	require.NoError(t, err)
	p, err := protocol.NewBroadcast(net, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	adv, err := adversary.New(p, adversary.Options{Ratio: 0.3, Seed: seed})
	require.NoError(t, err)
	sim, err := New(adv, 40, Options{Seed: seed})
	require.NoError(t, err)
	require.NoError(t, sim.Run(1.0, 100))

	reach, err := NewEvaluator(sim, adversary.FirstReach)
	require.NoError(t, err)
	dummy, err := NewEvaluator(sim, adversary.Dummy)
	require.NoError(t, err)
	require.Greater(t, reach.Report().HitRatio, dummy.Report().HitRatio)
	require.Zero(t, reach.Report().Entropy)
}

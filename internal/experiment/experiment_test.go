package experiment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/config"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/adversary"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/data"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/network"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/simulation"
	"github.com/stretchr/testify/require"
)

func smallConfig() *config.Config {
	return &config.Config{
		Network: config.Network{
			Size:        40,
			Degree:      4,
			NodeWeights: network.NodeWeightRandom,
			EdgeWeights: network.EdgeWeightNormal,
		},
		Protocols: config.Protocols{
			BroadcastMode:           "all",
			DandelionSpreadingProba: []float64{0.5},
			TORArms:                 2,
			TORHops:                 2,
			OnionRoutingRelayers:    []int{3},
		},
		Adversary: config.Adversary{
			Ratios:           []float64{0.1, 0.2},
			CentralityMetric: "none",
		},
		Simulation: config.Simulation{
			MessageFraction:   0.25,
			CoverageThreshold: 1.0,
			MaxTrials:         50,
			Estimators:        []string{"first_reach", "first_sent", "shortest_path", "dummy"},
			Trials:            2,
			Seed:              5,
		},
		Output: config.Output{Workers: 2},
	}
}

func TestLoadTopology(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edges.csv")
	require.NoError(t, os.WriteFile(path, []byte("# u,v,latency\n0,1,12.5\n1,2,30\n2,0,7\n"), 0644))
	topo, err := LoadTopology(path)
	require.NoError(t, err)
	require.Len(t, topo.Edges, 3)
	require.Equal(t, 12.5, topo.Latencies[network.NewLink(1, 0)])

	nw, err := network.NewNodeWeightGenerator(network.NodeWeightRandom, nil)
	require.NoError(t, err)
	ew, err := network.NewEdgeWeightGenerator(network.EdgeWeightCustom)
	require.NoError(t, err)
	net, err := network.New(nw, ew, topo, 1)
	require.NoError(t, err)
	w, ok := net.EdgeWeight(2, 0)
	require.True(t, ok)
	require.Equal(t, 7.0, w)

	require.NoError(t, os.WriteFile(path, []byte("0,1,2,3\n"), 0644))
	_, err = LoadTopology(path)
	require.ErrorIs(t, err, errs.ErrConfig)
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0644))
	_, err = LoadTopology(path)
	require.ErrorIs(t, err, errs.ErrConfig)
}

func TestBuildNetworkFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edges.csv")
	require.NoError(t, os.WriteFile(path, []byte("0,1\n1,2\n2,3\n3,0\n"), 0644))
	net, err := BuildNetwork(config.Network{
		TopologyFile: path,
		NodeWeights:  network.NodeWeightRandom,
		EdgeWeights:  network.EdgeWeightUnweighted,
	}, 1)
	require.NoError(t, err)
	require.Equal(t, 4, net.NumNodes())
	require.Equal(t, 4, net.NumEdges())
}

func TestBuildProtocols(t *testing.T) {
	cfg := smallConfig()
	net, err := BuildNetwork(cfg.Network, 1)
	require.NoError(t, err)
	protocols, err := BuildProtocols(cfg.Protocols, net, 1)
	require.NoError(t, err)
	// broadcast, dandelion, dandelion++, tor, onion
	require.Len(t, protocols, 5)

	_, err = BuildProtocols(config.Protocols{BroadcastMode: "all", ExcludeSimpleBroadcast: true}, net, 1)
	require.ErrorIs(t, err, errs.ErrConfig)
	// mean degree 4 is too low for sqrt broadcasting
	_, err = BuildProtocols(config.Protocols{BroadcastMode: "sqrt"}, net, 1)
	require.ErrorIs(t, err, errs.ErrConfig)
}

func TestAdversaryNodes(t *testing.T) {
	cfg := smallConfig()
	net, err := BuildNetwork(cfg.Network, 1)
	require.NoError(t, err)

	random, err := AdversaryNodes(net, cfg.Adversary, 0.1, 3)
	require.NoError(t, err)
	require.Len(t, random, 4)

	cfg.Adversary.CentralityMetric = network.CentralityDegree
	central, err := AdversaryNodes(net, cfg.Adversary, 0.1, 3)
	require.NoError(t, err)
	top, err := net.CentralNodes(4, network.CentralityDegree)
	require.NoError(t, err)
	require.Equal(t, top, central)
}

func TestRunAndEval(t *testing.T) {
	cfg := smallConfig()
	net, err := BuildNetwork(cfg.Network, 2)
	require.NoError(t, err)
	protocols, err := BuildProtocols(cfg.Protocols, net, 2)
	require.NoError(t, err)
	adv, err := adversary.ForProtocol(protocols[1], adversary.Options{Ratio: 0.1, Seed: 2})
	require.NoError(t, err)
	sim, err := simulation.New(adv, 5, simulation.Options{Seed: 2})
	require.NoError(t, err)

	reports, err := RunAndEval(sim, 1.0, 100, []adversary.Estimator{adversary.FirstReach, adversary.Dummy}, Meta{
		Protocol:       protocols[1].String(),
		AdversaryRatio: adv.Ratio(),
		Network:        net.String(),
	})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.Equal(t, "first_reach", reports[0].Estimator)
	require.Equal(t, protocols[1].String(), reports[1].Protocol)
	require.Equal(t, net.String(), reports[1].Network)
}

func TestRunSingle(t *testing.T) {
	cfg := smallConfig()
	reports, err := RunSingle(cfg, 0.1, 9)
	require.NoError(t, err)
	require.Len(t, reports, 5*4)
	for _, r := range reports {
		require.InDelta(t, 0.1, r.AdversaryRatio, 1e-12)
		require.GreaterOrEqual(t, r.HitRatio, 0.0)
		require.LessOrEqual(t, r.HitRatio, 1.0)
	}

	again, err := RunSingle(cfg, 0.1, 9)
	require.NoError(t, err)
	require.Equal(t, reports, again)

	cfg.Simulation.Estimators = []string{"oracle"}
	_, err = RunSingle(cfg, 0.1, 9)
	require.ErrorIs(t, err, errs.ErrConfig)
}

func TestSweep(t *testing.T) {
	cfg := smallConfig()
	cfg.Protocols.DandelionSpreadingProba = nil
	cfg.Protocols.TORArms = 0
	cfg.Simulation.Estimators = []string{"first_reach"}

	path := filepath.Join(t.TempDir(), "sweep.csv")
	store, err := data.NewCSVStore(path)
	require.NoError(t, err)

	reports, err := Sweep(context.Background(), cfg, store)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	// 2 trials x 2 ratios x (broadcast, onion) x 1 estimator
	require.Len(t, reports, 8)
	require.Len(t, Queries(cfg), 4)

	saved, err := data.ReadCSV(path)
	require.NoError(t, err)
	require.ElementsMatch(t, reports, saved)
}

func TestSweepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Sweep(ctx, smallConfig(), nil)
	require.ErrorIs(t, err, context.Canceled)
}

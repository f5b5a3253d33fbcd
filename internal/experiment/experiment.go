package experiment

import (
	"fmt"
	"math/rand"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/config"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/adversary"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/data"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/network"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/protocol"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/simulation"
	"golang.org/x/exp/slog"
)

const centralityNone = "none"

// BuildNetwork creates a random regular network, or loads the configured
// topology when the size is 0.
func BuildNetwork(cfg config.Network, seed int64) (*network.Network, error) {
	nw, err := network.NewNodeWeightGenerator(cfg.NodeWeights, cfg.Stake)
	if err != nil {
		return nil, err
	}
	ew, err := network.NewEdgeWeightGenerator(cfg.EdgeWeights)
	if err != nil {
		return nil, err
	}
	if cfg.Size > 0 {
		return network.NewRandomRegular(nw, ew, cfg.Size, cfg.Degree, seed)
	}
	topo, err := LoadTopology(cfg.TopologyFile)
	if err != nil {
		return nil, err
	}
	return network.New(nw, ew, topo, seed)
}

// BuildProtocols creates every protocol the configuration asks for, all on
// the same network and seed.
func BuildProtocols(cfg config.Protocols, net *network.Network, seed int64) ([]protocol.Protocol, error) {
	protocols := make([]protocol.Protocol, 0)
	if !cfg.ExcludeSimpleBroadcast {
		b, err := protocol.NewBroadcast(net, cfg.BroadcastMode, seed)
		if err != nil {
			return nil, err
		}
		protocols = append(protocols, b)
	}
	for _, p := range cfg.DandelionSpreadingProba {
		d, err := protocol.NewDandelion(net, p, cfg.BroadcastMode, seed)
		if err != nil {
			return nil, err
		}
		dpp, err := protocol.NewDandelionPlusPlus(net, p, cfg.BroadcastMode, seed)
		if err != nil {
			return nil, err
		}
		protocols = append(protocols, d, dpp)
	}
	if cfg.TORArms > 0 {
		t, err := protocol.NewTOREnhanced(net, cfg.TORArms, cfg.TORHops, cfg.BroadcastMode, seed)
		if err != nil {
			return nil, err
		}
		protocols = append(protocols, t)
	}
	for _, r := range cfg.OnionRoutingRelayers {
		o, err := protocol.NewOnionRouting(net, r, cfg.BroadcastMode, seed)
		if err != nil {
			return nil, err
		}
		protocols = append(protocols, o)
	}
	if len(protocols) == 0 {
		return nil, errs.Config("experiment.BuildProtocols()", "no protocol selected")
	}
	return protocols, nil
}

// AdversaryNodes picks ratio of the nodes, either the most central ones or
// a random sample.
func AdversaryNodes(net *network.Network, cfg config.Adversary, ratio float64, seed int64) ([]int64, error) {
	count := int(float64(net.NumNodes()) * ratio)
	if cfg.CentralityMetric != "" && cfg.CentralityMetric != centralityNone {
		return net.CentralNodes(count, cfg.CentralityMetric)
	}
	return net.SampleRandomNodes(count, network.SampleOptions{
		UseWeights: cfg.UseNodeWeights,
		Rng:        rand.New(rand.NewSource(seed)),
	})
}

// Meta describes the run a report belongs to.
type Meta struct {
	Protocol       string
	AdversaryRatio float64
	Network        string
}

// RunAndEval runs sim and scores every estimator on the outcome.
func RunAndEval(sim *simulation.Simulator, coverageThreshold float64, maxTrials int, estimators []adversary.Estimator, meta Meta) ([]data.Report, error) {
	if err := sim.Run(coverageThreshold, maxTrials); err != nil {
		return nil, err
	}
	reports := make([]data.Report, 0, len(estimators))
	for _, est := range estimators {
		ev, err := simulation.NewEvaluator(sim, est)
		if err != nil {
			return nil, err
		}
		r := ev.Report()
		r.Protocol = meta.Protocol
		r.AdversaryRatio = meta.AdversaryRatio
		r.Network = meta.Network
		reports = append(reports, r)
	}
	return reports, nil
}

// RunSingle builds one network and runs every configured protocol against
// the same adversarial nodes and message sources.
func RunSingle(cfg *config.Config, ratio float64, seed int64) ([]data.Report, error) {
	estimators := make([]adversary.Estimator, 0, len(cfg.Simulation.Estimators))
	for _, name := range cfg.Simulation.Estimators {
		est, err := adversary.ParseEstimator(name)
		if err != nil {
			return nil, err
		}
		estimators = append(estimators, est)
	}

	net, err := BuildNetwork(cfg.Network, seed)
	if err != nil {
		return nil, errs.Wrap(err, "experiment.RunSingle(): failed to build network")
	}
	protocols, err := BuildProtocols(cfg.Protocols, net, seed)
	if err != nil {
		return nil, errs.Wrap(err, "experiment.RunSingle(): failed to build protocols")
	}
	nodes, err := AdversaryNodes(net, cfg.Adversary, ratio, seed)
	if err != nil {
		return nil, errs.Wrap(err, "experiment.RunSingle(): failed to choose adversarial nodes")
	}
	numMessages := int(float64(net.NumNodes()) * cfg.Simulation.MessageFraction)
	if numMessages < 1 {
		numMessages = 1
	}

	reports := make([]data.Report, 0, len(protocols)*len(estimators))
	for _, p := range protocols {
		adv, err := adversary.ForProtocol(p, adversary.Options{
			Nodes:  nodes,
			Active: cfg.Adversary.Active,
			Seed:   seed,
		})
		if err != nil {
			return nil, errs.Wrap(err, "experiment.RunSingle(): failed to create adversary for %s", p)
		}
		// the same seed samples the same sources for every protocol
		sim, err := simulation.New(adv, numMessages, simulation.Options{Seed: seed})
		if err != nil {
			return nil, err
		}
		r, err := RunAndEval(sim, cfg.Simulation.CoverageThreshold, cfg.Simulation.MaxTrials, estimators, Meta{
			Protocol:       p.String(),
			AdversaryRatio: adv.Ratio(),
			Network:        net.String(),
		})
		if err != nil {
			return nil, errs.Wrap(err, "experiment.RunSingle(): %s failed", p)
		}
		slog.Debug("protocol evaluated", "protocol", p.String(), "adversary", adv.String(), "messages", numMessages)
		reports = append(reports, r...)
	}
	return reports, nil
}

// Query is one unit of a sweep.
type Query struct {
	Index          int
	AdversaryRatio float64
	Seed           int64
}

func (q Query) String() string {
	return fmt.Sprintf("Query(%d, ratio=%.2f, seed=%d)", q.Index, q.AdversaryRatio, q.Seed)
}

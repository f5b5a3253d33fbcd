package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	pl "github.com/HannahMarsh/PrettyLogger"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/adversary"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/data"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/experiment"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/network"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/protocol"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/simulation"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/exp/slog"
)

func main() {
	logLevel := flag.String("log-level", "info", "Log level")
	numNodes := flag.Int("nodes", 100, "Number of nodes in the random regular network")
	degree := flag.Int("degree", 20, "Degree of every node")
	edgeMode := flag.String("edge-weights", network.EdgeWeightNormal, "Edge weight mode: random, normal or unweighted")
	proto := flag.String("protocol", "broadcast", "Protocol: broadcast, dandelion, dandelion++, tor or onion")
	broadcastMode := flag.String("broadcast-mode", protocol.BroadcastSqrt, "Broadcast mode: all or sqrt")
	spreadingProba := flag.Float64("spreading-proba", 0.5, "Dandelion spreading probability")
	arms := flag.Int("arms", 2, "TOR arms per node")
	hops := flag.Int("hops", 3, "TOR relays per arm, or onion relayers")
	ratio := flag.Float64("adversary-ratio", 0.1, "Fraction of adversarial nodes")
	active := flag.Bool("active", false, "Adversarial nodes drop every message")
	messages := flag.Int("messages", 20, "Number of messages")
	coverage := flag.Float64("coverage", simulation.DefaultCoverageThreshold, "Fraction of nodes a message must reach")
	maxTrials := flag.Int("max-trials", simulation.DefaultMaxTrials, "Steps without reaching a new node before a message is abandoned")
	seed := flag.Int64("seed", 0, "Random seed (default: random)")

	flag.Usage = flag.PrintDefaults
	flag.Parse()

	pl.SetUpLogrusAndSlog(*logLevel)

	// set GOMAXPROCS
	if _, err := maxprocs.Set(); err != nil {
		slog.Error("failed to set max procs", err)
		os.Exit(1)
	}

	if *seed == 0 {
		*seed = rand.New(rand.NewSource(time.Now().UnixNano())).Int63n(100000)
	}

	reports, err := run(*numNodes, *degree, *edgeMode, *proto, *broadcastMode, *spreadingProba, *arms, *hops,
		*ratio, *active, *messages, *coverage, *maxTrials, *seed)
	if err != nil {
		slog.Error("simulation failed", err)
		os.Exit(1)
	}

	str, err := json.Marshal(reports)
	if err != nil {
		slog.Error("Couldn't marshall reports.", err)
		os.Exit(1)
	}
	fmt.Println(string(str))
}

func run(numNodes, degree int, edgeMode, proto, broadcastMode string, spreadingProba float64, arms, hops int,
	ratio float64, active bool, messages int, coverage float64, maxTrials int, seed int64) ([]data.Report, error) {

	nw, err := network.NewNodeWeightGenerator(network.NodeWeightRandom, nil)
	if err != nil {
		return nil, err
	}
	ew, err := network.NewEdgeWeightGenerator(edgeMode)
	if err != nil {
		return nil, err
	}
	net, err := network.NewRandomRegular(nw, ew, numNodes, degree, seed)
	if err != nil {
		return nil, err
	}

	var p protocol.Protocol
	switch proto {
	case "broadcast":
		p, err = protocol.NewBroadcast(net, broadcastMode, seed)
	case "dandelion":
		p, err = protocol.NewDandelion(net, spreadingProba, broadcastMode, seed)
	case "dandelion++":
		p, err = protocol.NewDandelionPlusPlus(net, spreadingProba, broadcastMode, seed)
	case "tor":
		p, err = protocol.NewTOREnhanced(net, arms, hops, broadcastMode, seed)
	case "onion":
		p, err = protocol.NewOnionRouting(net, hops, broadcastMode, seed)
	default:
		return nil, pl.NewError("unknown protocol %q", proto)
	}
	if err != nil {
		return nil, err
	}

	adv, err := adversary.ForProtocol(p, adversary.Options{Ratio: ratio, Active: active, Seed: seed})
	if err != nil {
		return nil, err
	}
	sim, err := simulation.New(adv, messages, simulation.Options{Seed: seed})
	if err != nil {
		return nil, err
	}
	slog.Info("running simulation", "network", net.String(), "protocol", p.String(), "adversary", adv.String(), "seed", seed)

	reports, err := experiment.RunAndEval(sim, coverage, maxTrials, adversary.Estimators, experiment.Meta{
		Protocol:       p.String(),
		AdversaryRatio: adv.Ratio(),
		Network:        net.String(),
	})
	if err != nil {
		return nil, err
	}

	qs := []float64{0.05, 0.25, 0.5, 0.75, 0.95}
	means, stds, err := sim.NodeContactTimeQuantiles(qs...)
	if err != nil {
		return nil, err
	}
	for i, q := range qs {
		slog.Info("node contact time", "quantile", q, "mean", means[i], "std", stds[i])
	}
	return reports, nil
}

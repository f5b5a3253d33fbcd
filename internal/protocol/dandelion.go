package protocol

import (
	"fmt"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/network"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
)

const (
	// lineGraphCandidates is how many random targets a Dandelion node weighs
	// before linking to the least loaded one.
	lineGraphCandidates = 3
	// plusPlusTargets is the out-degree of the Dandelion++ anonymity graph.
	plusPlusTargets = 2
)

// Dandelion relays a message along an anonymity graph (the stem) and
// switches it to broadcasting with probability spreadingProba at every hop
// after the first. The plain variant uses an approximate line graph, the
// ++ variant an approximate 4-regular graph.
type Dandelion struct {
	broadcast      *Broadcast
	spreadingProba float64
	plusPlus       bool
	anon           *network.Network
}

func NewDandelion(net *network.Network, spreadingProba float64, broadcastMode string, seed int64) (*Dandelion, error) {
	return newDandelion(net, spreadingProba, broadcastMode, seed, false)
}

func NewDandelionPlusPlus(net *network.Network, spreadingProba float64, broadcastMode string, seed int64) (*Dandelion, error) {
	return newDandelion(net, spreadingProba, broadcastMode, seed, true)
}

func newDandelion(net *network.Network, spreadingProba float64, broadcastMode string, seed int64, plusPlus bool) (*Dandelion, error) {
	b, err := NewBroadcast(net, broadcastMode, seed)
	if err != nil {
		return nil, err
	}
	if spreadingProba < 0 || spreadingProba > 1 {
		return nil, errs.Config("protocol.NewDandelion()", "spreading probability must be in [0, 1], got %v", spreadingProba)
	}
	d := &Dandelion{
		broadcast:      b,
		spreadingProba: spreadingProba,
		plusPlus:       plusPlus,
	}
	if err = d.ChangeAnonymityGraph(); err != nil {
		return nil, err
	}
	return d, nil
}

// ChangeAnonymityGraph draws a new anonymity graph.
func (d *Dandelion) ChangeAnonymityGraph() error {
	var edges [][2]int64
	var err error
	if d.plusPlus {
		edges, err = d.fourRegularEdges()
	} else {
		edges, err = d.lineGraphEdges()
	}
	if err != nil {
		return errs.Wrap(err, "protocol.Dandelion.ChangeAnonymityGraph(): failed to sample targets")
	}
	anon, err := buildAnonymityNetwork(d.broadcast.net, true, edges, d.broadcast.seed)
	if err != nil {
		return errs.Wrap(err, "protocol.Dandelion.ChangeAnonymityGraph(): failed to build anonymity network")
	}
	d.anon = anon
	return nil
}

// lineGraphEdges links every node to the candidate with the lowest in-degree so far.
func (d *Dandelion) lineGraphEdges() ([][2]int64, error) {
	net := d.broadcast.net
	nodes := net.Nodes()
	k := utils.Min(lineGraphCandidates, len(nodes)-1)
	inDegree := make(map[int64]int, len(nodes))
	edges := make([][2]int64, 0, len(nodes))
	if k <= 0 {
		return edges, nil
	}
	for _, node := range nodes {
		candidates, err := net.SampleRandomNodes(k, network.SampleOptions{Exclude: []int64{node}, Rng: d.broadcast.rng})
		if err != nil {
			return nil, err
		}
		target := candidates[0]
		for _, c := range candidates[1:] {
			if inDegree[c] < inDegree[target] {
				target = c
			}
		}
		inDegree[target]++
		edges = append(edges, [2]int64{node, target})
	}
	return edges, nil
}

func (d *Dandelion) fourRegularEdges() ([][2]int64, error) {
	net := d.broadcast.net
	nodes := net.Nodes()
	k := utils.Min(plusPlusTargets, len(nodes)-1)
	edges := make([][2]int64, 0, len(nodes)*plusPlusTargets)
	if k <= 0 {
		return edges, nil
	}
	for _, node := range nodes {
		candidates, err := net.SampleRandomNodes(k, network.SampleOptions{Exclude: []int64{node}, Rng: d.broadcast.rng})
		if err != nil {
			return nil, err
		}
		for _, c := range candidates {
			edges = append(edges, [2]int64{node, c})
		}
	}
	return edges, nil
}

func (d *Dandelion) Propagate(e Event) ([]Event, bool) {
	if e.SpreadingPhase || (e.Hops > 0 && d.broadcast.rng.Float64() < d.spreadingProba) {
		return d.broadcast.spread(e, d.anon), true
	}
	node := e.Receiver
	successors := d.anon.Neighbors(node)
	if len(successors) == 0 {
		// nowhere to stem to
		return d.broadcast.spread(e, d.anon), true
	}
	next := successors[0]
	if d.plusPlus {
		next = utils.RandomElement(d.broadcast.rng, successors)
	}
	return []Event{newEvent(d.broadcast.net, d.anon, e, node, next, false, nil)}, false
}

func (d *Dandelion) Network() *network.Network {
	return d.broadcast.net
}

func (d *Dandelion) AnonymityNetwork() *network.Network {
	return d.anon
}

func (d *Dandelion) SpreadingProba() float64 {
	return d.spreadingProba
}

func (d *Dandelion) PlusPlus() bool {
	return d.plusPlus
}

func (d *Dandelion) String() string {
	name := "DandelionProtocol"
	if d.plusPlus {
		name = "DandelionPlusPlusProtocol"
	}
	return fmt.Sprintf("%s(spreading_proba=%.4f, broadcast_mode=%s)", name, d.spreadingProba, d.broadcast.mode)
}

package protocol

import (
	"fmt"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/network"
)

// TOREnhanced sends every message down numArms relay chains (arms) chosen
// per source node. Each arm holds numHops relays followed by the
// broadcaster that starts the spreading phase.
type TOREnhanced struct {
	broadcast *Broadcast
	numArms   int
	numHops   int
	arms      map[int64][][]int64
	anon      *network.Network
	onion     bool
}

func NewTOREnhanced(net *network.Network, numArms, numHops int, broadcastMode string, seed int64) (*TOREnhanced, error) {
	return newTOR(net, numArms, numHops, broadcastMode, seed, false)
}

// NewOnionRouting is a single arm of numRelayers nodes. The arm is carried
// as opaque path metadata, so a relay only learns its successor.
func NewOnionRouting(net *network.Network, numRelayers int, broadcastMode string, seed int64) (*TOREnhanced, error) {
	if numRelayers < 1 {
		return nil, errs.Config("protocol.NewOnionRouting()", "need at least one relayer, got %d", numRelayers)
	}
	return newTOR(net, 1, numRelayers-1, broadcastMode, seed, true)
}

func newTOR(net *network.Network, numArms, numHops int, broadcastMode string, seed int64, onion bool) (*TOREnhanced, error) {
	if numArms < 1 || numHops < 0 {
		return nil, errs.Config("protocol.NewTOREnhanced()", "invalid arms=%d hops=%d", numArms, numHops)
	}
	if numHops+1 > net.NumNodes()-1 {
		return nil, errs.Config("protocol.NewTOREnhanced()", "arms of %d nodes do not fit a network of %d nodes", numHops+1, net.NumNodes())
	}
	b, err := NewBroadcast(net, broadcastMode, seed)
	if err != nil {
		return nil, err
	}
	t := &TOREnhanced{
		broadcast: b,
		numArms:   numArms,
		numHops:   numHops,
		onion:     onion,
	}
	if err = t.ChangeAnonymityGraph(); err != nil {
		return nil, err
	}
	return t, nil
}

// ChangeAnonymityGraph draws new arms for every node.
func (t *TOREnhanced) ChangeAnonymityGraph() error {
	net := t.broadcast.net
	arms := make(map[int64][][]int64, net.NumNodes())
	edges := make([][2]int64, 0)
	for _, node := range net.Nodes() {
		arms[node] = make([][]int64, 0, t.numArms)
		for i := 0; i < t.numArms; i++ {
			arm, err := net.SampleRandomNodes(t.numHops+1, network.SampleOptions{Exclude: []int64{node}, Rng: t.broadcast.rng})
			if err != nil {
				return errs.Wrap(err, "protocol.TOREnhanced.ChangeAnonymityGraph(): failed to sample arm")
			}
			arms[node] = append(arms[node], arm)
			edges = append(edges, [2]int64{node, arm[0]})
			for j := 0; j < t.numHops; j++ {
				edges = append(edges, [2]int64{arm[j], arm[j+1]})
			}
		}
	}
	anon, err := buildAnonymityNetwork(net, false, edges, t.broadcast.seed)
	if err != nil {
		return errs.Wrap(err, "protocol.TOREnhanced.ChangeAnonymityGraph(): failed to build anonymity network")
	}
	t.arms = arms
	t.anon = anon
	return nil
}

func (t *TOREnhanced) Propagate(e Event) ([]Event, bool) {
	if e.SpreadingPhase {
		return t.broadcast.spread(e, t.anon), true
	}
	node := e.Receiver
	switch {
	case e.Path == nil:
		// the message is at its source
		events := make([]Event, 0, t.numArms)
		for _, arm := range t.arms[node] {
			events = append(events, newEvent(t.broadcast.net, t.anon, e, node, arm[0], false, arm))
		}
		return events, false
	case len(e.Path) > 1:
		return []Event{newEvent(t.broadcast.net, t.anon, e, node, e.Path[1], false, e.Path[1:])}, false
	default:
		return t.broadcast.spread(e, t.anon), true
	}
}

// Arms returns the relay chains assigned to node.
func (t *TOREnhanced) Arms(node int64) [][]int64 {
	return t.arms[node]
}

func (t *TOREnhanced) Network() *network.Network {
	return t.broadcast.net
}

func (t *TOREnhanced) AnonymityNetwork() *network.Network {
	return t.anon
}

func (t *TOREnhanced) NumArms() int {
	return t.numArms
}

func (t *TOREnhanced) NumHops() int {
	return t.numHops
}

// Onion reports whether arms are treated as encrypted onion routes.
func (t *TOREnhanced) Onion() bool {
	return t.onion
}

func (t *TOREnhanced) String() string {
	if t.onion {
		return fmt.Sprintf("OnionRoutingProtocol(num_relayers=%d, broadcast_mode=%s)", t.numHops+1, t.broadcast.mode)
	}
	return fmt.Sprintf("TOREnhancedProtocol(num_arms=%d, num_hops=%d, broadcast_mode=%s)", t.numArms, t.numHops, t.broadcast.mode)
}

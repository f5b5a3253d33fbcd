package protocol

import (
	"fmt"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/network"
)

// Protocol decides where a node forwards a message it just received.
type Protocol interface {
	// Propagate returns the deliveries caused by e reaching e.Receiver, and
	// whether e.Receiver started broadcasting the message.
	Propagate(e Event) ([]Event, bool)
	Network() *network.Network
	// AnonymityNetwork is the overlay used before the spreading phase, nil
	// for protocols that broadcast right away.
	AnonymityNetwork() *network.Network
	fmt.Stringer
}

// buildAnonymityNetwork wraps generated links into a network whose
// latencies follow the main network's edge weight policy.
func buildAnonymityNetwork(net *network.Network, directed bool, edges [][2]int64, seed int64) (*network.Network, error) {
	topo := network.Topology{
		Directed:  directed,
		Nodes:     net.Nodes(),
		Edges:     edges,
		Latencies: make(map[network.Link]float64),
	}
	for _, e := range edges {
		if w, ok := net.EdgeWeight(e[0], e[1]); ok {
			topo.Latencies[network.NewLink(e[0], e[1])] = w
		}
	}
	return network.New(net.NodeWeightGenerator(), net.EdgeWeightGenerator().Derived(), topo, seed)
}

package network

import (
	"fmt"
	"math/rand"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Link is an unordered pair of nodes, U <= V.
type Link struct {
	U, V int64
}

func NewLink(u, v int64) Link {
	if u > v {
		u, v = v, u
	}
	return Link{U: u, V: v}
}

// Topology describes an externally built graph. Latencies are only consulted
// by the custom edge weight mode.
type Topology struct {
	Directed  bool
	Nodes     []int64
	Edges     [][2]int64
	Latencies map[Link]float64
}

type mutableGraph interface {
	graph.Graph
	graph.Builder
	graph.EdgeRemover
}

// Network is a weighted peer-to-peer overlay. Edge weights are latencies
// stored once per unordered pair; node weights bias node sampling.
type Network struct {
	directed    bool
	g           mutableGraph
	nodes       []int64
	nodeWeights map[int64]float64
	edgeWeights map[Link]float64
	nodeGen     *NodeWeightGenerator
	edgeGen     *EdgeWeightGenerator
	k           int
	rng         *rand.Rand
}

// New builds a network from an explicit topology.
func New(nodeGen *NodeWeightGenerator, edgeGen *EdgeWeightGenerator, topology Topology, seed int64) (*Network, error) {
	n := newEmpty(nodeGen, edgeGen, topology.Directed, seed)
	n.k = -1
	if err := n.merge(topology, true, true); err != nil {
		return nil, errs.Wrap(err, "network.New(): failed to build network")
	}
	return n, nil
}

// NewRandomRegular builds a random k-regular undirected network on nodes 0..numNodes-1.
func NewRandomRegular(nodeGen *NodeWeightGenerator, edgeGen *EdgeWeightGenerator, numNodes, k int, seed int64) (*Network, error) {
	n := newEmpty(nodeGen, edgeGen, false, seed)
	edges, err := randomRegularEdges(numNodes, k, n.rng)
	if err != nil {
		return nil, err
	}
	nodes := make([]int64, numNodes)
	for i := range nodes {
		nodes[i] = int64(i)
	}
	if err = n.merge(Topology{Nodes: nodes, Edges: edges}, true, true); err != nil {
		return nil, errs.Wrap(err, "network.NewRandomRegular(): failed to build network")
	}
	n.k = k
	return n, nil
}

func newEmpty(nodeGen *NodeWeightGenerator, edgeGen *EdgeWeightGenerator, directed bool, seed int64) *Network {
	n := &Network{
		directed:    directed,
		nodeWeights: make(map[int64]float64),
		edgeWeights: make(map[Link]float64),
		nodeGen:     nodeGen,
		edgeGen:     edgeGen,
		rng:         rand.New(rand.NewSource(seed)),
	}
	if directed {
		n.g = simple.NewDirectedGraph()
	} else {
		n.g = simple.NewUndirectedGraph()
	}
	return n
}

// Update merges topology into the network. Nodes and edges that are new
// always get fresh weights; existing ones keep theirs unless the matching
// reset flag is set.
func (n *Network) Update(topology Topology, resetEdgeWeights, resetNodeWeights bool) error {
	if err := n.merge(topology, resetEdgeWeights, resetNodeWeights); err != nil {
		return errs.Wrap(err, "network.Update(): failed to merge topology")
	}
	return nil
}

func (n *Network) merge(topology Topology, resetEdgeWeights, resetNodeWeights bool) error {
	weighNodes := make([]int64, 0)
	seen := make(map[int64]bool)
	addNode := func(id int64) {
		if seen[id] {
			return
		}
		seen[id] = true
		if n.g.Node(id) == nil {
			n.g.AddNode(simple.Node(id))
			weighNodes = append(weighNodes, id)
		} else if resetNodeWeights {
			weighNodes = append(weighNodes, id)
		}
	}
	for _, id := range topology.Nodes {
		addNode(id)
	}

	weighLinks := make([]Link, 0)
	seenLinks := make(map[Link]bool)
	for _, e := range topology.Edges {
		u, v := e[0], e[1]
		if u == v {
			continue
		}
		addNode(u)
		addNode(v)
		l := NewLink(u, v)
		_, known := n.edgeWeights[l]
		n.g.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
		if (!known || resetEdgeWeights) && !seenLinks[l] {
			seenLinks[l] = true
			weighLinks = append(weighLinks, l)
		}
	}

	edgeWeights, err := n.edgeGen.Generate(weighLinks, topology.Latencies, n.rng)
	if err != nil {
		return err
	}
	for l, w := range edgeWeights {
		n.edgeWeights[l] = w
	}
	for id, w := range n.nodeGen.Generate(weighNodes, n.rng) {
		n.nodeWeights[id] = w
	}
	n.nodes = idsOf(n.g.Nodes())
	return nil
}

// RemoveEdge deletes the u-v link. On a directed network only the u->v arc is removed.
func (n *Network) RemoveEdge(u, v int64) {
	n.g.RemoveEdge(u, v)
	if !n.g.HasEdgeBetween(u, v) {
		delete(n.edgeWeights, NewLink(u, v))
	}
}

// EdgeWeight returns the latency of the u-v link in either direction.
func (n *Network) EdgeWeight(u, v int64) (float64, bool) {
	w, ok := n.edgeWeights[NewLink(u, v)]
	return w, ok
}

// EdgeWeightVia looks the link up in this network first and in other second.
func (n *Network) EdgeWeightVia(u, v int64, other *Network) (float64, bool) {
	if w, ok := n.EdgeWeight(u, v); ok {
		return w, true
	}
	if other != nil {
		return other.EdgeWeight(u, v)
	}
	return 0, false
}

func (n *Network) HasEdge(u, v int64) bool {
	if n.directed {
		return n.g.(*simple.DirectedGraph).HasEdgeFromTo(u, v)
	}
	return n.g.HasEdgeBetween(u, v)
}

// Nodes returns the node identifiers in ascending order.
func (n *Network) Nodes() []int64 {
	return utils.Copy(n.nodes)
}

func (n *Network) NumNodes() int {
	return len(n.nodes)
}

// NumEdges counts arcs on a directed network and links on an undirected one.
func (n *Network) NumEdges() int {
	total := 0
	for _, id := range n.nodes {
		total += n.g.From(id).Len()
	}
	if n.directed {
		return total
	}
	return total / 2
}

func (n *Network) HasNode(id int64) bool {
	return n.g.Node(id) != nil
}

// Neighbors returns the successors of id, sorted.
func (n *Network) Neighbors(id int64) []int64 {
	if !n.HasNode(id) {
		return []int64{}
	}
	return idsOf(n.g.From(id))
}

// Predecessors returns the nodes with an edge into id, sorted.
func (n *Network) Predecessors(id int64) []int64 {
	if !n.HasNode(id) {
		return []int64{}
	}
	if n.directed {
		return idsOf(n.g.(*simple.DirectedGraph).To(id))
	}
	return idsOf(n.g.From(id))
}

func (n *Network) Degree(id int64) int {
	if !n.HasNode(id) {
		return 0
	}
	return n.g.From(id).Len()
}

func (n *Network) InDegree(id int64) int {
	if !n.HasNode(id) {
		return 0
	}
	if n.directed {
		return n.g.(*simple.DirectedGraph).To(id).Len()
	}
	return n.g.From(id).Len()
}

func (n *Network) MeanDegree() float64 {
	if len(n.nodes) == 0 {
		return 0
	}
	total := 0
	for _, id := range n.nodes {
		total += n.Degree(id)
	}
	return float64(total) / float64(len(n.nodes))
}

func (n *Network) NodeWeight(id int64) float64 {
	return n.nodeWeights[id]
}

func (n *Network) NodeWeights() map[int64]float64 {
	w := make(map[int64]float64, len(n.nodeWeights))
	for k, v := range n.nodeWeights {
		w[k] = v
	}
	return w
}

func (n *Network) Directed() bool {
	return n.directed
}

// K is the regular degree the network was generated with, -1 for custom topologies.
func (n *Network) K() int {
	return n.k
}

func (n *Network) NodeWeightGenerator() *NodeWeightGenerator {
	return n.nodeGen
}

func (n *Network) EdgeWeightGenerator() *EdgeWeightGenerator {
	return n.edgeGen
}

func (n *Network) String() string {
	kind := "custom"
	if n.k >= 0 {
		kind = fmt.Sprintf("regular(k=%d)", n.k)
	}
	return fmt.Sprintf("%s(nodes=%d, edges=%d, node_weight=%s, edge_weight=%s)",
		kind, n.NumNodes(), n.NumEdges(), n.nodeGen.Mode(), n.edgeGen.Mode())
}

func idsOf(nodes graph.Nodes) []int64 {
	ids := make([]int64, 0, nodes.Len())
	for nodes.Next() {
		ids = append(ids, nodes.Node().ID())
	}
	utils.SortOrdered(ids)
	return ids
}

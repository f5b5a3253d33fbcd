package network

import (
	"math"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
	"gonum.org/v1/gonum/graph"
	gnetwork "gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

const (
	CentralityDegree      = "degree"
	CentralityBetweenness = "betweenness"
	CentralityPageRank    = "pagerank"
)

const (
	pageRankDamping   = 0.85
	pageRankTolerance = 1e-6
)

// CentralNodes returns the count most central nodes by metric, most central
// first. Ties go to the smaller node id.
func (n *Network) CentralNodes(count int, metric string) ([]int64, error) {
	if count < 0 || count > len(n.nodes) {
		return nil, errs.Config("network.CentralNodes()", "cannot pick %d of %d nodes", count, len(n.nodes))
	}
	var scores map[int64]float64
	switch metric {
	case CentralityDegree:
		scores = make(map[int64]float64, len(n.nodes))
		for _, id := range n.nodes {
			scores[id] = float64(n.Degree(id) + n.InDegree(id))
		}
	case CentralityBetweenness:
		scores = gnetwork.Betweenness(n.g)
	case CentralityPageRank:
		var d graph.Directed
		if n.directed {
			d = n.g.(*simple.DirectedGraph)
		} else {
			d = bothWays{n.g.(*simple.UndirectedGraph)}
		}
		scores = gnetwork.PageRank(d, pageRankDamping, pageRankTolerance)
	default:
		return nil, errs.Config("network.CentralNodes()", "unknown centrality metric %q", metric)
	}

	ranked := n.Nodes()
	utils.Sort(ranked, func(a, b int64) bool {
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return a < b
	})
	return ranked[:count], nil
}

// ShortestPathsFrom returns the latency of the fastest route between every
// node and u, +Inf when there is none. On a directed network routes are
// followed towards u, which is how a message travels to an observer at u.
func (n *Network) ShortestPathsFrom(u int64) map[int64]float64 {
	dist := make(map[int64]float64, len(n.nodes))
	if !n.HasNode(u) {
		for _, id := range n.nodes {
			dist[id] = math.Inf(1)
		}
		return dist
	}
	sp := path.DijkstraFrom(simple.Node(u), latencyView{net: n})
	for _, id := range n.nodes {
		dist[id] = sp.WeightTo(id)
	}
	return dist
}

// bothWays presents an undirected graph as a directed one with arcs in both directions.
type bothWays struct {
	*simple.UndirectedGraph
}

func (b bothWays) HasEdgeFromTo(uid, vid int64) bool {
	return b.HasEdgeBetween(uid, vid)
}

func (b bothWays) To(id int64) graph.Nodes {
	return b.From(id)
}

// latencyView weighs the network's edges by latency, reversing arcs on directed networks.
type latencyView struct {
	net *Network
}

func (v latencyView) Node(id int64) graph.Node {
	return v.net.g.Node(id)
}

func (v latencyView) Nodes() graph.Nodes {
	return v.net.g.Nodes()
}

func (v latencyView) From(id int64) graph.Nodes {
	if v.net.directed {
		return v.net.g.(*simple.DirectedGraph).To(id)
	}
	return v.net.g.From(id)
}

func (v latencyView) HasEdgeBetween(xid, yid int64) bool {
	return v.net.g.HasEdgeBetween(xid, yid)
}

func (v latencyView) Edge(uid, vid int64) graph.Edge {
	if v.net.directed {
		if v.net.g.Edge(vid, uid) == nil {
			return nil
		}
		return simple.Edge{F: simple.Node(uid), T: simple.Node(vid)}
	}
	return v.net.g.Edge(uid, vid)
}

func (v latencyView) Weight(xid, yid int64) (float64, bool) {
	if xid == yid {
		return 0, true
	}
	if v.Edge(xid, yid) == nil {
		return math.Inf(1), false
	}
	w, ok := v.net.EdgeWeight(xid, yid)
	return w, ok
}

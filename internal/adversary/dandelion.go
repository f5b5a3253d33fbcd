package adversary

import (
	"math"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/protocol"
	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"golang.org/x/exp/slog"
)

// NewDandelion creates an adversary that backtracks messages on the
// anonymity graph of a Dandelion or Dandelion++ protocol.
func NewDandelion(p protocol.Protocol, opts Options) (*Adversary, error) {
	d, ok := p.(*protocol.Dandelion)
	if !ok {
		return nil, errs.State("adversary.NewDandelion()", "protocol %s is not a Dandelion protocol", p)
	}
	return newAdversary(p, opts, &dandelionBacktracker{protocol: d})
}

type dandelionBacktracker struct {
	protocol *protocol.Dandelion
}

func (d *dandelionBacktracker) name() string {
	return "DandelionAdversary"
}

func (d *dandelionBacktracker) observe(EavesdropEvent) bool {
	return true
}

func (d *dandelionBacktracker) recordPacket(EavesdropEvent) {}

type visit struct {
	node  int64
	depth int
}

// candidates walks the anonymity graph backwards from where the stem was
// seen. A stem survives each extra hop with probability 1-p, so an honest
// ancestor at depth d gets weight (1-p)^(d-1).
func (d *dandelionBacktracker) candidates(a *Adversary, mid string, c contact, found bool) (map[int64]float64, bool) {
	if !found {
		return nil, false
	}
	start := c.node
	if c.byBroadcast {
		// the sender is the node that ended the stem
		start = c.from
	}
	anon := d.protocol.AnonymityNetwork()
	keep := 1 - d.protocol.SpreadingProba()

	weights := make(map[int64]float64)
	visited := map[int64]bool{start: true}
	q := linkedlistqueue.New()
	q.Enqueue(visit{node: start})
	for !q.Empty() {
		v, _ := q.Dequeue()
		cur := v.(visit)
		if cur.node != start {
			weights[cur.node] = math.Pow(keep, float64(cur.depth-1))
		}
		for _, pred := range anon.Predecessors(cur.node) {
			if visited[pred] || a.IsAdversarial(pred) {
				continue
			}
			visited[pred] = true
			q.Enqueue(visit{node: pred, depth: cur.depth + 1})
		}
	}
	if len(weights) == 0 {
		slog.Debug("no stem ancestors, using uniform prediction", "message", mid, "start", start)
		return nil, false
	}
	return weights, true
}

package adversary

import (
	"fmt"
	"math/rand"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/network"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/protocol"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
	"github.com/emirpasic/gods/sets/linkedhashset"
)

type Options struct {
	// Ratio is the fraction of nodes to corrupt. Ignored when Nodes is set.
	Ratio float64
	Nodes []int64
	// Active adversarial nodes drop every message they receive.
	Active bool
	// UseWeights samples adversarial nodes proportionally to node weights.
	UseWeights bool
	Seed       int64
}

// backtracker refines first contact estimates using what the adversary
// knows about a specific protocol.
type backtracker interface {
	name() string
	// observe sees every eavesdropped event first and reports whether it
	// belongs in the capture log.
	observe(ee EavesdropEvent) bool
	recordPacket(ee EavesdropEvent)
	// candidates returns unnormalized source weights for a message, or false
	// when the protocol gives no usable clue.
	candidates(a *Adversary, mid string, c contact, found bool) (map[int64]float64, bool)
}

// Adversary controls a fixed set of nodes and records every message
// delivered to them.
type Adversary struct {
	protocol  protocol.Protocol
	nodes     []int64
	nodeSet   map[int64]bool
	ratio     float64
	active    bool
	rng       *rand.Rand
	captured  []EavesdropEvent
	messages  *linkedhashset.Set
	bt        backtracker
	distances map[int64]map[int64]float64
}

// New creates an adversary that only uses protocol independent estimators.
func New(p protocol.Protocol, opts Options) (*Adversary, error) {
	return newAdversary(p, opts, nil)
}

// ForProtocol picks the strongest adversary available for p.
func ForProtocol(p protocol.Protocol, opts Options) (*Adversary, error) {
	switch proto := p.(type) {
	case *protocol.Dandelion:
		return NewDandelion(proto, opts)
	case *protocol.TOREnhanced:
		if proto.Onion() {
			return NewOnionRouting(proto, opts)
		}
	}
	return New(p, opts)
}

func newAdversary(p protocol.Protocol, opts Options, bt backtracker) (*Adversary, error) {
	a := &Adversary{
		protocol:  p,
		active:    opts.Active,
		rng:       rand.New(rand.NewSource(opts.Seed)),
		messages:  linkedhashset.New(),
		bt:        bt,
		distances: make(map[int64]map[int64]float64),
	}
	if err := a.sampleNodes(opts); err != nil {
		return nil, errs.Wrap(err, "adversary.New(): failed to choose adversarial nodes")
	}
	return a, nil
}

func (a *Adversary) sampleNodes(opts Options) error {
	net := a.Network()
	total := net.NumNodes()
	if opts.Nodes != nil {
		for _, id := range opts.Nodes {
			if !net.HasNode(id) {
				return errs.Config("adversary.New()", "adversarial node %d is not in the network", id)
			}
		}
		a.nodes = utils.RemoveDuplicates(opts.Nodes)
	} else {
		if opts.Ratio < 0 || opts.Ratio >= 1 {
			return errs.Config("adversary.New()", "adversary ratio must be in [0, 1), got %v", opts.Ratio)
		}
		nodes, err := net.SampleRandomNodes(int(float64(total)*opts.Ratio), network.SampleOptions{
			UseWeights: opts.UseWeights,
			Rng:        a.rng,
		})
		if err != nil {
			return err
		}
		a.nodes = nodes
	}
	utils.SortOrdered(a.nodes)
	if len(a.nodes) >= total {
		return errs.Config("adversary.New()", "every node is adversarial, no source is left")
	}
	a.nodeSet = make(map[int64]bool, len(a.nodes))
	for _, id := range a.nodes {
		a.nodeSet[id] = true
	}
	a.ratio = float64(len(a.nodes)) / float64(total)
	return nil
}

// Eavesdrop records a delivery to one of the adversarial nodes.
func (a *Adversary) Eavesdrop(ee EavesdropEvent) {
	a.messages.Add(ee.MessageID)
	if a.bt != nil && !a.bt.observe(ee) {
		return
	}
	a.captured = append(a.captured, ee)
}

// RecordPacket records a relay an adversarial node sent on an encrypted route.
func (a *Adversary) RecordPacket(ee EavesdropEvent) {
	if a.bt != nil {
		a.bt.recordPacket(ee)
	}
}

func (a *Adversary) IsAdversarial(node int64) bool {
	return a.nodeSet[node]
}

func (a *Adversary) Active() bool {
	return a.active
}

func (a *Adversary) Protocol() protocol.Protocol {
	return a.protocol
}

func (a *Adversary) Network() *network.Network {
	return a.protocol.Network()
}

func (a *Adversary) Nodes() []int64 {
	return utils.Copy(a.nodes)
}

func (a *Adversary) Ratio() float64 {
	return a.ratio
}

// CapturedEvents returns the capture log in arrival order.
func (a *Adversary) CapturedEvents() []EavesdropEvent {
	return utils.Copy(a.captured)
}

// CapturedMessages returns the ids of observed messages in the order they were first seen.
func (a *Adversary) CapturedMessages() []string {
	return utils.Map(a.messages.Values(), func(v interface{}) string {
		return v.(string)
	})
}

// Candidates are the nodes that may have originated a message.
func (a *Adversary) Candidates() []int64 {
	return utils.Filter(a.Network().Nodes(), func(id int64) bool {
		return !a.nodeSet[id]
	})
}

func (a *Adversary) String() string {
	name := "Adversary"
	if a.bt != nil {
		name = a.bt.name()
	}
	return fmt.Sprintf("%s(ratio=%.2f, active=%t)", name, a.ratio, a.active)
}

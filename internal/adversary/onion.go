package adversary

import (
	"math"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/protocol"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"golang.org/x/exp/slog"
)

// timestampTolerance is how far apart, in milliseconds, a relayed packet
// and the packet that caused it may be and still be linked.
const timestampTolerance = 1.0

// NewOnionRouting creates an adversary that links the encrypted packets its
// nodes relay by timing to walk an onion route back towards its source.
func NewOnionRouting(p protocol.Protocol, opts Options) (*Adversary, error) {
	t, ok := p.(*protocol.TOREnhanced)
	if !ok || !t.Onion() {
		return nil, errs.State("adversary.NewOnionRouting()", "protocol %s is not an onion routing protocol", p)
	}
	return newAdversary(p, opts, &onionBacktracker{
		protocol:         t,
		firstBroadcaster: make(map[string]protocol.Event),
	})
}

type onionBacktracker struct {
	protocol *protocol.TOREnhanced
	// Encrypted packets carry no readable message id, so both timelines
	// mix every message.
	received []protocol.Event
	sent     []protocol.Event
	// packet that made an adversarial node the broadcaster of a message
	firstBroadcaster map[string]protocol.Event
}

func (o *onionBacktracker) name() string {
	return "OnionRoutingAdversary"
}

func (o *onionBacktracker) observe(ee EavesdropEvent) bool {
	if ee.Event.Path == nil {
		return true
	}
	o.received = append(o.received, ee.Event)
	if len(ee.Event.Path) == 1 {
		if _, ok := o.firstBroadcaster[ee.MessageID]; !ok {
			o.firstBroadcaster[ee.MessageID] = ee.Event
		}
	}
	return false
}

func (o *onionBacktracker) recordPacket(ee EavesdropEvent) {
	o.sent = append(o.sent, ee.Event)
}

type hop struct {
	sender   int64
	receiver int64
	arrival  float64
	// onRoute is false while the sender may only be the last relayer
	onRoute bool
}

func (o *onionBacktracker) candidates(a *Adversary, mid string, c contact, found bool) (map[int64]float64, bool) {
	var start hop
	if fb, ok := o.firstBroadcaster[mid]; ok {
		start = hop{sender: fb.Sender, receiver: fb.Receiver, arrival: fb.Delay, onRoute: true}
	} else if found {
		start = hop{sender: c.from, receiver: c.node, arrival: c.time}
	} else {
		return o.fallback(a, c, found), true
	}

	sources, ok := o.trace(a, mid, start)
	sources = utils.Filter(utils.RemoveDuplicates(sources), func(n int64) bool {
		return !a.IsAdversarial(n)
	})
	if !ok || len(sources) == 0 {
		return o.fallback(a, c, found), true
	}
	weights := make(map[int64]float64, len(sources))
	for _, n := range sources {
		weights[n] = 1
	}
	return weights, true
}

// trace follows the route backwards from start. At every hop the previous
// packet is looked up by arrival time: among the packets the node received
// when it is adversarial, among the packets sent to it otherwise. Honest
// nodes where the trail ends are returned. It reports false when a step
// matches more than one sender, or when the trail ends at a node that can
// only be the last relayer.
func (o *onionBacktracker) trace(a *Adversary, mid string, start hop) ([]int64, bool) {
	net := a.Network()
	anon := o.protocol.AnonymityNetwork()
	maxSteps := net.NumNodes() + 1

	sources := make([]int64, 0)
	q := linkedlistqueue.New()
	q.Enqueue(start)
	for steps := 0; !q.Empty(); steps++ {
		if steps > maxSteps {
			slog.Debug("onion route trace did not terminate", "message", mid)
			return nil, false
		}
		v, _ := q.Dequeue()
		h := v.(hop)

		w, _ := net.EdgeWeightVia(h.sender, h.receiver, anon)
		node, sentAt := h.sender, h.arrival-w

		timeline := o.sent
		if a.IsAdversarial(node) {
			timeline = o.received
		}
		senders := make([]int64, 0, 1)
		var arrival float64
		for _, pe := range timeline {
			if pe.Receiver == node && math.Abs(pe.Delay-sentAt) < timestampTolerance {
				senders = append(senders, pe.Sender)
				arrival = pe.Delay
			}
		}
		senders = utils.RemoveDuplicates(senders)
		switch len(senders) {
		case 0:
			if !h.onRoute {
				slog.Debug("onion route trace found no relayed packet", "message", mid, "node", node)
				return nil, false
			}
			if !a.IsAdversarial(node) {
				sources = append(sources, node)
			}
		case 1:
			q.Enqueue(hop{sender: senders[0], receiver: node, arrival: arrival, onRoute: true})
		default:
			slog.Debug("ambiguous onion route", "message", mid, "node", node, "senders", senders)
			return nil, false
		}
	}
	return sources, true
}

// fallback spreads the mass over honest nodes except the one the message
// was first heard from, which relayed it and so cannot be its source.
func (o *onionBacktracker) fallback(a *Adversary, c contact, found bool) map[int64]float64 {
	weights := make(map[int64]float64)
	for _, n := range a.Candidates() {
		if found && n == c.from {
			continue
		}
		weights[n] = 1
	}
	return weights
}

package protocol

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/network"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
)

const (
	BroadcastAll  = "all"
	BroadcastSqrt = "sqrt"
)

// Below this mean degree a square root sample of neighbours is too small to spread a message.
const minSqrtMeanDegree = 9.0

// Broadcast floods every message to the receiver's neighbours.
type Broadcast struct {
	net  *network.Network
	mode string
	seed int64
	rng  *rand.Rand
}

func NewBroadcast(net *network.Network, mode string, seed int64) (*Broadcast, error) {
	switch mode {
	case BroadcastAll:
	case BroadcastSqrt:
		if d := net.MeanDegree(); d < minSqrtMeanDegree {
			return nil, errs.Config("protocol.NewBroadcast()", "sqrt mode needs a mean degree of at least %.0f, the network has %.1f", minSqrtMeanDegree, d)
		}
	default:
		return nil, errs.Config("protocol.NewBroadcast()", "invalid broadcast mode %q", mode)
	}
	return &Broadcast{
		net:  net,
		mode: mode,
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}, nil
}

func (b *Broadcast) Propagate(e Event) ([]Event, bool) {
	return b.spread(e, nil), true
}

// spread sends e onwards from its receiver in the spreading phase. Latencies
// missing from the main network are looked up in anon.
func (b *Broadcast) spread(e Event, anon *network.Network) []Event {
	forwarder := e.Receiver
	receivers := b.net.Neighbors(forwarder)
	if b.mode == BroadcastSqrt {
		size := int(math.Ceil(math.Sqrt(float64(len(receivers)))))
		receivers = utils.RandomSubset(b.rng, receivers, size)
	}
	events := make([]Event, 0, len(receivers))
	for _, receiver := range receivers {
		if receiver != e.Sender {
			events = append(events, newEvent(b.net, anon, e, forwarder, receiver, true, nil))
		}
	}
	return events
}

func (b *Broadcast) Network() *network.Network {
	return b.net
}

func (b *Broadcast) AnonymityNetwork() *network.Network {
	return nil
}

func (b *Broadcast) Mode() string {
	return b.mode
}

func (b *Broadcast) String() string {
	return fmt.Sprintf("BroadcastProtocol(broadcast_mode=%s)", b.mode)
}

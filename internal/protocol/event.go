package protocol

import (
	"fmt"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/network"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
)

// Event is the delivery of a message from Sender to Receiver. Delay is the
// simulated time elapsed since the message was created at its source. Path
// holds the relays still ahead of the message on a TOR-like arm, Receiver
// first, and is nil outside of arms.
type Event struct {
	Sender         int64
	Receiver       int64
	Delay          float64
	Hops           int
	SpreadingPhase bool
	Path           []int64
}

// Seed is the event that places a new message at its source.
func Seed(source int64) Event {
	return Event{Sender: source, Receiver: source}
}

// Less orders events by delay.
func Less(a, b Event) bool {
	return a.Delay < b.Delay
}

func (e Event) String() string {
	return fmt.Sprintf("Event(%d, %d, %f, %d, %t, %v)", e.Sender, e.Receiver, e.Delay, e.Hops, e.SpreadingPhase, e.Path)
}

// newEvent forwards parent from sender to receiver. The link latency comes
// from the main network, or from the anonymity network when the link only
// exists there.
func newEvent(net, anon *network.Network, parent Event, sender, receiver int64, spreading bool, path []int64) Event {
	latency, _ := net.EdgeWeightVia(sender, receiver, anon)
	var p []int64
	if path != nil {
		p = utils.Copy(path)
	}
	return Event{
		Sender:         sender,
		Receiver:       receiver,
		Delay:          parent.Delay + latency,
		Hops:           parent.Hops + 1,
		SpreadingPhase: spreading,
		Path:           p,
	}
}

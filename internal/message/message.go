package message

import (
	"fmt"
	"math/rand"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/adversary"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/protocol"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
	"github.com/google/uuid"
)

// Observer is the adversary a message reports its deliveries to.
type Observer interface {
	IsAdversarial(node int64) bool
	Active() bool
	Eavesdrop(ee adversary.EavesdropEvent)
	RecordPacket(ee adversary.EavesdropEvent)
	Protocol() protocol.Protocol
}

// Message is a transaction spreading from its source. It is driven one
// delivery at a time by Process.
type Message struct {
	id             string
	source         int64
	spreadingPhase bool
	queue          *utils.SafeHeap[protocol.Event]
	history        map[int64][]protocol.Event
	broadcasters   map[int64]bool
}

// New creates a message at source. The id is drawn from rng so that runs
// with the same seed produce the same ids.
func New(source int64, rng *rand.Rand) *Message {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		id = uuid.New()
	}
	m := &Message{
		id:           id.String(),
		source:       source,
		queue:        utils.NewSafeHeap(protocol.Less),
		history:      make(map[int64][]protocol.Event),
		broadcasters: make(map[int64]bool),
	}
	m.queue.Push(protocol.Seed(source))
	return m
}

// Process delivers the pending event with the smallest delay and lets the
// protocol forward it. It returns the fraction of nodes reached so far,
// whether the message is in its spreading phase, and whether the queue was
// already empty.
func (m *Message) Process(adv Observer) (coverage float64, spreading bool, queueEmpty bool) {
	p := adv.Protocol()
	e, ok := m.queue.Pop()
	if !ok {
		return m.coverage(p), m.spreadingPhase, true
	}
	if m.deliver(e, adv) && adv.Active() {
		return m.coverage(p), m.spreadingPhase, m.queue.Empty()
	}

	events, entered := p.Propagate(e)
	if entered {
		m.spreadingPhase = true
		m.broadcasters[e.Receiver] = true
	}
	relayed := adv.IsAdversarial(e.Receiver)
	for _, ne := range events {
		if relayed && ne.Path != nil {
			adv.RecordPacket(m.eavesdropEvent(ne))
		}
		if !m.broadcasters[ne.Receiver] {
			m.queue.Push(ne)
		}
	}
	return m.coverage(p), m.spreadingPhase, m.queue.Empty()
}

// FlushQueue delivers every pending event without forwarding any of them.
func (m *Message) FlushQueue(adv Observer) {
	for _, e := range m.queue.Drain() {
		m.deliver(e, adv)
	}
}

// deliver records e and reports whether an adversarial node received it.
func (m *Message) deliver(e protocol.Event, adv Observer) bool {
	m.history[e.Receiver] = append(m.history[e.Receiver], e)
	if !adv.IsAdversarial(e.Receiver) {
		return false
	}
	adv.Eavesdrop(m.eavesdropEvent(e))
	return true
}

func (m *Message) eavesdropEvent(e protocol.Event) adversary.EavesdropEvent {
	return adversary.EavesdropEvent{MessageID: m.id, Source: m.source, Event: e}
}

func (m *Message) coverage(p protocol.Protocol) float64 {
	return float64(len(m.history)) / float64(p.Network().NumNodes())
}

func (m *Message) ID() string {
	return m.id
}

func (m *Message) Source() int64 {
	return m.source
}

func (m *Message) SpreadingPhase() bool {
	return m.spreadingPhase
}

func (m *Message) QueueSize() int {
	return m.queue.Size()
}

// History returns every delivery per receiving node, in delivery order.
func (m *Message) History() map[int64][]protocol.Event {
	history := make(map[int64][]protocol.Event, len(m.history))
	for node, events := range m.history {
		history[node] = utils.Copy(events)
	}
	return history
}

// Reached is the number of distinct nodes that received the message.
func (m *Message) Reached() int {
	return len(m.history)
}

// FirstContactTimes maps every reached node to the delay of its first delivery.
func (m *Message) FirstContactTimes() map[int64]float64 {
	times := make(map[int64]float64, len(m.history))
	for node, events := range m.history {
		times[node] = events[0].Delay
	}
	return times
}

func (m *Message) String() string {
	return fmt.Sprintf("Message(%s, %d)", m.id, m.source)
}

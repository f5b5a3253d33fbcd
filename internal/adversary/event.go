package adversary

import (
	"fmt"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/protocol"
)

// EavesdropEvent is a delivery observed at an adversarial node.
type EavesdropEvent struct {
	MessageID string
	Source    int64
	Event     protocol.Event
}

func (ee EavesdropEvent) Sender() int64 {
	return ee.Event.Sender
}

func (ee EavesdropEvent) Receiver() int64 {
	return ee.Event.Receiver
}

func (ee EavesdropEvent) String() string {
	return fmt.Sprintf("EavesdropEvent(%s, %d, %s)", ee.MessageID, ee.Source, ee.Event)
}

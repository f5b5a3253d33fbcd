package adversary

import (
	"math"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"golang.org/x/exp/slog"
)

type Estimator string

const (
	FirstReach   Estimator = "first_reach"
	FirstSent    Estimator = "first_sent"
	ShortestPath Estimator = "shortest_path"
	Dummy        Estimator = "dummy"
)

var Estimators = []Estimator{FirstReach, FirstSent, ShortestPath, Dummy}

func ParseEstimator(name string) (Estimator, error) {
	for _, e := range Estimators {
		if string(e) == name {
			return e, nil
		}
	}
	return "", errs.Config("adversary.ParseEstimator()", "unknown estimator %q", name)
}

// contact is the first observation of a message by the adversary.
type contact struct {
	time        float64
	node        int64
	from        int64
	byBroadcast bool
}

// firstContacts finds, per message, the observation with the earliest
// reference time: the arrival time for first_reach, the estimated send time
// for first_sent.
func (a *Adversary) firstContacts(estimator Estimator) map[string]contact {
	net := a.Network()
	anon := a.protocol.AnonymityNetwork()
	contacts := make(map[string]contact)
	reference := make(map[string]float64)
	for _, ee := range a.captured {
		ts := ee.Event.Delay
		if estimator == FirstSent {
			w, _ := net.EdgeWeightVia(ee.Sender(), ee.Receiver(), anon)
			ts -= w
		}
		if ref, seen := reference[ee.MessageID]; !seen || ts < ref {
			reference[ee.MessageID] = ts
			contacts[ee.MessageID] = contact{
				time:        ee.Event.Delay,
				node:        ee.Receiver(),
				from:        ee.Sender(),
				byBroadcast: ee.Event.SpreadingPhase,
			}
		}
	}
	return contacts
}

// Predict returns a source distribution for every message in messageIDs,
// or for every captured message when messageIDs is nil. Every row sums to
// one over honest nodes and is zero on adversarial ones; messages the
// adversary never saw get the uniform row.
func (a *Adversary) Predict(estimator Estimator, messageIDs []string) (*Predictions, error) {
	if _, err := ParseEstimator(string(estimator)); err != nil {
		return nil, err
	}
	if messageIDs == nil {
		messageIDs = a.CapturedMessages()
	}
	preds := newPredictions(messageIDs, a.Network().Nodes())

	var contacts map[string]contact
	if estimator != Dummy {
		reach := estimator
		if reach == ShortestPath {
			reach = FirstReach
		}
		contacts = a.firstContacts(reach)
	}

	for i, mid := range messageIDs {
		if estimator == Dummy || !a.messages.Contains(mid) {
			preds.Rows[i] = a.dummyRow(preds)
			continue
		}
		c, found := contacts[mid]
		var weights map[int64]float64
		switch {
		case estimator == ShortestPath:
			if found {
				weights = a.inverseDistances(c.node)
			}
		case a.bt != nil:
			if w, ok := a.bt.candidates(a, mid, c, found); ok {
				weights = w
			}
		case found:
			weights = map[int64]float64{c.from: 1}
		}
		preds.Rows[i] = a.normalizedRow(preds, mid, weights)
	}
	return preds, nil
}

func (a *Adversary) dummyRow(preds *Predictions) []float64 {
	row := make([]float64, len(preds.Nodes))
	honest := len(preds.Nodes) - len(a.nodes)
	if honest <= 0 {
		return row
	}
	for j, n := range preds.Nodes {
		if !a.nodeSet[n] {
			row[j] = 1 / float64(honest)
		}
	}
	return row
}

// normalizedRow scales weights into a distribution, falling back to the
// uniform row when they carry no mass or point at an adversarial node.
func (a *Adversary) normalizedRow(preds *Predictions, mid string, weights map[int64]float64) []float64 {
	for n, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) || preds.Column(n) < 0 {
			slog.Debug("invalid source weight, using uniform prediction", "message", mid, "node", n, "weight", w)
			return a.dummyRow(preds)
		}
		if w > 0 && a.nodeSet[n] {
			slog.Debug("prediction points at an adversarial node, using uniform prediction", "message", mid, "node", n)
			return a.dummyRow(preds)
		}
	}
	// summed in column order so that equal inputs give bit-identical rows
	row := make([]float64, len(preds.Nodes))
	total := 0.0
	for j, n := range preds.Nodes {
		row[j] = weights[n]
		total += row[j]
	}
	if total <= 0 {
		return a.dummyRow(preds)
	}
	for j := range row {
		row[j] /= total
	}
	return row
}

// inverseDistances weighs every honest node by the inverse latency of its
// fastest route to observer.
func (a *Adversary) inverseDistances(observer int64) map[int64]float64 {
	dist, ok := a.distances[observer]
	if !ok {
		dist = a.Network().ShortestPathsFrom(observer)
		a.distances[observer] = dist
	}
	weights := make(map[int64]float64)
	for n, d := range dist {
		if a.nodeSet[n] || math.IsInf(d, 1) {
			continue
		}
		weights[n] = 1 / math.Max(d, minDistance)
	}
	return weights
}

// minDistance keeps zero latency routes from producing infinite weights.
const minDistance = 1e-9

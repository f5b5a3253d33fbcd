package adversary

import (
	"math"
	"testing"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/network"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/protocol"
	"github.com/stretchr/testify/require"
)

const seed = 44

func customNetwork(t *testing.T, directed bool, latencies map[network.Link]float64) *network.Network {
	t.Helper()
	nw, err := network.NewNodeWeightGenerator(network.NodeWeightRandom, nil)
	require.NoError(t, err)
	ew, err := network.NewEdgeWeightGenerator(network.EdgeWeightCustom)
	require.NoError(t, err)
	topo := network.Topology{Directed: directed, Latencies: latencies}
	for l := range latencies {
		topo.Edges = append(topo.Edges, [2]int64{l.U, l.V})
	}
	net, err := network.New(nw, ew, topo, seed)
	require.NoError(t, err)
	return net
}

func regularNetwork(t *testing.T, n, k int) *network.Network {
	t.Helper()
	nw, err := network.NewNodeWeightGenerator(network.NodeWeightRandom, nil)
	require.NoError(t, err)
	ew, err := network.NewEdgeWeightGenerator(network.EdgeWeightNormal)
	require.NoError(t, err)
	net, err := network.NewRandomRegular(nw, ew, n, k, seed)
	require.NoError(t, err)
	return net
}

func requireDistribution(t *testing.T, a *Adversary, preds *Predictions) {
	t.Helper()
	for i, row := range preds.Rows {
		sum := 0.0
		for j, p := range row {
			if a.IsAdversarial(preds.Nodes[j]) {
				require.Zero(t, p, "message %s has mass on adversarial node %d", preds.MessageIDs[i], preds.Nodes[j])
			}
			require.GreaterOrEqual(t, p, 0.0)
			sum += p
		}
		require.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestFirstReachAndFirstSent(t *testing.T) {
	net := customNetwork(t, true, map[network.Link]float64{
		network.NewLink(1, 2): 0.9,
		network.NewLink(1, 3): 1.84,
		network.NewLink(2, 3): 0.85,
	})
	p, err := protocol.NewBroadcast(net, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	adv, err := New(p, Options{Nodes: []int64{3}})
	require.NoError(t, err)
	require.InDelta(t, 1.0/3, adv.Ratio(), 1e-12)

	adv.Eavesdrop(EavesdropEvent{MessageID: "m", Source: 1, Event: protocol.Event{Sender: 2, Receiver: 3, Delay: 1.75, Hops: 2, SpreadingPhase: true}})
	adv.Eavesdrop(EavesdropEvent{MessageID: "m", Source: 1, Event: protocol.Event{Sender: 1, Receiver: 3, Delay: 1.84, Hops: 1, SpreadingPhase: true}})
	require.Len(t, adv.CapturedEvents(), 2)
	require.Equal(t, []string{"m"}, adv.CapturedMessages())

	reach, err := adv.Predict(FirstReach, nil)
	require.NoError(t, err)
	require.Equal(t, 1.0, reach.Probability("m", 2))
	require.Equal(t, 0.0, reach.Probability("m", 1))

	sent, err := adv.Predict(FirstSent, nil)
	require.NoError(t, err)
	require.Equal(t, 1.0, sent.Probability("m", 1))
	require.Equal(t, 0.0, sent.Probability("m", 2))
	require.Equal(t, 0.0, sent.Probability("m", 3))
}

func TestDummyAndUnseenMessages(t *testing.T) {
	net := regularNetwork(t, 20, 4)
	p, err := protocol.NewBroadcast(net, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	adv, err := New(p, Options{Ratio: 0.25, Seed: seed})
	require.NoError(t, err)
	require.Len(t, adv.Nodes(), 5)
	require.Len(t, adv.Candidates(), 15)

	preds, err := adv.Predict(Dummy, []string{"a", "b"})
	require.NoError(t, err)
	requireDistribution(t, adv, preds)
	for _, n := range adv.Candidates() {
		require.InDelta(t, 1.0/15, preds.Probability("a", n), 1e-12)
	}

	// messages the adversary never saw get the uniform row for every estimator
	for _, est := range Estimators {
		preds, err = adv.Predict(est, []string{"unseen"})
		require.NoError(t, err)
		requireDistribution(t, adv, preds)
		require.InDelta(t, 1.0/15, preds.Probability("unseen", adv.Candidates()[0]), 1e-12)
	}

	_, err = adv.Predict("closest", nil)
	require.ErrorIs(t, err, errs.ErrConfig)
	_, err = ParseEstimator("closest")
	require.ErrorIs(t, err, errs.ErrConfig)
	est, err := ParseEstimator("first_sent")
	require.NoError(t, err)
	require.Equal(t, FirstSent, est)
}

func TestAdversaryOptions(t *testing.T) {
	net := regularNetwork(t, 20, 4)
	p, err := protocol.NewBroadcast(net, protocol.BroadcastAll, seed)
	require.NoError(t, err)

	_, err = New(p, Options{Ratio: 1})
	require.ErrorIs(t, err, errs.ErrConfig)
	_, err = New(p, Options{Nodes: []int64{99}})
	require.ErrorIs(t, err, errs.ErrConfig)

	a1, err := New(p, Options{Ratio: 0.2, UseWeights: true, Seed: 9})
	require.NoError(t, err)
	a2, err := New(p, Options{Ratio: 0.2, UseWeights: true, Seed: 9})
	require.NoError(t, err)
	require.Equal(t, a1.Nodes(), a2.Nodes())
	require.Equal(t, "Adversary(ratio=0.20, active=false)", a1.String())
}

func TestShortestPath(t *testing.T) {
	net := customNetwork(t, false, map[network.Link]float64{
		network.NewLink(0, 1): 1,
		network.NewLink(1, 2): 1,
		network.NewLink(2, 3): 1,
	})
	p, err := protocol.NewBroadcast(net, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	adv, err := New(p, Options{Nodes: []int64{3}})
	require.NoError(t, err)
	adv.Eavesdrop(EavesdropEvent{MessageID: "m", Source: 0, Event: protocol.Event{Sender: 2, Receiver: 3, Delay: 3, Hops: 3, SpreadingPhase: true}})

	preds, err := adv.Predict(ShortestPath, nil)
	require.NoError(t, err)
	requireDistribution(t, adv, preds)
	total := 1.0 + 1.0/2 + 1.0/3
	require.InDelta(t, 1/total, preds.Probability("m", 2), 1e-9)
	require.InDelta(t, 0.5/total, preds.Probability("m", 1), 1e-9)
	require.InDelta(t, (1.0/3)/total, preds.Probability("m", 0), 1e-9)
}

func TestDandelionAdversary(t *testing.T) {
	net := regularNetwork(t, 40, 4)
	b, err := protocol.NewBroadcast(net, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	_, err = NewDandelion(b, Options{Ratio: 0.1})
	require.ErrorIs(t, err, errs.ErrState)

	d, err := protocol.NewDandelion(net, 0.5, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	anon := d.AnonymityNetwork()

	var observer int64 = -1
	for _, n := range anon.Nodes() {
		if len(anon.Predecessors(n)) > 0 {
			observer = n
			break
		}
	}
	require.NotEqual(t, int64(-1), observer)
	pred := anon.Predecessors(observer)[0]

	adv, err := ForProtocol(d, Options{Nodes: []int64{observer}})
	require.NoError(t, err)
	require.Contains(t, adv.String(), "DandelionAdversary")
	adv.Eavesdrop(EavesdropEvent{MessageID: "stem", Event: protocol.Event{Sender: pred, Receiver: observer, Delay: 10, Hops: 3}})

	// depth of every honest ancestor of the observer on the anonymity graph
	depth := map[int64]int{observer: 0}
	frontier := []int64{observer}
	for len(frontier) > 0 {
		next := make([]int64, 0)
		for _, v := range frontier {
			for _, u := range anon.Predecessors(v) {
				if _, ok := depth[u]; !ok {
					depth[u] = depth[v] + 1
					next = append(next, u)
				}
			}
		}
		frontier = next
	}

	preds, err := adv.Predict(FirstReach, nil)
	require.NoError(t, err)
	requireDistribution(t, adv, preds)
	top := preds.Probability("stem", pred)
	require.Greater(t, top, 0.0)
	for _, n := range preds.Nodes {
		prob := preds.Probability("stem", n)
		dd, reachable := depth[n]
		if !reachable || n == observer {
			require.Zero(t, prob, "node %d", n)
			continue
		}
		require.InDelta(t, top*math.Pow(0.5, float64(dd-1)), prob, 1e-9, "node %d at depth %d", n, dd)
	}
}

func TestDandelionAdversaryWithoutAncestors(t *testing.T) {
	net := regularNetwork(t, 40, 4)
	d, err := protocol.NewDandelionPlusPlus(net, 0.3, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	anon := d.AnonymityNetwork()

	var observer int64
	for _, n := range anon.Nodes() {
		if len(anon.Predecessors(n)) > 0 {
			observer = n
			break
		}
	}
	preds := anon.Predecessors(observer)
	adv, err := NewDandelion(d, Options{Nodes: append([]int64{observer}, preds...)})
	require.NoError(t, err)
	adv.Eavesdrop(EavesdropEvent{MessageID: "m", Event: protocol.Event{Sender: preds[0], Receiver: observer, Delay: 1, Hops: 2}})

	p, err := adv.Predict(FirstSent, nil)
	require.NoError(t, err)
	requireDistribution(t, adv, p)
	honest := adv.Candidates()
	for _, n := range honest {
		require.InDelta(t, 1.0/float64(len(honest)), p.Probability("m", n), 1e-12)
	}
}

func onionSetup(t *testing.T, adversaries []int64) (*Adversary, *network.Network) {
	t.Helper()
	net := customNetwork(t, false, map[network.Link]float64{
		network.NewLink(0, 1): 10,
		network.NewLink(1, 2): 10,
		network.NewLink(2, 3): 10,
		network.NewLink(3, 4): 10,
		network.NewLink(5, 1): 10,
	})
	onion, err := protocol.NewOnionRouting(net, 3, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	adv, err := ForProtocol(onion, Options{Nodes: adversaries})
	require.NoError(t, err)
	require.Contains(t, adv.String(), "OnionRoutingAdversary")
	return adv, net
}

func TestOnionRoutingAdversary(t *testing.T) {
	d, err := protocol.NewDandelion(regularNetwork(t, 20, 4), 0.5, protocol.BroadcastAll, seed)
	require.NoError(t, err)
	_, err = NewOnionRouting(d, Options{Ratio: 0.1})
	require.ErrorIs(t, err, errs.ErrState)

	// route 0 -> 1 -> 2 -> 3 with adversarial relays 1 and 3
	adv, _ := onionSetup(t, []int64{1, 3})
	adv.Eavesdrop(EavesdropEvent{MessageID: "m", Source: 0, Event: protocol.Event{Sender: 0, Receiver: 1, Delay: 10, Hops: 1, Path: []int64{1, 2, 3}}})
	adv.RecordPacket(EavesdropEvent{MessageID: "m", Source: 0, Event: protocol.Event{Sender: 1, Receiver: 2, Delay: 20, Hops: 2, Path: []int64{2, 3}}})
	adv.Eavesdrop(EavesdropEvent{MessageID: "m", Source: 0, Event: protocol.Event{Sender: 2, Receiver: 3, Delay: 30, Hops: 3, Path: []int64{3}}})
	require.Empty(t, adv.CapturedEvents())
	require.Equal(t, []string{"m"}, adv.CapturedMessages())

	preds, err := adv.Predict(FirstReach, nil)
	require.NoError(t, err)
	requireDistribution(t, adv, preds)
	require.Equal(t, 1.0, preds.Probability("m", 0))
}

func TestOnionRoutingAdversaryAmbiguous(t *testing.T) {
	adv, _ := onionSetup(t, []int64{1, 3})
	adv.Eavesdrop(EavesdropEvent{MessageID: "m", Event: protocol.Event{Sender: 0, Receiver: 1, Delay: 10, Hops: 1, Path: []int64{1, 2, 3}}})
	adv.Eavesdrop(EavesdropEvent{MessageID: "m", Event: protocol.Event{Sender: 5, Receiver: 1, Delay: 10.5, Hops: 1, Path: []int64{1, 2, 3}}})
	adv.RecordPacket(EavesdropEvent{MessageID: "m", Event: protocol.Event{Sender: 1, Receiver: 2, Delay: 20, Hops: 2, Path: []int64{2, 3}}})
	adv.Eavesdrop(EavesdropEvent{MessageID: "m", Event: protocol.Event{Sender: 2, Receiver: 3, Delay: 30, Hops: 3, Path: []int64{3}}})
	// the broadcast heard back from node 4
	adv.Eavesdrop(EavesdropEvent{MessageID: "m", Event: protocol.Event{Sender: 4, Receiver: 3, Delay: 50, Hops: 5, SpreadingPhase: true}})

	preds, err := adv.Predict(FirstReach, nil)
	require.NoError(t, err)
	requireDistribution(t, adv, preds)
	// uniform over honest nodes except the one the broadcast came from
	require.Zero(t, preds.Probability("m", 4))
	for _, n := range []int64{0, 2, 5} {
		require.InDelta(t, 1.0/3, preds.Probability("m", n), 1e-12)
	}
}

func TestOnionRoutingAdversaryOnlySeesLastRelayer(t *testing.T) {
	adv, _ := onionSetup(t, []int64{4})
	// node 3 may be the last relayer and not the source
	adv.Eavesdrop(EavesdropEvent{MessageID: "m", Source: 0, Event: protocol.Event{Sender: 3, Receiver: 4, Delay: 40, Hops: 4, SpreadingPhase: true}})

	preds, err := adv.Predict(FirstReach, nil)
	require.NoError(t, err)
	requireDistribution(t, adv, preds)
	require.Zero(t, preds.Probability("m", 3))
	for _, n := range []int64{0, 1, 2, 5} {
		require.InDelta(t, 0.25, preds.Probability("m", n), 1e-12)
	}
}

func TestOnionRoutingAdversaryMessagesShareRelays(t *testing.T) {
	adv, _ := onionSetup(t, []int64{1, 3})
	for mid, source := range map[string]int64{"a": 0, "b": 5} {
		adv.Eavesdrop(EavesdropEvent{MessageID: mid, Source: source, Event: protocol.Event{Sender: source, Receiver: 1, Delay: 10, Hops: 1, Path: []int64{1, 2, 3}}})
		adv.RecordPacket(EavesdropEvent{MessageID: mid, Source: source, Event: protocol.Event{Sender: 1, Receiver: 2, Delay: 20, Hops: 2, Path: []int64{2, 3}}})
		adv.Eavesdrop(EavesdropEvent{MessageID: mid, Source: source, Event: protocol.Event{Sender: 2, Receiver: 3, Delay: 30, Hops: 3, Path: []int64{3}}})
	}

	preds, err := adv.Predict(FirstReach, nil)
	require.NoError(t, err)
	requireDistribution(t, adv, preds)
	// packets entering relay 1 at the same time cannot be told apart
	for _, mid := range []string{"a", "b"} {
		for _, n := range []int64{0, 2, 4, 5} {
			require.InDelta(t, 0.25, preds.Probability(mid, n), 1e-12)
		}
	}
}

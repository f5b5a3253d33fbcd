package adversary

// Predictions holds one probability row per message over Nodes.
type Predictions struct {
	MessageIDs []string
	Nodes      []int64
	Rows       [][]float64
	rowOf      map[string]int
	colOf      map[int64]int
}

func newPredictions(messageIDs []string, nodes []int64) *Predictions {
	p := &Predictions{
		MessageIDs: messageIDs,
		Nodes:      nodes,
		Rows:       make([][]float64, len(messageIDs)),
		rowOf:      make(map[string]int, len(messageIDs)),
		colOf:      make(map[int64]int, len(nodes)),
	}
	for i, mid := range messageIDs {
		p.rowOf[mid] = i
	}
	for j, n := range nodes {
		p.colOf[n] = j
	}
	return p
}

// Row returns the distribution predicted for a message.
func (p *Predictions) Row(mid string) ([]float64, bool) {
	i, ok := p.rowOf[mid]
	if !ok {
		return nil, false
	}
	return p.Rows[i], true
}

// Probability is the predicted chance that node originated the message.
func (p *Predictions) Probability(mid string, node int64) float64 {
	row, ok := p.Row(mid)
	if !ok {
		return 0
	}
	j, ok := p.colOf[node]
	if !ok {
		return 0
	}
	return row[j]
}

// Column is the position of node in every row, -1 if unknown.
func (p *Predictions) Column(node int64) int {
	if j, ok := p.colOf[node]; ok {
		return j
	}
	return -1
}

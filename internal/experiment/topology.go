package experiment

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/network"
	pl "github.com/HannahMarsh/PrettyLogger"
)

// LoadTopology reads an undirected edge list with one "u,v" or
// "u,v,latency" row per link. Lines starting with # are ignored.
func LoadTopology(path string) (network.Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return network.Topology{}, pl.WrapError(err, "experiment.LoadTopology(): failed to open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return network.Topology{}, pl.WrapError(err, "experiment.LoadTopology(): malformed edge list")
	}

	topo := network.Topology{Latencies: make(map[network.Link]float64)}
	for i, rec := range records {
		if len(rec) != 2 && len(rec) != 3 {
			return network.Topology{}, errs.Config("experiment.LoadTopology()", "line %d: expected 2 or 3 fields, got %d", i+1, len(rec))
		}
		u, errU := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		v, errV := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if errU != nil || errV != nil {
			return network.Topology{}, errs.Config("experiment.LoadTopology()", "line %d: node ids must be integers", i+1)
		}
		topo.Edges = append(topo.Edges, [2]int64{u, v})
		if len(rec) == 3 {
			latency, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
			if err != nil {
				return network.Topology{}, errs.Config("experiment.LoadTopology()", "line %d: bad latency %q", i+1, rec[2])
			}
			topo.Latencies[network.NewLink(u, v)] = latency
		}
	}
	return topo, nil
}

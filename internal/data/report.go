package data

import (
	"strconv"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/errs"
)

// Report summarises how well one estimator deanonymised the messages of a
// simulation run. Protocol, AdversaryRatio and Network describe the run.
type Report struct {
	Estimator          string  `json:"estimator"`
	HitRatio           float64 `json:"hit_ratio"`
	InverseRank        float64 `json:"inverse_rank"`
	Entropy            float64 `json:"entropy"`
	NDCG               float64 `json:"ndcg"`
	MessageSpreadRatio float64 `json:"message_spread_ratio"`
	Protocol           string  `json:"protocol"`
	AdversaryRatio     float64 `json:"adversary_ratio"`
	Network            string  `json:"network"`
}

var header = []string{
	"estimator",
	"hit_ratio",
	"inverse_rank",
	"entropy",
	"ndcg",
	"message_spread_ratio",
	"protocol",
	"adversary_ratio",
	"network",
}

// Header is the column order of Record.
func Header() []string {
	h := make([]string, len(header))
	copy(h, header)
	return h
}

// Record renders r as a CSV row.
func (r Report) Record() []string {
	return []string{
		r.Estimator,
		formatFloat(r.HitRatio),
		formatFloat(r.InverseRank),
		formatFloat(r.Entropy),
		formatFloat(r.NDCG),
		formatFloat(r.MessageSpreadRatio),
		r.Protocol,
		formatFloat(r.AdversaryRatio),
		r.Network,
	}
}

func parseRecord(record []string) (Report, error) {
	if len(record) != len(header) {
		return Report{}, errs.Config("data.parseRecord()", "expected %d columns, got %d", len(header), len(record))
	}
	floats := make([]float64, 0, 6)
	for _, i := range []int{1, 2, 3, 4, 5, 7} {
		f, err := strconv.ParseFloat(record[i], 64)
		if err != nil {
			return Report{}, errs.Config("data.parseRecord()", "column %s: %v", header[i], err)
		}
		floats = append(floats, f)
	}
	return Report{
		Estimator:          record[0],
		HitRatio:           floats[0],
		InverseRank:        floats[1],
		Entropy:            floats[2],
		NDCG:               floats[3],
		MessageSpreadRatio: floats[4],
		Protocol:           record[6],
		AdversaryRatio:     floats[5],
		Network:            record[8],
	}, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

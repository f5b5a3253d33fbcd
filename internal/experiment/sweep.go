package experiment

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/config"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/internal/data"
	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils/executor"
	"golang.org/x/exp/slog"
)

// Queries expands the configuration into one query per adversary ratio and
// trial. A zero seed draws fresh seeds.
func Queries(cfg *config.Config) []Query {
	seeds := rand.New(rand.NewSource(cfg.Simulation.Seed))
	if cfg.Simulation.Seed == 0 {
		seeds = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	queries := make([]Query, 0, cfg.Simulation.Trials*len(cfg.Adversary.Ratios))
	for trial := 0; trial < cfg.Simulation.Trials; trial++ {
		for _, ratio := range cfg.Adversary.Ratios {
			queries = append(queries, Query{
				Index:          len(queries),
				AdversaryRatio: ratio,
				Seed:           seeds.Int63n(100000),
			})
		}
	}
	return queries
}

// Sweep runs every query on a worker pool. Each query owns its network,
// protocols and adversaries. Reports are handed to store as queries finish
// and returned in query order.
func Sweep(ctx context.Context, cfg *config.Config, store data.Store) ([]data.Report, error) {
	queries := Queries(cfg)
	var wp *executor.WorkerPool
	if cfg.Output.Workers > 0 {
		wp = executor.NewWorkerPoolWithMax(cfg.Output.Workers)
	} else {
		wp = executor.NewWorkerPool()
	}
	defer wp.Stop()

	var done int64
	futures := make([]*executor.Future[[]data.Report], len(queries))
	for i, q := range queries {
		q := q
		futures[i] = executor.SubmitWithError[[]data.Report](wp, nil, func() ([]data.Report, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			reports, err := RunSingle(cfg, q.AdversaryRatio, q.Seed)
			if err != nil {
				return nil, err
			}
			if store != nil {
				if err = store.Save(ctx, reports); err != nil {
					return nil, err
				}
			}
			return reports, nil
		})
		futures[i].HandleError(func(err error) {
			slog.Error("query failed", err, "query", q.String())
		})
		futures[i].ThenAccept(func(reports []data.Report, err error) {
			if err == nil {
				slog.Info("query finished", "query", q.String(), "done", atomic.AddInt64(&done, 1), "total", len(queries))
			}
		})
	}

	results, err := executor.GetAll(futures)
	if err != nil {
		return nil, err
	}
	reports := make([]data.Report, 0)
	for _, r := range results {
		reports = append(reports, r...)
	}
	return reports, nil
}

package gibbs

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

// UpdateStats summarizes one call to Update.
type UpdateStats struct {
	Documents  int
	Words      int
	Perplexity float64
	Duration   time.Duration
}

// Update trains the model incrementally on a batch of bags-of-words.
// Words of the batch get random initial topics and are added to the
// model.  Then, for every pass and every chunk of Params.ChunkSize
// documents, Params.Workers goroutines each sample a shard of the
// chunk against their own copy of the model, and the recorded diffs
// are merged back.  Update returns ctx.Err() between chunks once ctx
// is done; the model stays consistent in that case.
func (m *Model) Update(ctx context.Context, batch []BoW) (UpdateStats, error) {
	start := time.Now()
	stats := UpdateStats{}
	rng := rand.New(rand.NewSource(m.Params.Seed + int64(m.Updates)))

	for i, bow := range batch {
		for _, t := range bow {
			if t.Id < 0 || int(t.Id) >= m.VocabSize() {
				return stats, fmt.Errorf("document %d: word id %d outside vocabulary of size %d",
					i, t.Id, m.VocabSize())
			}
		}
	}

	docs := make([]*Document, 0, len(batch))
	for _, bow := range batch {
		d := InitializeDocument(bow, m.NumTopics(), rng)
		if d.Len() == 0 {
			continue
		}
		d.ApplyToModel(m)
		docs = append(docs, d)
		stats.Words += d.Len()
	}
	stats.Documents = len(docs)
	m.Updates++
	if len(docs) == 0 {
		return stats, nil
	}

	chunk := m.Params.ChunkSize
	if chunk <= 0 {
		chunk = len(docs)
	}
	passes := m.Params.Passes
	if passes < 1 {
		passes = 1
	}

	for pass := 0; pass < passes; pass++ {
		for begin := 0; begin < len(docs); begin += chunk {
			if e := ctx.Err(); e != nil {
				m.dropEmptyHists()
				return stats, e
			}
			end := begin + chunk
			if end > len(docs) {
				end = len(docs)
			}
			if e := m.sampleChunk(ctx, docs[begin:end], rng); e != nil {
				return stats, e
			}
		}
		if m.Params.OptimizePriors {
			o := NewOptimizer(m.NumTopics())
			for _, d := range docs {
				o.CollectDocumentStatistics(d)
			}
			o.OptimizeTopicPriors(m, m.Params.Shape, m.Params.Scale, m.Params.OptimIter)
		}
		glog.V(1).Infof("Update %d pass %d sampled %d documents", m.Updates, pass, len(docs))
	}
	m.dropEmptyHists()

	stats.Perplexity = NewEvaluator(m, m.Params.CacheMB, NewSampler(m)).Perplexity(docs)
	stats.Duration = time.Since(start)
	return stats, nil
}

// sampleChunk runs one Gibbs sweep over docs.
func (m *Model) sampleChunk(ctx context.Context, docs []*Document, rng *rand.Rand) error {
	workers := m.Params.Workers
	if workers < 1 {
		workers = 1
	}
	shards := NewSharder(workers).Shard(len(docs))
	if len(shards) <= 1 {
		s := NewSampler(m)
		for _, d := range docs {
			s.Sample(d, rng)
		}
		return nil
	}

	diffs := make([]*Model, len(shards))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, shard := range shards {
		i, shard := i, shard
		seed := rng.Int63()
		g.Go(func() error {
			if e := ctx.Err(); e != nil {
				return e
			}
			local := m.Clone()
			diffs[i] = local.newDiff()
			s := NewSampler(local)
			s.SetDiff(diffs[i])
			r := rand.New(rand.NewSource(seed))
			for _, d := range docs[shard.Begin:shard.End] {
				s.Sample(d, r)
			}
			return nil
		})
	}
	if e := g.Wait(); e != nil {
		// Documents of finished shards already carry their new
		// topics, so their diffs must be merged either way.
		for _, d := range diffs {
			if d != nil {
				m.Accumulate(d)
			}
		}
		return e
	}
	for _, d := range diffs {
		m.Accumulate(d)
	}
	return nil
}

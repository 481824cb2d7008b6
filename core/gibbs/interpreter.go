package gibbs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"strings"

	"github.com/fz-29/ner-crf/core/hist"
)

var ErrBurnin = errors.New("iterations must exceed burn-in")

// InferParams controls the Gibbs chain run for a new document.
type InferParams struct {
	Burnin         int
	Iterations     int
	MinProbability float64
	CacheMB        int
}

// Interpreter infers the topic distribution of unseen documents by
// Gibbs sampling their topic assignments against a fixed model.
type Interpreter struct {
	model            *ModelAccessor
	smoothingOnlySum []float64
	seed             int64
}

func NewInterpreter(m *Model, cacheMB int) *Interpreter {
	accessor := NewModelAccessor(m, cacheMB)
	return &Interpreter{
		model:            accessor,
		smoothingOnlySum: computeWordTopicPriorSum(accessor),
		seed:             m.Params.Seed,
	}
}

func computeWordTopicPriorSum(model *ModelAccessor) []float64 {
	sums := make([]float64, model.VocabSize())
	for word := range sums {
		for topic, p := range model.WordTopicDist(int32(word)) {
			sums[word] += model.TopicPrior[topic] * p
		}
	}
	return sums
}

// Interpret samples iter sweeps over bow and averages the document
// topic histograms of the sweeps after the first burnin.  The chain is
// seeded from bow, so equal inputs give equal results.  An empty bow
// yields the normalized topic prior.
func (intr *Interpreter) Interpret(bow BoW, burnin, iter int) (SparseDist, error) {
	if iter <= burnin || burnin < 0 {
		return nil, fmt.Errorf("%w: iterations=%d burnin=%d", ErrBurnin, iter, burnin)
	}
	for _, t := range bow {
		if t.Id < 0 || int(t.Id) >= intr.model.VocabSize() {
			return nil, fmt.Errorf("word id %d outside vocabulary of size %d", t.Id, intr.model.VocabSize())
		}
	}

	rng := rand.New(rand.NewSource(intr.seedFor(bow)))
	doc := InitializeDocument(bow, intr.model.NumTopics(), rng)
	if doc.Len() == 0 {
		return intr.priorDist(), nil
	}

	cache := newDistCache(intr.model)
	accumulated := hist.NewSparse()
	norm := 0.0
	for i := 0; i < iter; i++ {
		for j, word := range doc.Words {
			doc.TopicHist.Dec(int(doc.Topics[j]), 1)
			doc.Topics[j] = intr.sampleTopic(doc, word, cache.Get(word), rng)
			doc.TopicHist.Inc(int(doc.Topics[j]), 1)
		}

		if i >= burnin {
			doc.TopicHist.ForEach(func(topic int, count int64) error {
				accumulated.Inc(topic, int(count))
				norm += float64(count)
				return nil
			})
		}
	}

	dist := make(SparseDist, 0, accumulated.Len())
	accumulated.ForEach(func(topic int, count int64) error {
		dist = append(dist, Prob{int32(topic), float64(count) / norm})
		return nil
	})
	sort.Sort(dist)
	return dist, nil
}

func (intr *Interpreter) seedFor(bow BoW) int64 {
	hasher := fnv.New64()
	var buf [8]byte
	for _, t := range bow {
		binary.LittleEndian.PutUint32(buf[:4], uint32(t.Id))
		binary.LittleEndian.PutUint32(buf[4:], uint32(t.Count))
		hasher.Write(buf[:])
	}
	return int64(hasher.Sum64()) ^ intr.seed
}

func (intr *Interpreter) priorDist() SparseDist {
	dist := make(SparseDist, len(intr.model.TopicPrior))
	for k, a := range intr.model.TopicPrior {
		dist[k] = Prob{int32(k), a / intr.model.TopicPriorSum}
	}
	sort.Sort(dist)
	return dist
}

type distCache struct {
	accessor *ModelAccessor
	cache    map[int32][]float64
}

func newDistCache(a *ModelAccessor) *distCache {
	return &distCache{
		accessor: a,
		cache:    make(map[int32][]float64)}
}

func (c *distCache) Get(word int32) []float64 {
	if dist, ok := c.cache[word]; ok {
		return dist
	}
	dist := c.accessor.WordTopicDist(word)
	c.cache[word] = dist
	return dist
}

func (intr *Interpreter) sampleTopic(doc *Document, word int32,
	wordTopicDist []float64, rng *rand.Rand) int32 {

	docTopicBucket, docTopicSum := intr.calculateDocumentTopicBucket(doc, wordTopicDist)
	sample := rng.Float64() * (docTopicSum + intr.smoothingOnlySum[word])

	if sample < docTopicSum {
		for _, p := range docTopicBucket {
			if sample -= p.Prob; sample <= 0 {
				return p.Topic
			}
		}
		return docTopicBucket[len(docTopicBucket)-1].Topic
	}

	sample -= docTopicSum
	last := len(wordTopicDist) - 1
	for i := 0; i < last; i++ {
		if sample -= wordTopicDist[i] * intr.model.TopicPrior[i]; sample <= 0 {
			return int32(i)
		}
	}
	return int32(last)
}

func (intr *Interpreter) calculateDocumentTopicBucket(doc *Document,
	wordTopicDist []float64) (SparseDist, float64) {

	bucket := make(SparseDist, 0, doc.TopicHist.Len())
	var sum float64
	doc.TopicHist.ForEach(func(topic int, count int64) error {
		p := float64(count) * wordTopicDist[topic]
		bucket = append(bucket, Prob{int32(topic), p})
		sum += p
		return nil
	})
	return bucket, sum
}

// Prob is the probability of one topic.
type Prob struct {
	Topic int32
	Prob  float64
}

// SparseDist is a topic distribution listing only some topics, in
// descending order of probability.
type SparseDist []Prob

func (a SparseDist) Len() int      { return len(a) }
func (a SparseDist) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a SparseDist) Less(i, j int) bool {
	if a[i].Prob != a[j].Prob {
		return a[i].Prob > a[j].Prob
	}
	return a[i].Topic < a[j].Topic
}

// Above drops entries with probability below min.
func (a SparseDist) Above(min float64) SparseDist {
	r := make(SparseDist, 0, len(a))
	for _, p := range a {
		if p.Prob >= min {
			r = append(r, p)
		}
	}
	return r
}

func (a SparseDist) String() string {
	parts := make([]string, len(a))
	for i, p := range a {
		parts[i] = fmt.Sprintf("(%d, %.4f)", p.Topic, p.Prob)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Inference infers the topic distribution of bow and drops topics
// below p.MinProbability.
func (m *Model) Inference(bow BoW, p InferParams) (SparseDist, error) {
	dist, e := NewInterpreter(m, p.CacheMB).Interpret(bow, p.Burnin, p.Iterations)
	if e != nil {
		return nil, e
	}
	return dist.Above(p.MinProbability), nil
}

// Package variational trains LDA topic models by stochastic variational
// inference through github.com/james-bowman/nlp.  It is the alternative
// to the collapsed Gibbs sampler of package gibbs and serves the same
// bag-of-words, topic and inference types.
//
// The library fits a model in one go, so every Update refits on all
// documents seen so far.  Topics of unseen documents are inferred by
// folding them into the fitted topic-word distributions, which is
// deterministic and needs no library state, so saved models answer
// queries exactly like the model that was trained.
package variational

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fz-29/ner-crf/core/gibbs"
	"github.com/golang/glog"
	"github.com/james-bowman/nlp"
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// DefaultIterations is the number of training iterations of a fit when
// Model.Iterations is not positive.
const DefaultIterations = 100

// Model is a variational LDA model.  All exported fields are persisted.
type Model struct {
	Id2Word    []string
	Params     gibbs.Params
	Iterations int
	Updates    int

	// Corpus holds every document the model was fit on.
	Corpus []gibbs.BoW

	// TopicWord[k][w] is P(w|k); TopicCount[k] is the expected number
	// of corpus words assigned to topic k.
	TopicWord  [][]float64
	TopicCount []float64
}

// New creates an untrained model over id2word, whose ids must cover
// [0, len(id2word)).
func New(id2word map[int32]string, p gibbs.Params, iterations int) (*Model, error) {
	if p.NumTopics < 1 {
		return nil, fmt.Errorf("number of topics must be positive, got %d", p.NumTopics)
	}
	if len(id2word) == 0 {
		return nil, fmt.Errorf("cannot create a model over an empty vocabulary")
	}
	if p.WordPrior <= 0 {
		return nil, fmt.Errorf("word prior must be positive, got %f", p.WordPrior)
	}
	if p.TopicPrior <= 0 {
		p.TopicPrior = 1.0 / float64(p.NumTopics)
	}
	if p.Workers < 1 {
		p.Workers = 1
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	words := make([]string, len(id2word))
	for id, w := range id2word {
		if id < 0 || int(id) >= len(words) {
			return nil, fmt.Errorf("word id %d of %q outside [0, %d), compactify the vocabulary first",
				id, w, len(words))
		}
		words[id] = w
	}
	return &Model{Id2Word: words, Params: p, Iterations: iterations}, nil
}

func (m *Model) NumTopics() int {
	return m.Params.NumTopics
}

func (m *Model) VocabSize() int {
	return len(m.Id2Word)
}

// Trained reports whether the model has been fit at least once.
func (m *Model) Trained() bool {
	return len(m.TopicWord) == m.NumTopics()
}

// Update adds the non-empty documents of batch to the corpus and refits
// the model on the whole corpus.  The returned perplexity is that of
// batch under the refitted model.
func (m *Model) Update(ctx context.Context, batch []gibbs.BoW) (gibbs.UpdateStats, error) {
	start := time.Now()
	stats := gibbs.UpdateStats{}
	for i, bow := range batch {
		for _, t := range bow {
			if t.Id < 0 || int(t.Id) >= m.VocabSize() {
				return stats, fmt.Errorf("document %d: word id %d outside vocabulary of size %d",
					i, t.Id, m.VocabSize())
			}
		}
	}
	if e := ctx.Err(); e != nil {
		return stats, e
	}

	first := len(m.Corpus)
	for _, bow := range batch {
		if n := bow.NumWords(); n > 0 {
			m.Corpus = append(m.Corpus, bow)
			stats.Documents++
			stats.Words += n
		}
	}
	m.Updates++
	if stats.Documents == 0 {
		return stats, nil
	}

	theta, e := m.fit()
	if e != nil {
		return stats, e
	}
	stats.Perplexity = m.perplexity(m.Corpus[first:], theta[first:])
	stats.Duration = time.Since(start)
	glog.V(1).Infof("Update %d refit %d documents", m.Updates, len(m.Corpus))
	return stats, nil
}

// termDocument lays the corpus out as the words x documents matrix the
// library trains on.
func (m *Model) termDocument() mat.Matrix {
	dok := sparse.NewDOK(m.VocabSize(), len(m.Corpus))
	for d, bow := range m.Corpus {
		for _, t := range bow {
			dok.Set(int(t.Id), d, float64(t.Count))
		}
	}
	return dok.ToCSR()
}

// fit trains a fresh library model on the corpus, stores its topics and
// returns the topic distribution of every corpus document.
func (m *Model) fit() ([][]float64, error) {
	lda := nlp.NewLatentDirichletAllocation(m.NumTopics())
	lda.Iterations = m.Iterations
	lda.Processes = m.Params.Workers
	lda.Alpha = m.Params.TopicPrior
	lda.Eta = m.Params.WordPrior
	if b := m.Params.ChunkSize; b > 0 {
		if b > len(m.Corpus) {
			b = len(m.Corpus)
		}
		lda.BatchSize = b
	}

	docTopics, e := lda.FitTransform(m.termDocument())
	if e != nil {
		return nil, fmt.Errorf("fitting %d documents: %w", len(m.Corpus), e)
	}

	k := m.NumTopics()
	components := lda.Components()
	m.TopicWord = make([][]float64, k)
	for t := range m.TopicWord {
		row := make([]float64, m.VocabSize())
		for w := range row {
			row[w] = components.At(t, w)
		}
		m.TopicWord[t] = normalize(row)
	}

	theta := make([][]float64, len(m.Corpus))
	m.TopicCount = make([]float64, k)
	for d, bow := range m.Corpus {
		dist := make([]float64, k)
		for t := range dist {
			dist[t] = docTopics.At(t, d)
		}
		theta[d] = normalize(dist)
		n := float64(bow.NumWords())
		for t, p := range theta[d] {
			m.TopicCount[t] += p * n
		}
	}
	return theta, nil
}

// normalize scales v to sum to one, or makes it uniform if it sums to
// zero or less.
func normalize(v []float64) []float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	for i := range v {
		if sum > 0 {
			v[i] /= sum
		} else {
			v[i] = 1.0 / float64(len(v))
		}
	}
	return v
}

func (m *Model) wordProb(theta []float64, word int32) float64 {
	p := 0.0
	for k, q := range theta {
		p += q * m.TopicWord[k][word]
	}
	return p
}

func (m *Model) perplexity(docs []gibbs.BoW, theta [][]float64) float64 {
	logl, n := 0.0, 0
	for d, bow := range docs {
		for _, t := range bow {
			logl += float64(t.Count) * math.Log(m.wordProb(theta[d], t.Id))
			n += int(t.Count)
		}
	}
	if n == 0 {
		return math.Inf(1)
	}
	return math.Exp(-logl / float64(n))
}

// ShowTopics returns the numWords most probable words of the first
// numTopics topics, in topic order.  An untrained model has no topics.
func (m *Model) ShowTopics(numTopics, numWords int) []gibbs.Topic {
	if !m.Trained() {
		return nil
	}
	if numTopics <= 0 || numTopics > m.NumTopics() {
		numTopics = m.NumTopics()
	}

	topics := make([]gibbs.Topic, numTopics)
	for k := range topics {
		words := make([]gibbs.WordProb, len(m.TopicWord[k]))
		for w, p := range m.TopicWord[k] {
			words[w] = gibbs.WordProb{Id: int32(w), Prob: p}
		}
		sort.Slice(words, func(i, j int) bool {
			if words[i].Prob != words[j].Prob {
				return words[i].Prob > words[j].Prob
			}
			return words[i].Id < words[j].Id
		})
		if numWords >= 0 && len(words) > numWords {
			words = words[:numWords]
		}
		for i := range words {
			words[i].Word = m.Id2Word[words[i].Id]
			words[i].Count = int64(math.Round(words[i].Prob * m.TopicCount[k]))
		}
		topics[k] = gibbs.Topic{
			Id:    k,
			Count: int64(math.Round(m.TopicCount[k])),
			Words: words,
		}
	}
	return topics
}

// Inference folds bow into the fitted topics with p.Iterations
// expectation-maximization steps under the symmetric topic prior, and
// drops topics below p.MinProbability.  An empty bow yields the prior.
func (m *Model) Inference(bow gibbs.BoW, p gibbs.InferParams) (gibbs.SparseDist, error) {
	if p.Iterations <= p.Burnin || p.Burnin < 0 {
		return nil, fmt.Errorf("%w: iterations=%d burnin=%d", gibbs.ErrBurnin, p.Iterations, p.Burnin)
	}
	if !m.Trained() {
		return nil, fmt.Errorf("model has not been trained")
	}
	for _, t := range bow {
		if t.Id < 0 || int(t.Id) >= m.VocabSize() {
			return nil, fmt.Errorf("word id %d outside vocabulary of size %d", t.Id, m.VocabSize())
		}
	}

	k := m.NumTopics()
	theta := make([]float64, k)
	for i := range theta {
		theta[i] = 1.0 / float64(k)
	}
	for it := 0; it < p.Iterations && len(bow) > 0; it++ {
		next := make([]float64, k)
		for _, t := range bow {
			pw := m.wordProb(theta, t.Id)
			if pw <= 0 {
				continue
			}
			for i := range next {
				next[i] += float64(t.Count) * theta[i] * m.TopicWord[i][t.Id] / pw
			}
		}
		for i := range next {
			next[i] += m.Params.TopicPrior
		}
		theta = normalize(next)
	}

	dist := make(gibbs.SparseDist, k)
	for i, q := range theta {
		dist[i] = gibbs.Prob{Topic: int32(i), Prob: q}
	}
	sort.Sort(dist)
	return dist.Above(p.MinProbability), nil
}

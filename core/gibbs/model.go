package gibbs

import (
	"fmt"

	"github.com/fz-29/ner-crf/core/hist"
)

// Params carries the model shape and the training settings that are
// persisted together with a model.
type Params struct {
	NumTopics  int
	TopicPrior float64 // symmetric initial value; <= 0 means 1/NumTopics
	WordPrior  float64

	Workers   int
	ChunkSize int // <= 0 samples a whole batch as one chunk
	Passes    int

	OptimizePriors bool
	OptimIter      int
	Shape          float64
	Scale          float64

	CacheMB int
	Seed    int64
}

type Model struct {
	GlobalTopicHist hist.Hist
	WordTopicHists  []hist.Hist
	TopicPrior      []float64
	TopicPriorSum   float64
	WordPrior       float64
	WordPriorSum    float64

	Id2Word []string
	Params  Params
	Updates int // number of Update calls applied
}

// NewModel creates an empty model.  It panics on invalid dimensions or
// priors; use NewLDA for values coming from users.
func NewModel(numTopics, vocabSize int, topicPrior, wordPrior float64) *Model {
	if numTopics < 1 {
		panic(fmt.Sprintf("numTopics = %d, less than 1", numTopics))
	}
	if vocabSize < 1 {
		panic(fmt.Sprintf("vocabSize = %d, less than 1", vocabSize))
	}
	if topicPrior <= 0.0 {
		panic(fmt.Sprintf("topicPrior = %f, not positive", topicPrior))
	}
	if wordPrior <= 0.0 {
		panic(fmt.Sprintf("wordPrior = %f, not positive", wordPrior))
	}
	m := &Model{
		GlobalTopicHist: hist.NewDense(numTopics),
		WordTopicHists:  make([]hist.Hist, vocabSize),
		TopicPrior:      make([]float64, numTopics),
		TopicPriorSum:   topicPrior * float64(numTopics),
		WordPrior:       wordPrior,
		WordPriorSum:    wordPrior * float64(vocabSize),
	}
	for i := range m.TopicPrior {
		m.TopicPrior[i] = topicPrior
	}
	return m
}

// NewLDA creates an untrained model over the vocabulary described by
// id2word, whose ids must cover [0, len(id2word)).
func NewLDA(id2word map[int32]string, p Params) (*Model, error) {
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
	if p.Passes < 1 {
		p.Passes = 1
	}

	words := make([]string, len(id2word))
	for id, w := range id2word {
		if id < 0 || int(id) >= len(words) {
			return nil, fmt.Errorf("word id %d of %q outside [0, %d), compactify the vocabulary first",
				id, w, len(words))
		}
		words[id] = w
	}

	m := NewModel(p.NumTopics, len(words), p.TopicPrior, p.WordPrior)
	m.Id2Word = words
	m.Params = p
	return m, nil
}

func (m *Model) NumTopics() int {
	return m.GlobalTopicHist.Len()
}

func (m *Model) VocabSize() int {
	return len(m.WordTopicHists)
}

// WordTopicHist returns the histogram of token, creating an empty one
// on first access.
func (m *Model) WordTopicHist(token int32) hist.Hist {
	if h := m.WordTopicHists[token]; h != nil {
		return h
	}
	h := hist.NewSparse()
	m.WordTopicHists[token] = h
	return h
}

// Word returns the surface form of token, or its decimal id if the
// model carries no id-to-word table.
func (m *Model) Word(token int32) string {
	if int(token) < len(m.Id2Word) {
		return m.Id2Word[token]
	}
	return fmt.Sprint(token)
}

// newDiff returns an empty model with the shape and priors of m, used
// to record the updates of one worker.
func (m *Model) newDiff() *Model {
	d := &Model{
		GlobalTopicHist: hist.NewDense(m.NumTopics()),
		WordTopicHists:  make([]hist.Hist, m.VocabSize()),
		TopicPrior:      m.TopicPrior,
		TopicPriorSum:   m.TopicPriorSum,
		WordPrior:       m.WordPrior,
		WordPriorSum:    m.WordPriorSum,
	}
	return d
}

// Accumulate applies the (possibly negative) counts recorded in diff.
func (m *Model) Accumulate(diff *Model) {
	for w, h := range diff.WordTopicHists {
		if h == nil || h.Len() == 0 {
			continue
		}
		if d := m.WordTopicHists[w]; d == nil {
			m.WordTopicHists[w] = h.Clone()
		} else {
			h.ForEach(func(t int, c int64) error {
				if c > 0 {
					d.Inc(t, int(c))
				} else if c < 0 {
					d.Dec(t, int(-c))
				}
				return nil
			})
		}
	}

	diff.GlobalTopicHist.ForEach(func(t int, c int64) error {
		if c > 0 {
			m.GlobalTopicHist.Inc(t, int(c))
		} else if c < 0 {
			m.GlobalTopicHist.Dec(t, int(-c))
		}
		return nil
	})
}

// dropEmptyHists releases word histograms whose counts all went back
// to zero.
func (m *Model) dropEmptyHists() {
	for w, h := range m.WordTopicHists {
		if h != nil && h.Len() == 0 {
			m.WordTopicHists[w] = nil
		}
	}
}

// Clone makes a deep copy of the counts.  Id2Word is shared since it
// never changes after NewLDA.
func (m *Model) Clone() *Model {
	n := &Model{
		GlobalTopicHist: m.GlobalTopicHist.Clone(),
		WordTopicHists:  make([]hist.Hist, len(m.WordTopicHists)),
		TopicPrior:      make([]float64, len(m.TopicPrior)),
		TopicPriorSum:   m.TopicPriorSum,
		WordPrior:       m.WordPrior,
		WordPriorSum:    m.WordPriorSum,
		Id2Word:         m.Id2Word,
		Params:          m.Params,
		Updates:         m.Updates,
	}
	copy(n.TopicPrior, m.TopicPrior)
	for w, h := range m.WordTopicHists {
		if h != nil {
			n.WordTopicHists[w] = h.Clone()
		}
	}
	return n
}

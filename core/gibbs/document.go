package gibbs

import (
	"math/rand"

	"github.com/fz-29/ner-crf/core/hist"
)

// Document holds one training window: the word ids expanded from its
// bag-of-words, the current topic of each word, and the resulting
// document-topic histogram.
type Document struct {
	TopicHist *hist.OrderedSparse
	Words     []int32
	Topics    []int32
}

func (d *Document) Len() int {
	return len(d.Words)
}

// InitializeDocument expands bow and assigns every word a topic drawn
// uniformly from [0, numTopics).
func InitializeDocument(bow BoW, numTopics int, rng *rand.Rand) *Document {
	n := bow.NumWords()
	d := &Document{
		Words:     make([]int32, 0, n),
		Topics:    make([]int32, 0, n),
		TopicHist: hist.NewOrderedSparseAndReserve(n),
	}
	for _, term := range bow {
		for c := int32(0); c < term.Count; c++ {
			topic := rng.Intn(numTopics)
			d.Words = append(d.Words, term.Id)
			d.Topics = append(d.Topics, int32(topic))
			d.TopicHist.Inc(topic, 1)
		}
	}
	return d
}

// ApplyToModel adds the topic assignments of d to m.
func (d *Document) ApplyToModel(m *Model) {
	for i, w := range d.Words {
		m.WordTopicHist(w).Inc(int(d.Topics[i]), 1)
		m.GlobalTopicHist.Inc(int(d.Topics[i]), 1)
	}
}

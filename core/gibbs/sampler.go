package gibbs

import (
	"errors"
	"fmt"
	"math/rand"
)

var errStopIteration = errors.New("stop iteration")

// bucket is one of the three terms the SparseLDA sampling mass is
// split into.  factors[t] is the mass of topic t and size their sum.
type bucket struct {
	size    float64
	factors []float64
}

func newBucket(numTopics int) bucket {
	return bucket{factors: make([]float64, numTopics)}
}

func (b *bucket) reset() {
	b.size = 0
	for t := range b.factors {
		b.factors[t] = 0
	}
}

func (b *bucket) set(t int, f float64) {
	b.size += f - b.factors[t]
	b.factors[t] = f
}

// Sampler implements the SparseLDA sampling algorithm described in
// "Efficient Methods for Topic Model Inference on Streaming Document
// Collections" by Limin Yao, David Mimno and Andrew McCallum (KDD
// 2009).  It supports an asymmetric Dirichlet topic prior.
type Sampler struct {
	model *Model
	diff  *Model

	smoothingOnly bucket // equation (7)
	documentTopic bucket // equation (8)
	topicWord     bucket // equation (9)
	coefficients  []float64
}

func NewSampler(m *Model) *Sampler {
	k := m.NumTopics()
	s := &Sampler{
		model:         m,
		smoothingOnly: newBucket(k),
		documentTopic: newBucket(k),
		topicWord:     newBucket(k),
		coefficients:  make([]float64, k),
	}
	s.AfterOptimization()
	return s
}

// SetDiff makes subsequent calls to Sample record their updates into
// d as well, which must have the shape of the sampled model.  Pass
// nil to stop recording.
func (s *Sampler) SetDiff(d *Model) {
	s.diff = d
}

// AfterOptimization rebuilds the cached terms that depend on the topic
// prior.  Call it whenever TopicPrior of the sampled model changed.
func (s *Sampler) AfterOptimization() {
	s.buildSmoothingOnlyBucket()
	s.cacheCoefficients()
}

func (s *Sampler) denominator(t int) float64 {
	return s.model.WordPriorSum + float64(s.model.GlobalTopicHist.At(t))
}

func (s *Sampler) buildSmoothingOnlyBucket() {
	s.smoothingOnly.reset()
	for t := 0; t < s.model.NumTopics(); t++ {
		s.smoothingOnly.set(t, s.model.TopicPrior[t]*s.model.WordPrior/s.denominator(t))
	}
}

func (s *Sampler) buildDocumentTopicBucket(doc *Document) {
	s.documentTopic.reset()
	for i := 0; i < doc.TopicHist.Len(); i++ {
		t := int(doc.TopicHist.Topics[i])
		s.documentTopic.set(t, s.model.WordPrior*float64(doc.TopicHist.Counts[i])/s.denominator(t))
	}
}

// buildTopicWordBucket requires coefficients to be up to date.
func (s *Sampler) buildTopicWordBucket(token int32) {
	s.topicWord.reset()
	s.model.WordTopicHist(token).ForEach(func(t int, c int64) error {
		s.topicWord.set(t, s.coefficients[t]*float64(c))
		return nil
	})
}

// cacheCoefficients fills the document-independent part of equation
// (10).  Sample completes it for topics present in the document and
// restores it afterwards.
func (s *Sampler) cacheCoefficients() {
	for t := 0; t < s.model.NumTopics(); t++ {
		s.coefficients[t] = s.model.TopicPrior[t] / s.denominator(t)
	}
}

func (s *Sampler) updateCoefficients(doc *Document) {
	for i := 0; i < doc.TopicHist.Len(); i++ {
		t := int(doc.TopicHist.Topics[i])
		s.coefficients[t] = (s.model.TopicPrior[t] + float64(doc.TopicHist.Counts[i])) / s.denominator(t)
	}
}

func (s *Sampler) resetCoefficients(doc *Document) {
	for i := 0; i < doc.TopicHist.Len(); i++ {
		t := int(doc.TopicHist.Topics[i])
		s.coefficients[t] = s.model.TopicPrior[t] / s.denominator(t)
	}
}

// move removes (delta = -1) or adds (delta = +1) one occurrence of
// token assigned to topic, and refreshes the cached terms of topic.
func (s *Sampler) move(doc *Document, token int32, topic int32, delta int) {
	t := int(topic)
	if delta < 0 {
		s.model.WordTopicHist(token).Dec(t, 1)
		s.model.GlobalTopicHist.Dec(t, 1)
		doc.TopicHist.Dec(t, 1)
		if s.diff != nil {
			s.diff.WordTopicHist(token).Dec(t, 1)
			s.diff.GlobalTopicHist.Dec(t, 1)
		}
	} else {
		s.model.WordTopicHist(token).Inc(t, 1)
		s.model.GlobalTopicHist.Inc(t, 1)
		doc.TopicHist.Inc(t, 1)
		if s.diff != nil {
			s.diff.WordTopicHist(token).Inc(t, 1)
			s.diff.GlobalTopicHist.Inc(t, 1)
		}
	}

	docCount := float64(doc.TopicHist.At(t))
	denom := s.denominator(t)
	s.smoothingOnly.set(t, s.model.TopicPrior[t]*s.model.WordPrior/denom)
	s.documentTopic.set(t, docCount*s.model.WordPrior/denom)
	s.coefficients[t] = (s.model.TopicPrior[t] + docCount) / denom
}

func (s *Sampler) sampleNewTopic(doc *Document, token int32, rng *rand.Rand) int32 {
	norm := s.smoothingOnly.size + s.documentTopic.size + s.topicWord.size
	draw := rng.Float64() * norm
	newTopic := int32(-1)

	switch {
	case draw < s.topicWord.size:
		s.model.WordTopicHist(token).ForEach(func(topic int, _ int64) error {
			newTopic = int32(topic)
			if draw -= s.topicWord.factors[topic]; draw <= 0 {
				return errStopIteration
			}
			return nil
		})
	case draw < s.topicWord.size+s.documentTopic.size:
		draw -= s.topicWord.size
		for i := 0; i < doc.TopicHist.Len(); i++ {
			newTopic = doc.TopicHist.Topics[i]
			if draw -= s.documentTopic.factors[newTopic]; draw <= 0 {
				break
			}
		}
	default:
		draw -= s.topicWord.size + s.documentTopic.size
		last := int32(len(s.smoothingOnly.factors) - 1)
		for newTopic = 0; newTopic < last; newTopic++ {
			if draw -= s.smoothingOnly.factors[newTopic]; draw <= 0 {
				break
			}
		}
	}

	if newTopic < 0 || int(newTopic) >= s.model.NumTopics() {
		panic(fmt.Sprintf("sampled topic %d out of range [0, %d)", newTopic, s.model.NumTopics()))
	}
	return newTopic
}

// Sample draws a new topic for every word of doc and updates the
// model, and the diff if one is set, accordingly.
func (s *Sampler) Sample(doc *Document, rng *rand.Rand) {
	s.buildDocumentTopicBucket(doc)
	s.updateCoefficients(doc)
	for i, token := range doc.Words {
		s.move(doc, token, doc.Topics[i], -1)
		s.buildTopicWordBucket(token)
		doc.Topics[i] = s.sampleNewTopic(doc, token, rng)
		s.move(doc, token, doc.Topics[i], +1)
	}
	s.resetCoefficients(doc)
}

package gibbs

import (
	"math"

	"github.com/fz-29/ner-crf/core/hist"
)

// minTopicPrior bounds re-estimated priors away from zero.  A topic
// missing from every document would otherwise get prior shape/denominator,
// which is 0 for shape 0, and a zero prior makes the digamma recurrence
// divide by zero on the next update.
const minTopicPrior = 1e-10

// Optimizer collects the statistics needed to re-estimate the
// asymmetric Dirichlet topic prior from the current topic assignments.
type Optimizer struct {
	// docLenHist[n] is the number of documents of length n.
	docLenHist hist.Sparse
	// topicDocHists[t][n] is the number of documents in which topic t
	// occurs n times.
	topicDocHists []hist.Sparse
}

func NewOptimizer(numTopics int) *Optimizer {
	o := &Optimizer{
		docLenHist:    hist.NewSparse(),
		topicDocHists: make([]hist.Sparse, numTopics),
	}
	for i := range o.topicDocHists {
		o.topicDocHists[i] = hist.NewSparse()
	}
	return o
}

func (o *Optimizer) CollectDocumentStatistics(d *Document) {
	if d.Len() == 0 {
		return
	}
	for i := 0; i < d.TopicHist.Len(); i++ {
		o.topicDocHists[d.TopicHist.Topics[i]][d.TopicHist.Counts[i]]++
	}
	o.docLenHist[int32(d.Len())]++
}

// approximateHist converts a sparse histogram into a dense one whose
// length is one plus the largest key.
func approximateHist(s hist.Sparse) hist.Dense {
	if len(s) == 0 {
		return nil
	}
	var maxIdx int32
	for k := range s {
		if k > maxIdx {
			maxIdx = k
		}
	}
	d := hist.NewDense(int(maxIdx) + 1)
	s.ForEach(func(k int, v int64) error {
		d.Inc(k, int(v))
		return nil
	})
	return d
}

// OptimizeTopicPriors updates m.TopicPrior with Minka's fixed-point
// iteration and the digamma recurrence relation, as described in
// Hanna M. Wallach, "Structured Topic Models for Language", Ph.D.
// thesis, University of Cambridge, 2008.  shape and scale
// parameterize a Gamma hyper-prior.  Without collected statistics it
// leaves m unchanged.
func (o *Optimizer) OptimizeTopicPriors(m *Model, shape, scale float64, iterations int) {
	lengths := approximateHist(o.docLenHist)
	if len(lengths) == 0 {
		return
	}
	topicDocs := make([]hist.Dense, len(o.topicDocHists))
	for k, h := range o.topicDocHists {
		topicDocs[k] = approximateHist(h)
	}

	for it := 0; it < iterations; it++ {
		digammaDiff, denominator := 0.0, 0.0
		for i := 1; i < len(lengths); i++ {
			digammaDiff += 1.0 / (float64(i) - 1.0 + m.TopicPriorSum)
			denominator += float64(lengths[i]) * digammaDiff
		}
		denominator -= 1.0 / scale
		if denominator <= 0 {
			return
		}

		sum := 0.0
		for k, d := range topicDocs {
			digammaDiff, numerator := 0.0, 0.0
			for i := 1; i < len(d); i++ {
				digammaDiff += 1.0 / (float64(i) - 1.0 + m.TopicPrior[k])
				numerator += float64(d[i]) * digammaDiff
			}
			m.TopicPrior[k] = math.Max((m.TopicPrior[k]*numerator+shape)/denominator, minTopicPrior)
			sum += m.TopicPrior[k]
		}
		m.TopicPriorSum = sum
	}
}

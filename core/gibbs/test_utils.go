package gibbs

import (
	"math/rand"
)

const (
	testingV = 4

	testingAlpha = 0.1
	testingBeta  = 0.01
	testingK     = 2

	testingShape           = 0.0
	testingScale           = 1e7
	testingOptimIter       = 5
	testingTotalIterations = 110
)

var testingCorpus = [][]string{
	{"apple", "orange"},
	{"orange", "apple"},
	{"cat", "tiger"},
	{"tiger", "cat"},
}

// CreateTestingVocabulary creates a vocabulary with testingV tokens:
// apple=0, orange=1, cat=2, tiger=3.
func CreateTestingVocabulary() *Vocabulary {
	v := NewVocabulary()
	v.AddDocuments(testingCorpus)
	return v
}

func CreateTestingDocument(v *Vocabulary) *Document {
	rng := rand.New(rand.NewSource(1))
	return InitializeDocument(v.Doc2Bow([]string{"apple", "unknown", "orange"}), testingK, rng)
}

// CreateTestingModel creates a model with:
//
//	symmetric topic prior: 0.1
//	symmetric word prior:  0.01
//	word states:   topic 0    topic 1
//	      apple:   nil        1
//	     orange:   nil        1
//	        cat:   <nil>
//	      tiger:   <nil>
//	global states: topic 0    topic 1
//	               0          2
func CreateTestingModel() *Model {
	d := CreateTestingDocument(CreateTestingVocabulary())
	m := NewModel(testingK, testingV, testingAlpha, testingBeta)
	d.ApplyToModel(m)
	return m
}

func createTestingCorpus(v *Vocabulary, rng *rand.Rand) []*Document {
	corpus := make([]*Document, len(testingCorpus))
	for i, words := range testingCorpus {
		corpus[i] = InitializeDocument(v.Doc2Bow(words), testingK, rng)
	}
	return corpus
}

// CreateTestingOptimizedModel learns a model on the testing corpus
// with topic prior optimization.
func CreateTestingOptimizedModel() (*Model, *Vocabulary) {
	v := CreateTestingVocabulary()
	rng := rand.New(rand.NewSource(-1))
	corpus := createTestingCorpus(v, rng)

	m := NewModel(testingK, testingV, testingAlpha, testingBeta)
	m.Id2Word = []string{"apple", "orange", "cat", "tiger"}
	for _, d := range corpus {
		d.ApplyToModel(m)
	}

	s := NewSampler(m)
	o := NewOptimizer(testingK)
	for iter := 0; iter < testingTotalIterations; iter++ {
		for _, d := range corpus {
			s.Sample(d, rng)
			o.CollectDocumentStatistics(d)
		}
		o.OptimizeTopicPriors(m, testingShape, testingScale, testingOptimIter)
		s.AfterOptimization()
	}
	return m, v
}

package gibbs

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluatorLogLikelihood(t *testing.T) {
	d := CreateTestingDocument(CreateTestingVocabulary())
	ev := NewEvaluator(CreateTestingModel(), 0, nil)
	truth := "-1.4515175322974125 2"
	if s := fmt.Sprint(ev.LogLikelihood(d)); s != truth {
		t.Errorf("Expecting %s, got %s", truth, s)
	}
}

func TestEvaluatorLogLikelihoodAccel(t *testing.T) {
	d := CreateTestingDocument(CreateTestingVocabulary())
	m := CreateTestingModel()
	plain, _ := NewEvaluator(m, 0, nil).LogLikelihood(d)
	accel, n := NewEvaluator(m, 0, NewSampler(m)).LogLikelihood(d)
	assert.Equal(t, 2, n)
	assert.InDelta(t, plain, accel, 1e-12)
}

func TestEvaluatorPerplexity(t *testing.T) {
	d := CreateTestingDocument(CreateTestingVocabulary())
	ev := NewEvaluator(CreateTestingModel(), 0, nil)
	assert.InDelta(t, math.Exp(1.4515175322974125/2), ev.Perplexity([]*Document{d}), 1e-12)
	assert.True(t, math.IsInf(ev.Perplexity(nil), 1))
}

// Package pipeline runs the four operations of the lda tool:
// building the dictionary, training the model, listing topics and
// inferring the topics of a sentence.  It depends on the topic model
// only through the Vocabulary, TopicModel and Backend interfaces, served
// by GibbsBackend or VariationalBackend.
package pipeline

import (
	"context"
	"fmt"

	"github.com/fz-29/ner-crf/core/config"
	"github.com/fz-29/ner-crf/core/gibbs"
	"github.com/fz-29/ner-crf/core/utils"
	"github.com/fz-29/ner-crf/core/variational"
)

// Vocabulary maps tokens to ids and keeps document frequencies.
type Vocabulary interface {
	AddDocuments(docs [][]string)
	FilterBelow(minDocFreq int64) int
	Compactify()
	Doc2Bow(doc []string) gibbs.BoW
	Id(token string) int32
	Id2Word() map[int32]string
	Len() int
}

// TopicModel is a trainable LDA model.
type TopicModel interface {
	Update(ctx context.Context, batch []gibbs.BoW) (gibbs.UpdateStats, error)
	ShowTopics(numTopics, numWords int) []gibbs.Topic
	Inference(bow gibbs.BoW, p gibbs.InferParams) (gibbs.SparseDist, error)
}

// Backend creates and persists vocabularies and models.
type Backend interface {
	NewVocabulary(pruneAt int) Vocabulary
	LoadVocabulary(path string) (Vocabulary, error)
	SaveVocabulary(v Vocabulary, path string) error

	NewModel(id2word map[int32]string, p gibbs.Params) (TopicModel, error)
	LoadModel(path string) (TopicModel, error)
	SaveModel(m TopicModel, path string) error
}

// GibbsBackend serves the collapsed Gibbs sampling implementation of
// package gibbs, persisted by package utils.
type GibbsBackend struct{}

func (GibbsBackend) NewVocabulary(pruneAt int) Vocabulary {
	v := gibbs.NewVocabulary()
	v.PruneAt = pruneAt
	return v
}

func (GibbsBackend) LoadVocabulary(path string) (Vocabulary, error) {
	v, e := utils.LoadVocab(path)
	if e != nil {
		return nil, e
	}
	return v, nil
}

func (GibbsBackend) SaveVocabulary(v Vocabulary, path string) error {
	gv, ok := v.(*gibbs.Vocabulary)
	if !ok {
		return fmt.Errorf("cannot save vocabulary of type %T", v)
	}
	return utils.SaveVocab(gv, path)
}

func (GibbsBackend) NewModel(id2word map[int32]string, p gibbs.Params) (TopicModel, error) {
	m, e := gibbs.NewLDA(id2word, p)
	if e != nil {
		return nil, e
	}
	return m, nil
}

func (GibbsBackend) LoadModel(path string) (TopicModel, error) {
	m, e := utils.LoadModel(path)
	if e != nil {
		return nil, e
	}
	return m, nil
}

func (GibbsBackend) SaveModel(m TopicModel, path string) error {
	gm, ok := m.(*gibbs.Model)
	if !ok {
		return fmt.Errorf("cannot save model of type %T", m)
	}
	return utils.SaveModel(gm, path)
}

// VariationalBackend trains with package variational and shares the
// vocabulary handling of GibbsBackend.
type VariationalBackend struct {
	GibbsBackend
	Iterations int
}

func (b VariationalBackend) NewModel(id2word map[int32]string, p gibbs.Params) (TopicModel, error) {
	m, e := variational.New(id2word, p, b.Iterations)
	if e != nil {
		return nil, e
	}
	return m, nil
}

func (VariationalBackend) LoadModel(path string) (TopicModel, error) {
	m, e := utils.LoadVariationalModel(path)
	if e != nil {
		return nil, e
	}
	return m, nil
}

func (VariationalBackend) SaveModel(m TopicModel, path string) error {
	vm, ok := m.(*variational.Model)
	if !ok {
		return fmt.Errorf("cannot save model of type %T", m)
	}
	return utils.SaveVariationalModel(vm, path)
}

// NewBackend returns the backend named by c.Backend.
func NewBackend(c *config.Config) Backend {
	if c.Backend == config.BackendVariational {
		return VariationalBackend{Iterations: c.LDA.Iterations}
	}
	return GibbsBackend{}
}

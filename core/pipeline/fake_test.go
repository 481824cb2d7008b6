package pipeline

import (
	"context"
	"fmt"

	"github.com/fz-29/ner-crf/core/corpus"
	"github.com/fz-29/ner-crf/core/gibbs"
)

// fakeBackend keeps artifacts in memory and records what the runner
// asked for.
type fakeBackend struct {
	vocabs map[string]*fakeVocab
	models map[string]*fakeModel
	loads  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		vocabs: make(map[string]*fakeVocab),
		models: make(map[string]*fakeModel),
	}
}

func (b *fakeBackend) NewVocabulary(pruneAt int) Vocabulary {
	return &fakeVocab{Vocabulary: gibbs.NewVocabulary()}
}

func (b *fakeBackend) LoadVocabulary(path string) (Vocabulary, error) {
	b.loads++
	if v, ok := b.vocabs[path]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no vocabulary at %s", path)
}

func (b *fakeBackend) SaveVocabulary(v Vocabulary, path string) error {
	b.vocabs[path] = v.(*fakeVocab)
	return nil
}

func (b *fakeBackend) NewModel(id2word map[int32]string, p gibbs.Params) (TopicModel, error) {
	return &fakeModel{params: p, vocabSize: len(id2word)}, nil
}

func (b *fakeBackend) LoadModel(path string) (TopicModel, error) {
	b.loads++
	if m, ok := b.models[path]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("no model at %s", path)
}

func (b *fakeBackend) SaveModel(m TopicModel, path string) error {
	b.models[path] = m.(*fakeModel)
	return nil
}

type fakeVocab struct {
	*gibbs.Vocabulary
	docs    int
	updates []int
}

func (v *fakeVocab) AddDocuments(docs [][]string) {
	v.docs += len(docs)
	v.updates = append(v.updates, len(docs))
	v.Vocabulary.AddDocuments(docs)
}

type fakeModel struct {
	params    gibbs.Params
	vocabSize int
	updates   []int
	windows   int
	inferred  []gibbs.BoW

	// cancel, if set, is called during the update with this index.
	cancel   func()
	cancelAt int
}

func (m *fakeModel) Update(ctx context.Context, batch []gibbs.BoW) (gibbs.UpdateStats, error) {
	if m.cancel != nil && len(m.updates) == m.cancelAt {
		m.cancel()
	}
	m.updates = append(m.updates, len(batch))
	m.windows += len(batch)
	return gibbs.UpdateStats{Documents: len(batch)}, nil
}

func (m *fakeModel) ShowTopics(numTopics, numWords int) []gibbs.Topic {
	topics := make([]gibbs.Topic, numTopics)
	for i := range topics {
		topics[i] = gibbs.Topic{Id: i, Words: []gibbs.WordProb{{Word: fmt.Sprint("w", i), Prob: 0.5}}}
	}
	return topics
}

func (m *fakeModel) Inference(bow gibbs.BoW, p gibbs.InferParams) (gibbs.SparseDist, error) {
	m.inferred = append(m.inferred, bow)
	return gibbs.SparseDist{{Topic: 1, Prob: 1}}, nil
}

// windowsOf cuts every article into windows of size tokens.
func windowsOf(articles ...string) func(corpus.ArticleSource, int, bool) WindowSource {
	as := make(corpus.Articles, len(articles))
	for i, a := range articles {
		as[i] = corpus.ParseArticle(a)
	}
	return func(_ corpus.ArticleSource, size int, onlyLabeled bool) WindowSource {
		return corpus.LoadWindows(as, size, onlyLabeled)
	}
}

func articlesOf(articles ...string) func(string) corpus.ArticleSource {
	as := make(corpus.Articles, len(articles))
	for i, a := range articles {
		as[i] = corpus.ParseArticle(a)
	}
	return func(string) corpus.ArticleSource { return as }
}

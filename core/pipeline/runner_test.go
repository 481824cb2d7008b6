package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fz-29/ner-crf/core/config"
	"github.com/fz-29/ner-crf/core/gibbs"
	"github.com/fz-29/ner-crf/core/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestingRunner(b Backend) (*Runner, *bytes.Buffer) {
	c := config.Default()
	c.WindowSize = 3
	c.Dictionary.UpdateEvery = 4
	c.Dictionary.IgnoreBelow = 1
	c.LDA.NumTopics = 2
	c.LDA.UpdateEvery = 5
	c.LDA.Workers = 2
	c.Topics.NumWords = 3
	var out bytes.Buffer
	r := NewRunner(c, &out)
	r.Backend = b
	return r, &out
}

func numberedArticles(n int) []string {
	as := make([]string, n)
	for i := range as {
		as[i] = fmt.Sprintf("Word%d shared", i)
	}
	return as
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"john", "doe", "", "did"}, Tokenize("John DOE  did"))
	assert.Equal(t, []string{"ärger", "über"}, Tokenize("ÄRGER Über"))
}

func TestTokenizeConcurrently(t *testing.T) {
	inputs := []string{"John DOE  did", "ÄRGER Über", "Straße IST lang"}
	want := make([][]string, len(inputs))
	for i, s := range inputs {
		want[i] = Tokenize(s)
	}

	var wg sync.WaitGroup
	got := make([][][]string, 8)
	for g := range got {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				got[g] = append(got[g], Tokenize(inputs[i%len(inputs)]))
			}
		}()
	}
	wg.Wait()
	for g := range got {
		for i, tokens := range got[g] {
			assert.Equal(t, want[i%len(inputs)], tokens, "goroutine %d call %d", g, i)
		}
	}
}

func TestBuildDictionaryCap(t *testing.T) {
	b := newFakeBackend()
	r, out := createTestingRunner(b)
	r.Config.Dictionary.MaxArticles = 10
	r.Articles = articlesOf(numberedArticles(20)...)

	require.NoError(t, r.BuildDictionary(context.Background()))
	v := b.vocabs[r.Config.DictionaryFilepath]
	require.NotNil(t, v)
	assert.Equal(t, 11, v.docs)
	assert.Equal(t, []int{4, 4, 3}, v.updates)
	assert.Equal(t, 12, v.Len())
	assert.Contains(t, out.String(), "Reached max of 10 articles.")
}

func TestBuildDictionaryWithoutCap(t *testing.T) {
	b := newFakeBackend()
	r, out := createTestingRunner(b)
	r.Config.Dictionary.MaxArticles = 0
	r.Articles = articlesOf(numberedArticles(8)...)

	require.NoError(t, r.BuildDictionary(context.Background()))
	v := b.vocabs[r.Config.DictionaryFilepath]
	assert.Equal(t, []int{4, 4}, v.updates)
	assert.NotContains(t, out.String(), "remaining articles")
}

func TestBuildDictionaryFiltersRareTokens(t *testing.T) {
	b := newFakeBackend()
	r, out := createTestingRunner(b)
	r.Config.Dictionary.IgnoreBelow = 3
	r.Articles = articlesOf("x y z", "x y", "x Y", "q", "X w")

	require.NoError(t, r.BuildDictionary(context.Background()))
	v := b.vocabs[r.Config.DictionaryFilepath]
	assert.Equal(t, map[string]int32{"x": 0, "y": 1}, v.Token2Id)
	for id := int32(0); id < int32(v.Len()); id++ {
		assert.True(t, v.DocFreq(id) >= 3)
	}
	assert.Contains(t, out.String(), "Loaded 5 unique words.\n")
	assert.Contains(t, out.String(), "Filtered to 2 unique words.\n")
}

func TestBuildDictionaryEndToEnd(t *testing.T) {
	dir := t.TempDir()
	r, _ := createTestingRunner(GibbsBackend{})
	r.Config.DictionaryFilepath = filepath.Join(dir, "lda.dict.gz")
	r.Config.Dictionary.MaxArticles = 10
	r.Articles = articlesOf("a b c", "b c d", "c d e")

	require.NoError(t, r.BuildDictionary(context.Background()))
	v, e := utils.LoadVocab(r.Config.DictionaryFilepath)
	require.NoError(t, e)
	assert.Equal(t, map[string]int32{"a": 0, "b": 1, "c": 2, "d": 3, "e": 4}, v.Token2Id)
	assert.Equal(t, int64(3), v.DocFreq(2))
}

func trainTestingModel(t *testing.T, windows, updateEvery, maxWindows int, flush bool) *fakeModel {
	b := newFakeBackend()
	r, _ := createTestingRunner(b)
	r.Config.WindowSize = 1
	r.Config.LDA.UpdateEvery = updateEvery
	r.Config.LDA.MaxWindows = maxWindows
	r.Config.LDA.FlushRemainder = flush
	b.vocabs[r.Config.DictionaryFilepath] = &fakeVocab{Vocabulary: gibbs.NewVocabulary()}

	words := make([]string, windows)
	for i := range words {
		words[i] = "w/PER"
	}
	r.Windows = windowsOf(strings.Join(words, " "))
	require.NoError(t, r.Train(context.Background()))
	return b.models[r.Config.ModelFilepath]
}

func TestTrainBatching(t *testing.T) {
	testCases := []struct {
		windows, every, cap int
		flush               bool
		updates             []int
	}{
		{12, 5, 100, false, []int{5, 5}},
		{12, 5, 100, true, []int{5, 5, 2}},
		{10, 5, 100, true, []int{5, 5}},
		{4, 5, 100, false, nil},
		{30, 5, 9, false, []int{5, 5}},
		{30, 5, 8, false, []int{5}},
		{30, 5, 8, true, []int{5, 4}},
	}
	for _, c := range testCases {
		m := trainTestingModel(t, c.windows, c.every, c.cap, c.flush)
		require.NotNil(t, m)
		assert.Equal(t, c.updates, m.updates, "%+v", c)
	}
}

func TestTrainModelParams(t *testing.T) {
	m := trainTestingModel(t, 3, 5, 100, false)
	assert.Equal(t, 2, m.params.NumTopics)
	assert.Equal(t, 2, m.params.Workers)
	assert.Equal(t, 10000, m.params.ChunkSize)
}

func TestTrainWithoutDictionary(t *testing.T) {
	b := newFakeBackend()
	r, _ := createTestingRunner(b)
	assert.Error(t, r.Train(context.Background()))
	assert.Empty(t, b.models)
}

func TestTrainInterrupted(t *testing.T) {
	b := newFakeBackend()
	r, _ := createTestingRunner(b)
	r.Config.WindowSize = 1
	r.Config.LDA.UpdateEvery = 2
	b.vocabs[r.Config.DictionaryFilepath] = &fakeVocab{Vocabulary: gibbs.NewVocabulary()}
	r.Windows = windowsOf("a/X b/X c/X d/X e/X f/X g/X")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Backend = &cancellingBackend{fakeBackend: b, cancel: cancel}

	e := r.Train(ctx)
	assert.ErrorIs(t, e, context.Canceled)
	m := b.models[r.Config.ModelFilepath]
	require.NotNil(t, m, "model must be saved on interruption")
	assert.Equal(t, []int{2}, m.updates)
}

// cancellingBackend creates models that cancel the run during their
// first update.
type cancellingBackend struct {
	*fakeBackend
	cancel func()
}

func (b *cancellingBackend) NewModel(id2word map[int32]string, p gibbs.Params) (TopicModel, error) {
	return &fakeModel{params: p, cancel: b.cancel}, nil
}

func TestShowTopics(t *testing.T) {
	b := newFakeBackend()
	r, out := createTestingRunner(b)
	b.vocabs[r.Config.DictionaryFilepath] = &fakeVocab{Vocabulary: gibbs.NewVocabulary()}
	b.models[r.Config.ModelFilepath] = &fakeModel{}

	require.NoError(t, r.ShowTopics(context.Background()))
	assert.Equal(t, "List of topics:\n  0: 0.500*\"w0\"\n  1: 0.500*\"w1\"\n", out.String())
}

func TestShowTopicsWithoutModel(t *testing.T) {
	b := newFakeBackend()
	r, _ := createTestingRunner(b)
	b.vocabs[r.Config.DictionaryFilepath] = &fakeVocab{Vocabulary: gibbs.NewVocabulary()}
	assert.Error(t, r.ShowTopics(context.Background()))
}

func createTestingSentenceRunner() (*Runner, *bytes.Buffer, *fakeBackend, *fakeModel) {
	b := newFakeBackend()
	r, out := createTestingRunner(b)
	v := gibbs.NewVocabulary()
	v.AddDocuments([][]string{{"john", "doe", "did"}})
	b.vocabs[r.Config.DictionaryFilepath] = &fakeVocab{Vocabulary: v}
	m := &fakeModel{}
	b.models[r.Config.ModelFilepath] = m
	return r, out, b, m
}

func TestTestSentence(t *testing.T) {
	r, out, _, m := createTestingSentenceRunner()
	require.NoError(t, r.TestSentence(context.Background(), " John DOE did "))
	assert.Equal(t, "[(1, 1.0000)]\n", out.String())
	require.Len(t, m.inferred, 1)
	assert.Equal(t, gibbs.BoW{{Id: 0, Count: 1}, {Id: 1, Count: 1}, {Id: 2, Count: 1}}, m.inferred[0])
}

func TestTestSentenceLengthWarning(t *testing.T) {
	r, out, _, m := createTestingSentenceRunner()
	require.NoError(t, r.TestSentence(context.Background(), "John did something else"))
	assert.Equal(t, 1, strings.Count(out.String(), "[INFO]"))
	assert.Contains(t, out.String(), "(4 vs 3)")
	assert.Len(t, m.inferred, 1)
}

func TestUnknownTokens(t *testing.T) {
	r, _, b, _ := createTestingSentenceRunner()
	v := b.vocabs[r.Config.DictionaryFilepath]
	assert.Equal(t, []string{"jane", "something"},
		unknownTokens(v, []string{"jane", "doe", "did", "something"}))
	assert.Empty(t, unknownTokens(v, []string{"john", "did"}))
}

func TestTestSentenceWithUnknownTokens(t *testing.T) {
	r, _, _, m := createTestingSentenceRunner()
	require.NoError(t, r.TestSentence(context.Background(), "Jane doe did"))
	require.Len(t, m.inferred, 1)
	assert.Equal(t, gibbs.BoW{{Id: 0, Count: 1}, {Id: 1, Count: 1}}, m.inferred[0])
}

func TestTestSentenceEmpty(t *testing.T) {
	r, out, b, m := createTestingSentenceRunner()
	assert.ErrorIs(t, r.TestSentence(context.Background(), ""), ErrEmptySentence)
	assert.Equal(t, "missing or empty sentence", ErrEmptySentence.Error())
	assert.Empty(t, m.inferred)
	assert.Zero(t, b.loads)
	assert.Empty(t, out.String())
}

func TestGibbsBackendEndToEnd(t *testing.T) {
	dir := t.TempDir()
	r, out := createTestingRunner(GibbsBackend{})
	r.Config.DictionaryFilepath = filepath.Join(dir, "lda.dict")
	r.Config.ModelFilepath = filepath.Join(dir, "lda.model.zst")
	r.Config.LDA.FlushRemainder = true
	r.Config.LDA.Passes = 5
	r.Progress = utils.NewIterations()

	articles := []string{
		"apple/FRUIT orange/FRUIT banana/FRUIT apple/FRUIT orange",
		"cat/ANIMAL tiger/ANIMAL lion/ANIMAL cat/ANIMAL tiger",
		"apple/FRUIT banana/FRUIT orange/FRUIT banana",
		"lion/ANIMAL cat/ANIMAL tiger/ANIMAL lion",
	}
	r.Articles = articlesOf(articles...)
	r.Windows = windowsOf(articles...)

	ctx := context.Background()
	require.NoError(t, r.BuildDictionary(ctx))
	require.NoError(t, r.Train(ctx))
	assert.True(t, r.Progress.Len() > 0)

	m, e := utils.LoadModel(r.Config.ModelFilepath)
	require.NoError(t, e)
	assert.Equal(t, r.Progress.Len(), m.Updates)
	assert.Len(t, m.Id2Word, 6)

	out.Reset()
	require.NoError(t, r.ShowTopics(ctx))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "List of topics:", lines[0])
	assert.Len(t, lines, 1+r.Config.LDA.NumTopics)

	out.Reset()
	require.NoError(t, r.TestSentence(ctx, "apple orange banana"))
	assert.True(t, strings.HasPrefix(out.String(), "[("), out.String())
	assert.NotContains(t, out.String(), "[INFO]")

	// Inference is repeatable for the same sentence.
	first := out.String()
	out.Reset()
	require.NoError(t, r.TestSentence(ctx, "apple orange banana"))
	assert.Equal(t, first, out.String())
}

func TestNewBackend(t *testing.T) {
	c := config.Default()
	assert.Equal(t, GibbsBackend{}, NewBackend(c))
	c.Backend = config.BackendVariational
	c.LDA.Iterations = 7
	assert.Equal(t, VariationalBackend{Iterations: 7}, NewBackend(c))
}

func TestVariationalBackendEndToEnd(t *testing.T) {
	dir := t.TempDir()
	r, out := createTestingRunner(VariationalBackend{Iterations: 20})
	r.Config.DictionaryFilepath = filepath.Join(dir, "lda.dict")
	r.Config.ModelFilepath = filepath.Join(dir, "lda.model.gz")
	r.Config.LDA.FlushRemainder = true

	articles := []string{
		"apple/FRUIT orange/FRUIT banana/FRUIT apple/FRUIT orange",
		"cat/ANIMAL tiger/ANIMAL lion/ANIMAL cat/ANIMAL tiger",
	}
	r.Articles = articlesOf(articles...)
	r.Windows = windowsOf(articles...)

	ctx := context.Background()
	require.NoError(t, r.BuildDictionary(ctx))
	require.NoError(t, r.Train(ctx))

	m, e := utils.LoadVariationalModel(r.Config.ModelFilepath)
	require.NoError(t, e)
	assert.True(t, m.Trained())
	assert.Len(t, m.Corpus, 6)

	out.Reset()
	require.NoError(t, r.ShowTopics(ctx))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "List of topics:", lines[0])
	assert.Len(t, lines, 1+r.Config.LDA.NumTopics)

	out.Reset()
	require.NoError(t, r.TestSentence(ctx, "apple orange banana"))
	first := out.String()
	assert.True(t, strings.HasPrefix(first, "[("), first)
	out.Reset()
	require.NoError(t, r.TestSentence(ctx, "apple orange banana"))
	assert.Equal(t, first, out.String())
}

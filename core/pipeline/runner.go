package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fz-29/ner-crf/core/config"
	"github.com/fz-29/ner-crf/core/corpus"
	"github.com/fz-29/ner-crf/core/gibbs"
	"github.com/fz-29/ner-crf/core/utils"
	"github.com/golang/glog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrEmptySentence = errors.New("missing or empty sentence")

// WindowSource streams windows.
type WindowSource interface {
	ForEach(p func(*corpus.Window) error) error
}

// Runner runs the operations with the settings in Config.  Articles
// and Windows default to corpus.LoadArticles and corpus.LoadWindows.
type Runner struct {
	Config   *config.Config
	Backend  Backend
	Out      io.Writer
	Progress *utils.Iterations // optional

	Articles func(path string) corpus.ArticleSource
	Windows  func(articles corpus.ArticleSource, size int, onlyLabeled bool) WindowSource
}

func NewRunner(c *config.Config, out io.Writer) *Runner {
	return &Runner{
		Config:  c,
		Backend: NewBackend(c),
		Out:     out,
	}
}

func (r *Runner) articles() corpus.ArticleSource {
	if r.Articles != nil {
		return r.Articles(r.Config.ArticlesFilepath)
	}
	return corpus.LoadArticles(r.Config.ArticlesFilepath)
}

func (r *Runner) windows() WindowSource {
	if r.Windows != nil {
		return r.Windows(r.articles(), r.Config.WindowSize, true)
	}
	return corpus.LoadWindows(r.articles(), r.Config.WindowSize, true)
}

func (r *Runner) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.Out, format, args...)
}

func (r *Runner) header(title string) {
	r.printf("------------------\n%s\n------------------\n", title)
}

// newLower returns a lower-casing Caser.  A Caser keeps state between
// calls, so every caller gets its own.
func newLower() cases.Caser {
	return cases.Lower(language.Und)
}

// Tokenize lower-cases s and splits it on single spaces.  Runs of
// spaces yield empty tokens.
func Tokenize(s string) []string {
	return strings.Split(newLower().String(s), " ")
}

// reachedCap reports whether the item at zero-based index i is the
// last one allowed by cap.  A cap <= 0 means no cap.
func reachedCap(i, cap int) bool {
	return cap > 0 && i >= cap
}

// BuildDictionary builds the vocabulary from up to
// Dictionary.MaxArticles+1 articles, drops tokens found in fewer than
// Dictionary.IgnoreBelow articles and saves it.
func (r *Runner) BuildDictionary(ctx context.Context) error {
	r.header("Generating LDA Dictionary")
	c := r.Config.Dictionary
	v := r.Backend.NewVocabulary(c.PruneAt)

	batch := make([][]string, 0, c.UpdateEvery)
	i := 0
	e := r.articles().ForEach(func(a *corpus.Article) error {
		if e := ctx.Err(); e != nil {
			return e
		}
		batch = append(batch, Tokenize(a.ContentString()))
		if len(batch) >= c.UpdateEvery {
			r.printf("Updating (at article %d of max %d)...\n", i, c.MaxArticles)
			v.AddDocuments(batch)
			batch = batch[:0]
		}
		if reachedCap(i, c.MaxArticles) {
			r.printf("Reached max of %d articles.\n", c.MaxArticles)
			return corpus.ErrStop
		}
		i++
		return nil
	})
	if e != nil {
		return fmt.Errorf("building dictionary: %w", e)
	}

	if len(batch) > 0 {
		r.printf("Updating with remaining articles...\n")
		v.AddDocuments(batch)
	}
	r.printf("Loaded %d unique words.\n", v.Len())

	r.printf("Filtering rare words...\n")
	removed := v.FilterBelow(c.IgnoreBelow)
	v.Compactify()
	glog.Infof("Removed %d tokens with document frequency below %d", removed, c.IgnoreBelow)
	r.printf("Filtered to %d unique words.\n", v.Len())

	r.printf("Saving dictionary...\n")
	return r.Backend.SaveVocabulary(v, r.Config.DictionaryFilepath)
}

func (r *Runner) modelParams() gibbs.Params {
	c := r.Config.LDA
	return gibbs.Params{
		NumTopics:      c.NumTopics,
		TopicPrior:     c.TopicPrior,
		WordPrior:      c.WordPrior,
		Workers:        c.Workers,
		ChunkSize:      c.ChunkSize,
		Passes:         c.Passes,
		OptimizePriors: c.OptimizePriors,
		OptimIter:      c.OptimIter,
		Shape:          c.Shape,
		Scale:          c.Scale,
		CacheMB:        c.CacheMB,
		Seed:           c.Seed,
	}
}

// Train trains a new model on up to LDA.MaxWindows+1 labeled windows,
// calling Update every LDA.UpdateEvery windows, and saves it.  A final
// partial batch is only used with LDA.FlushRemainder.  If ctx is
// cancelled, the model trained so far is saved and ctx.Err() returned.
func (r *Runner) Train(ctx context.Context) error {
	r.header("Training LDA model")
	c := r.Config.LDA

	r.printf("Loading dictionary...\n")
	v, e := r.Backend.LoadVocabulary(r.Config.DictionaryFilepath)
	if e != nil {
		return e
	}
	r.printf("Generating id2word...\n")
	id2word := v.Id2Word()

	r.printf("Initializing LDA...\n")
	m, e := r.Backend.NewModel(id2word, r.modelParams())
	if e != nil {
		return fmt.Errorf("initializing model: %w", e)
	}

	r.printf("Training...\n")
	lower := newLower()
	batch := make([]gibbs.BoW, 0, c.UpdateEvery)
	update := func() error {
		if r.Progress != nil {
			r.Progress.Start()
		}
		stats, e := m.Update(ctx, batch)
		if r.Progress != nil {
			r.Progress.End(stats.Documents, stats.Perplexity)
		}
		if e != nil {
			return e
		}
		glog.Infof("Updated with %d windows (%d words) in %s, perplexity %.3f",
			stats.Documents, stats.Words, stats.Duration, stats.Perplexity)
		batch = batch[:0]
		return nil
	}

	i := 0
	e = r.windows().ForEach(func(w *corpus.Window) error {
		if e := ctx.Err(); e != nil {
			return e
		}
		words := w.Words()
		for j := range words {
			words[j] = lower.String(words[j])
		}
		batch = append(batch, v.Doc2Bow(words))
		if len(batch) >= c.UpdateEvery {
			r.printf("Updating (at window %d of max %d)...\n", i, c.MaxWindows)
			if e := update(); e != nil {
				return e
			}
		}
		if reachedCap(i, c.MaxWindows) {
			r.printf("Reached max of %d windows.\n", c.MaxWindows)
			return corpus.ErrStop
		}
		i++
		return nil
	})
	if e == nil && c.FlushRemainder && len(batch) > 0 {
		r.printf("Updating with remaining windows...\n")
		e = update()
	}

	if e != nil {
		if !errors.Is(e, context.Canceled) && !errors.Is(e, context.DeadlineExceeded) {
			return fmt.Errorf("training: %w", e)
		}
		glog.Warningf("Training interrupted after %d windows, saving the model trained so far", i)
	}

	r.printf("Saving...\n")
	if se := r.Backend.SaveModel(m, r.Config.ModelFilepath); se != nil {
		return se
	}
	return e
}

// unknownTokens lists the tokens Doc2Bow would ignore, in order.
func unknownTokens(v Vocabulary, tokens []string) []string {
	var unknown []string
	for _, t := range tokens {
		if v.Id(t) < 0 {
			unknown = append(unknown, t)
		}
	}
	return unknown
}

func (r *Runner) load() (Vocabulary, TopicModel, error) {
	v, e := r.Backend.LoadVocabulary(r.Config.DictionaryFilepath)
	if e != nil {
		return nil, nil, e
	}
	m, e := r.Backend.LoadModel(r.Config.ModelFilepath)
	if e != nil {
		return nil, nil, e
	}
	return v, m, nil
}

// ShowTopics prints the top Topics.NumWords words of each of the
// LDA.NumTopics topics.
func (r *Runner) ShowTopics(ctx context.Context) error {
	if e := ctx.Err(); e != nil {
		return e
	}
	_, m, e := r.load()
	if e != nil {
		return e
	}
	r.printf("List of topics:\n")
	for i, t := range m.ShowTopics(r.Config.LDA.NumTopics, r.Config.Topics.NumWords) {
		r.printf("%3d: %s\n", i, t)
	}
	return nil
}

// TestSentence prints the topic distribution of sentence.
func (r *Runner) TestSentence(ctx context.Context, sentence string) error {
	if len(sentence) == 0 {
		return ErrEmptySentence
	}
	if e := ctx.Err(); e != nil {
		return e
	}

	tokens := strings.Split(strings.TrimSpace(newLower().String(sentence)), " ")
	if len(tokens) != r.Config.WindowSize {
		r.printf("[INFO] the token size of your sentence does not match the defined window size (%d vs %d).\n",
			len(tokens), r.Config.WindowSize)
	}

	v, m, e := r.load()
	if e != nil {
		return e
	}
	if unknown := unknownTokens(v, tokens); len(unknown) > 0 {
		glog.Infof("Ignoring %d of %d tokens missing from the dictionary: %q",
			len(unknown), len(tokens), unknown)
	}
	dist, e := m.Inference(v.Doc2Bow(tokens), gibbs.InferParams{
		Burnin:         r.Config.Infer.Burnin,
		Iterations:     r.Config.Infer.Iterations,
		MinProbability: r.Config.Infer.MinProbability,
		CacheMB:        r.Config.LDA.CacheMB,
	})
	if e != nil {
		return fmt.Errorf("inferring topics: %w", e)
	}
	r.printf("%s\n", dist)
	return nil
}

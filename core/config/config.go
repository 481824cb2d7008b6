// Package config holds the settings of the lda tool.  Values come from
// built-in defaults, an optional YAML file, an optional .env file and
// LDA_* environment variables, later sources overriding earlier ones.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendGibbs       = "gibbs"
	BackendVariational = "variational"
)

type Config struct {
	// Backend selects the training algorithm: BackendGibbs or
	// BackendVariational.
	Backend string `yaml:"backend"`

	ArticlesFilepath   string `yaml:"articles_filepath"`
	DictionaryFilepath string `yaml:"dictionary_filepath"`
	ModelFilepath      string `yaml:"model_filepath"`
	WindowSize         int    `yaml:"window_size"`

	// StatusAddr, if not empty, is where training progress is served
	// as expvar JSON, e.g. "localhost:6060".
	StatusAddr string `yaml:"status_addr"`

	Dictionary Dictionary `yaml:"dictionary"`
	LDA        LDA        `yaml:"lda"`
	Topics     Topics     `yaml:"topics"`
	Infer      Infer      `yaml:"infer"`
}

// Dictionary configures vocabulary building.
type Dictionary struct {
	MaxArticles int   `yaml:"max_articles"`
	UpdateEvery int   `yaml:"update_every"`
	IgnoreBelow int64 `yaml:"ignore_below"`
	PruneAt     int   `yaml:"prune_at"`
}

// LDA configures the model and its training.
type LDA struct {
	NumTopics      int  `yaml:"num_topics"`
	Workers        int  `yaml:"workers"`
	ChunkSize      int  `yaml:"chunk_size"`
	UpdateEvery    int  `yaml:"update_every"`
	MaxWindows     int  `yaml:"max_windows"`
	Passes         int  `yaml:"passes"`
	FlushRemainder bool `yaml:"flush_remainder"`

	TopicPrior     float64 `yaml:"topic_prior"` // 0 means 1/num_topics
	WordPrior      float64 `yaml:"word_prior"`
	OptimizePriors bool    `yaml:"optimize_priors"`
	OptimIter      int     `yaml:"optim_iter"`
	Shape          float64 `yaml:"shape"`
	Scale          float64 `yaml:"scale"`

	CacheMB int   `yaml:"cache_mb"`
	Seed    int64 `yaml:"seed"`

	// Iterations bounds each fit of the variational backend.
	Iterations int `yaml:"iterations"`
}

type Topics struct {
	NumWords int `yaml:"num_words"`
}

// Infer configures topic inference of a test sentence.
type Infer struct {
	Burnin         int     `yaml:"burnin"`
	Iterations     int     `yaml:"iterations"`
	MinProbability float64 `yaml:"min_probability"`
}

func Default() *Config {
	return &Config{
		Backend:            BackendGibbs,
		ArticlesFilepath:   "data/articles.txt",
		DictionaryFilepath: "data/lda.dict",
		ModelFilepath:      "data/lda.model",
		WindowSize:         11,
		Dictionary: Dictionary{
			MaxArticles: 100000,
			UpdateEvery: 1000,
			IgnoreBelow: 4,
			PruneAt:     2000000,
		},
		LDA: LDA{
			NumTopics:   100,
			Workers:     3,
			ChunkSize:   10000,
			UpdateEvery: 25000,
			MaxWindows:  1000 * 1000,
			Passes:      1,
			WordPrior:   0.01,
			OptimIter:   10,
			Scale:       1e7,
			Seed:        1,
			Iterations:  100,
		},
		Topics: Topics{NumWords: 10},
		Infer: Infer{
			Burnin:         50,
			Iterations:     100,
			MinProbability: 0.01,
		},
	}
}

// Load builds a Config from defaults, the YAML file path and the
// environment, in this order.  Either path or dotenv may be empty.  A
// dotenv file never overrides variables already set in the process
// environment.
func Load(path, dotenv string) (*Config, error) {
	c := Default()
	if path != "" {
		b, e := os.ReadFile(path)
		if e != nil {
			return nil, fmt.Errorf("cannot read config file: %w", e)
		}
		if e := yaml.Unmarshal(b, c); e != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, e)
		}
	}

	if dotenv != "" {
		if e := godotenv.Load(dotenv); e != nil && !errors.Is(e, os.ErrNotExist) {
			return nil, fmt.Errorf("cannot load %s: %w", dotenv, e)
		}
	}
	if e := c.applyEnv(os.LookupEnv); e != nil {
		return nil, e
	}

	if e := c.Validate(); e != nil {
		return nil, fmt.Errorf("invalid configuration: %w", e)
	}
	return c, nil
}

// env lists the settings that can be overridden by LDA_<name>.
func (c *Config) env() map[string]interface{} {
	return map[string]interface{}{
		"BACKEND":             &c.Backend,
		"ARTICLES_FILEPATH":   &c.ArticlesFilepath,
		"DICTIONARY_FILEPATH": &c.DictionaryFilepath,
		"MODEL_FILEPATH":      &c.ModelFilepath,
		"WINDOW_SIZE":         &c.WindowSize,
		"STATUS_ADDR":         &c.StatusAddr,
		"MAX_ARTICLES":        &c.Dictionary.MaxArticles,
		"NUM_TOPICS":          &c.LDA.NumTopics,
		"WORKERS":             &c.LDA.Workers,
		"CHUNK_SIZE":          &c.LDA.ChunkSize,
		"UPDATE_EVERY":        &c.LDA.UpdateEvery,
		"MAX_WINDOWS":         &c.LDA.MaxWindows,
		"PASSES":              &c.LDA.Passes,
		"FLUSH_REMAINDER":     &c.LDA.FlushRemainder,
		"SEED":                &c.LDA.Seed,
		"ITERATIONS":          &c.LDA.Iterations,
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for name, field := range c.env() {
		name = "LDA_" + name
		value, ok := lookup(name)
		if !ok {
			continue
		}
		var e error
		switch f := field.(type) {
		case *string:
			*f = value
		case *int:
			*f, e = strconv.Atoi(value)
		case *int64:
			*f, e = strconv.ParseInt(value, 10, 64)
		case *bool:
			*f, e = strconv.ParseBool(value)
		}
		if e != nil {
			return fmt.Errorf("environment variable %s=%q: %w", name, value, e)
		}
	}
	return nil
}

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	var msg []string
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			msg = append(msg, fmt.Sprintf(format, args...))
		}
	}

	check(c.Backend == BackendGibbs || c.Backend == BackendVariational,
		"backend must be %q or %q, got %q", BackendGibbs, BackendVariational, c.Backend)
	check(c.ArticlesFilepath != "", "articles_filepath must be specified")
	check(c.DictionaryFilepath != "", "dictionary_filepath must be specified")
	check(c.ModelFilepath != "", "model_filepath must be specified")
	check(c.WindowSize > 0, "window_size must be positive, got %d", c.WindowSize)

	check(c.Dictionary.MaxArticles >= 0, "dictionary.max_articles must not be negative")
	check(c.Dictionary.UpdateEvery > 0, "dictionary.update_every must be positive, got %d", c.Dictionary.UpdateEvery)
	check(c.Dictionary.PruneAt >= 0, "dictionary.prune_at must not be negative")

	check(c.LDA.NumTopics > 0, "lda.num_topics must be positive, got %d", c.LDA.NumTopics)
	check(c.LDA.Workers > 0, "lda.workers must be positive, got %d", c.LDA.Workers)
	check(c.LDA.ChunkSize > 0, "lda.chunk_size must be positive, got %d", c.LDA.ChunkSize)
	check(c.LDA.UpdateEvery > 0, "lda.update_every must be positive, got %d", c.LDA.UpdateEvery)
	check(c.LDA.MaxWindows >= 0, "lda.max_windows must not be negative")
	check(c.LDA.Passes > 0, "lda.passes must be positive, got %d", c.LDA.Passes)
	check(c.LDA.TopicPrior >= 0, "lda.topic_prior must not be negative")
	check(c.LDA.WordPrior > 0, "lda.word_prior must be positive, got %g", c.LDA.WordPrior)
	check(!c.LDA.OptimizePriors || c.LDA.OptimIter > 0, "lda.optim_iter must be positive when optimizing priors")
	check(c.LDA.Scale > 0, "lda.scale must be positive, got %g", c.LDA.Scale)
	check(c.LDA.Iterations > 0, "lda.iterations must be positive, got %d", c.LDA.Iterations)

	check(c.Topics.NumWords > 0, "topics.num_words must be positive, got %d", c.Topics.NumWords)
	check(c.Infer.Burnin >= 0, "infer.burnin must not be negative")
	check(c.Infer.Iterations > c.Infer.Burnin, "infer.iterations (%d) must exceed infer.burnin (%d)",
		c.Infer.Iterations, c.Infer.Burnin)
	check(c.Infer.MinProbability >= 0 && c.Infer.MinProbability < 1,
		"infer.min_probability must be in [0, 1), got %g", c.Infer.MinProbability)

	if len(msg) > 0 {
		return errors.New(strings.Join(msg, "; "))
	}
	return nil
}

// String renders c as YAML.
func (c *Config) String() string {
	b, e := yaml.Marshal(c)
	if e != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return string(b)
}

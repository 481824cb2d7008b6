// lda builds a vocabulary and trains an LDA topic model over small
// labeled word windows, lists the learned topics and infers the topics
// of a sentence.
// Usage:
/*
  lda --config=lda.yaml --dict --train
  lda --config=lda.yaml --topics
  lda --config=lda.yaml --test --sentence="John Doe did something."
*/
// Operations given together run in the order dict, train, topics,
// test.  Interrupting training with SIGINT or SIGTERM saves the model
// trained so far.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fz-29/ner-crf/core/config"
	"github.com/fz-29/ner-crf/core/pipeline"
	"github.com/fz-29/ner-crf/core/utils"
	"github.com/golang/glog"
)

const usage = "No option chosen, choose --dict or --train or --topics or --test."

type options struct {
	dict, train, topics, test bool
	sentence                  string
	config, dotenv            string
}

func (o *options) register(fs *flag.FlagSet) {
	fs.BoolVar(&o.dict, "dict", false, "Create the LDA's dictionary (must happen before training).")
	fs.BoolVar(&o.train, "train", false, "Train the LDA model.")
	fs.BoolVar(&o.topics, "topics", false, "Show the topics of a trained LDA model.")
	fs.BoolVar(&o.test, "test", false, "Test the trained LDA on a sentence provided via --sentence.")
	fs.StringVar(&o.sentence, "sentence", "", "An example sentence to test the LDA model on.")
	fs.StringVar(&o.config, "config", "", "YAML configuration file; defaults are used if empty")
	fs.StringVar(&o.dotenv, "dotenv", ".env", "Optional file of LDA_* environment overrides")
}

func (o *options) none() bool {
	return !o.dict && !o.train && !o.topics && !o.test
}

func run(ctx context.Context, o *options, out io.Writer) error {
	if o.none() {
		fmt.Fprintln(out, usage)
		return nil
	}

	c, e := config.Load(o.config, o.dotenv)
	if e != nil {
		return e
	}
	glog.V(1).Infof("Configuration:\n%s", c)

	r := pipeline.NewRunner(c, out)
	if o.train {
		r.Progress = utils.NewIterations()
		if _, e := utils.EnableStatus(c.StatusAddr, r.Progress); e != nil {
			return e
		}
	}

	steps := []struct {
		enabled bool
		run     func() error
	}{
		{o.dict, func() error { return r.BuildDictionary(ctx) }},
		{o.train, func() error { return r.Train(ctx) }},
		{o.topics, func() error { return r.ShowTopics(ctx) }},
		{o.test, func() error { return r.TestSentence(ctx, o.sentence) }},
	}
	for _, s := range steps {
		if !s.enabled {
			continue
		}
		if e := s.run(); e != nil {
			return e
		}
	}
	return nil
}

func main() {
	var o options
	o.register(flag.CommandLine)
	flag.Parse()
	defer glog.Flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		glog.Infof("Caught signal, will checkpoint and exit ...")
		cancel()
	}()

	if e := run(ctx, &o, os.Stdout); e != nil {
		glog.Fatalf("lda: %v", e)
	}
}

package utils

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fz-29/ner-crf/core/gibbs"
	"github.com/fz-29/ner-crf/core/variational"
	"github.com/golang/glog"
)

func save(filename string, v interface{}) (err error) {
	if e := os.MkdirAll(filepath.Dir(filename), 0755); e != nil {
		return fmt.Errorf("cannot create directory of %s: %w", filename, e)
	}
	w, e := CreateWriter(filename)
	if e != nil {
		return fmt.Errorf("cannot create %s: %w", filename, e)
	}
	defer func() {
		if e := w.Close(); e != nil && err == nil {
			err = fmt.Errorf("cannot close %s: %w", filename, e)
		}
	}()
	if e := gob.NewEncoder(w).Encode(v); e != nil {
		return fmt.Errorf("cannot encode %s: %w", filename, e)
	}
	return nil
}

func load(filename string, v interface{}) error {
	r, e := OpenReader(filename)
	if e != nil {
		return fmt.Errorf("cannot open %s: %w", filename, e)
	}
	defer r.Close()
	if e := gob.NewDecoder(r).Decode(v); e != nil {
		return fmt.Errorf("cannot decode %s: %w", filename, e)
	}
	return nil
}

func SaveVocab(v *gibbs.Vocabulary, filename string) error {
	if e := save(filename, v); e != nil {
		return e
	}
	glog.Infof("Saved vocabulary of %d tokens to %s", v.Len(), filename)
	return nil
}

func LoadVocab(filename string) (*gibbs.Vocabulary, error) {
	glog.Infof("Loading vocabulary %s ...", filename)
	v := gibbs.NewVocabulary()
	if e := load(filename, v); e != nil {
		return nil, e
	}
	if v.Token2Id == nil {
		v.Token2Id = make(map[string]int32)
	}
	if v.DFS == nil {
		v.DFS = make(map[int32]int64)
	}
	glog.Infof("Done. %d tokens from %d documents.", v.Len(), v.NumDocs)
	return v, nil
}

func SaveModel(m *gibbs.Model, filename string) error {
	if e := save(filename, m); e != nil {
		return e
	}
	glog.Infof("Saved model to %s", filename)
	return nil
}

func LoadModel(filename string) (*gibbs.Model, error) {
	glog.Infof("Loading model %s ...", filename)
	m := new(gibbs.Model)
	if e := load(filename, m); e != nil {
		return nil, e
	}
	if m.GlobalTopicHist == nil || len(m.TopicPrior) != m.NumTopics() {
		return nil, fmt.Errorf("%s does not hold a topic model", filename)
	}
	glog.Infof("Done. %d topics %d tokens.", m.NumTopics(), m.VocabSize())
	return m, nil
}

func SaveVariationalModel(m *variational.Model, filename string) error {
	if e := save(filename, m); e != nil {
		return e
	}
	glog.Infof("Saved variational model to %s", filename)
	return nil
}

func LoadVariationalModel(filename string) (*variational.Model, error) {
	glog.Infof("Loading variational model %s ...", filename)
	m := new(variational.Model)
	if e := load(filename, m); e != nil {
		return nil, e
	}
	if m.NumTopics() < 1 || m.VocabSize() < 1 {
		return nil, fmt.Errorf("%s does not hold a variational topic model", filename)
	}
	glog.Infof("Done. %d topics %d tokens, fit on %d documents.",
		m.NumTopics(), m.VocabSize(), len(m.Corpus))
	return m, nil
}

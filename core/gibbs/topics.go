package gibbs

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// WordProb is a word of a topic with its count and P(w|z).
type WordProb struct {
	Id    int32
	Word  string
	Count int64
	Prob  float64
}

// Topic lists the most probable words of one topic.
type Topic struct {
	Id    int
	Count int64 // number of words assigned to the topic
	Words []WordProb
}

func (t Topic) String() string {
	parts := make([]string, len(t.Words))
	for i, w := range t.Words {
		parts[i] = fmt.Sprintf("%.3f*%q", w.Prob, w.Word)
	}
	return strings.Join(parts, " + ")
}

// ShowTopics returns the numWords most probable words of the first
// numTopics topics, in topic order.  Words never assigned to a topic
// are not listed.  numTopics <= 0 or beyond NumTopics means all
// topics.
func (m *Model) ShowTopics(numTopics, numWords int) []Topic {
	if numTopics <= 0 || numTopics > m.NumTopics() {
		numTopics = m.NumTopics()
	}

	counts := make([][]WordProb, numTopics)
	for w, h := range m.WordTopicHists {
		if h == nil {
			continue
		}
		h.ForEach(func(t int, c int64) error {
			if t < numTopics && c > 0 {
				counts[t] = append(counts[t], WordProb{Id: int32(w), Count: c})
			}
			return nil
		})
	}

	topics := make([]Topic, numTopics)
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for t := range topics {
		t := t
		g.Go(func() error {
			topics[t] = m.describeTopic(t, counts[t], numWords)
			return nil
		})
	}
	g.Wait()
	return topics
}

func (m *Model) describeTopic(t int, words []WordProb, numWords int) Topic {
	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Id < words[j].Id
	})
	if numWords >= 0 && len(words) > numWords {
		words = words[:numWords]
	}

	total := m.GlobalTopicHist.At(t)
	for i := range words {
		words[i].Word = m.Word(words[i].Id)
		words[i].Prob = (float64(words[i].Count) + m.WordPrior) /
			(m.WordPriorSum + float64(total))
	}
	return Topic{Id: t, Count: total, Words: words}
}

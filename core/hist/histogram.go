// Package hist implements the topic histograms that make up an LDA
// model: a dense global topic histogram, sparse word-topic histograms
// and descending-ordered document-topic histograms.
package hist

// Hist counts occurrences per topic.
type Hist interface {
	At(topic int) int64
	Inc(topic, count int)
	Dec(topic, count int)
	Len() int
	Sum() int64

	// ForEach visits non-zero elements (all elements for Dense).  It
	// stops at the first non-nil error returned by p and returns it.
	ForEach(p func(topic int, count int64) error) error

	Clone() Hist
}

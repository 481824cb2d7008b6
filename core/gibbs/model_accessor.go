package gibbs

import (
	"container/heap"
	"unsafe"
)

// ModelAccessor serves smoothed word-topic distributions P(w|z).
// Distributions of the most frequent words are precomputed, as many as
// fit in the cache size given to NewModelAccessor; the rest are
// computed on demand.
type ModelAccessor struct {
	*Model
	WordTopicDists [][]float64
	smoothingOnly  []float64
}

// NewModelAccessor caches the distributions of the most frequent
// words within cacheSizeMB megabytes.  A negative cacheSizeMB caches
// the whole vocabulary.
func NewModelAccessor(model *Model, cacheSizeMB int) *ModelAccessor {
	a := &ModelAccessor{
		Model:          model,
		WordTopicDists: make([][]float64, model.VocabSize()),
	}

	cached := model.VocabSize()
	if cacheSizeMB >= 0 {
		var f64 float64
		cached = (cacheSizeMB*1024*1024 -
			model.VocabSize()*int(unsafe.Sizeof(a.WordTopicDists[0]))) /
			(model.NumTopics() * int(unsafe.Sizeof(f64)))
	}
	if cached <= 0 {
		return a
	}

	h := newMinHeap(cached)
	for word, hist := range model.WordTopicHists {
		var freq int64
		if hist != nil {
			freq = hist.Sum()
		}
		if h.Len() < cached {
			heap.Push(h, wordFreq{word, freq})
		} else if freq > (*h)[0].freq {
			heap.Pop(h)
			heap.Push(h, wordFreq{word, freq})
		}
	}
	for h.Len() > 0 {
		wf := heap.Pop(h).(wordFreq)
		a.WordTopicDists[wf.word] = a.computeDist(int32(wf.word))
	}
	return a
}

func (a *ModelAccessor) computeDist(token int32) []float64 {
	if a.smoothingOnly == nil {
		a.smoothingOnly = make([]float64, a.NumTopics())
		a.GlobalTopicHist.ForEach(func(topic int, count int64) error {
			a.smoothingOnly[topic] = a.WordPrior / (a.WordPriorSum + float64(count))
			return nil
		})
	}

	dist := make([]float64, a.NumTopics())
	copy(dist, a.smoothingOnly)
	if h := a.WordTopicHists[token]; h != nil {
		h.ForEach(func(t int, c int64) error {
			dist[t] = (float64(c) + a.WordPrior) /
				(a.WordPriorSum + float64(a.GlobalTopicHist.At(t)))
			return nil
		})
	}
	return dist
}

// WordTopicDist returns P(token|z) for every topic z.  The returned
// slice must not be modified.
func (a *ModelAccessor) WordTopicDist(token int32) []float64 {
	if dist := a.WordTopicDists[token]; dist != nil {
		return dist
	}
	return a.computeDist(token)
}

type wordFreq struct {
	word int
	freq int64
}

type minHeap []wordFreq

func newMinHeap(size int) *minHeap {
	h := make(minHeap, 0, size)
	return &h
}

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].freq < h[j].freq }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(wordFreq)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

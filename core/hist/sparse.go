package hist

import (
	"encoding/gob"
	"fmt"
	"math"
)

// Sparse keeps only non-zero topics in a map.  Word-topic histograms
// are Sparse because a word is usually assigned to few topics.  In a
// diff model (see gibbs.Sampler.SetDiff) counts may be negative.
type Sparse map[int32]int32

func init() {
	gob.Register(Sparse{})
}

func NewSparse() Sparse {
	return make(Sparse)
}

func (s Sparse) At(topic int) int64 {
	return int64(s[int32(topic)])
}

func (s Sparse) Inc(topic, count int) {
	if count <= 0 {
		panic(fmt.Sprintf("Sparse.Inc(%d, %d): count must be > 0", topic, count))
	}
	t := int32(topic)
	if int64(s[t])+int64(count) > math.MaxInt32 {
		panic(fmt.Sprintf("Sparse[%d] = %d overflows", topic, s[t]))
	}
	if s[t] += int32(count); s[t] == 0 {
		delete(s, t)
	}
}

func (s Sparse) Dec(topic, count int) {
	if count <= 0 {
		panic(fmt.Sprintf("Sparse.Dec(%d, %d): count must be > 0", topic, count))
	}
	t := int32(topic)
	if s[t] -= int32(count); s[t] == 0 {
		delete(s, t)
	}
}

func (s Sparse) Len() int {
	return len(s)
}

func (s Sparse) Sum() int64 {
	var sum int64
	for _, v := range s {
		sum += int64(v)
	}
	return sum
}

func (s Sparse) ForEach(p func(topic int, count int64) error) error {
	for t, c := range s {
		if e := p(int(t), int64(c)); e != nil {
			return e
		}
	}
	return nil
}

func (s Sparse) Clone() Hist {
	n := make(Sparse, len(s))
	for k, v := range s {
		n[k] = v
	}
	return n
}

package hist

import (
	"encoding/gob"
	"fmt"
	"math"
)

// Dense is a plain count array indexed by topic.  It represents the
// global topic histogram of a model, where every topic is expected
// to be non-zero.
type Dense []int64

func init() {
	gob.Register(Dense{})
}

func NewDense(dim int) Dense {
	return make(Dense, dim)
}

func (d Dense) At(topic int) int64 {
	return d[topic]
}

func (d Dense) Inc(topic, count int) {
	if count < 0 {
		panic(fmt.Sprintf("Dense.Inc(%d, %d): negative count", topic, count))
	}
	if d[topic] > math.MaxInt64-int64(count) {
		panic(fmt.Sprintf("Dense[%d] = %d overflows", topic, d[topic]))
	}
	d[topic] += int64(count)
}

func (d Dense) Dec(topic, count int) {
	if count < 0 {
		panic(fmt.Sprintf("Dense.Dec(%d, %d): negative count", topic, count))
	}
	d[topic] -= int64(count)
}

func (d Dense) Len() int {
	return len(d)
}

func (d Dense) Sum() int64 {
	var s int64
	for _, v := range d {
		s += v
	}
	return s
}

func (d Dense) ForEach(p func(topic int, count int64) error) error {
	for i, v := range d {
		if e := p(i, v); e != nil {
			return e
		}
	}
	return nil
}

func (d Dense) Clone() Hist {
	n := NewDense(len(d))
	copy(n, d)
	return n
}

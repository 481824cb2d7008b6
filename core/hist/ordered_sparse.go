package hist

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// OrderedSparse keeps non-zero topics in two parallel slices sorted by
// descending count.  Assign orders tied topics by ascending topic; Inc
// and Dec move a topic only past strictly smaller or larger counts, so
// afterwards tied topics may appear in any order.  The sampler walks
// document-topic histograms from the heaviest topic, so the order
// shortens the walk.
type OrderedSparse struct {
	Topics []int32
	Counts []int32
}

func NewOrderedSparse() *OrderedSparse {
	return &OrderedSparse{}
}

// NewOrderedSparseAndReserve reserves room for n non-zeros.  A
// document of length L over K topics has at most min(L, K) of them.
func NewOrderedSparseAndReserve(n int) *OrderedSparse {
	return &OrderedSparse{
		Topics: make([]int32, 0, n),
		Counts: make([]int32, 0, n)}
}

func (o *OrderedSparse) Len() int {
	return len(o.Topics)
}

func (o *OrderedSparse) Less(i, j int) bool {
	return o.Counts[i] > o.Counts[j] ||
		(o.Counts[i] == o.Counts[j] && o.Topics[i] < o.Topics[j])
}

func (o *OrderedSparse) Swap(i, j int) {
	o.Topics[i], o.Topics[j] = o.Topics[j], o.Topics[i]
	o.Counts[i], o.Counts[j] = o.Counts[j], o.Counts[i]
}

// Assign makes o represent the non-zeros of h.
func (o *OrderedSparse) Assign(h Hist) *OrderedSparse {
	o.Topics = make([]int32, 0, h.Len())
	o.Counts = make([]int32, 0, h.Len())
	h.ForEach(func(topic int, count int64) error {
		if count != 0 {
			o.Topics = append(o.Topics, int32(topic))
			o.Counts = append(o.Counts, int32(count))
		}
		return nil
	})
	sort.Sort(o)
	return o
}

func (o OrderedSparse) String() string {
	var b strings.Builder
	b.WriteString("[ ")
	for i, topic := range o.Topics {
		fmt.Fprintf(&b, "%d:%d ", topic, o.Counts[i])
	}
	b.WriteString("]")
	return b.String()
}

func (o *OrderedSparse) At(topic int) int64 {
	if i := o.find(int32(topic)); i < len(o.Topics) {
		return int64(o.Counts[i])
	}
	return 0
}

func (o *OrderedSparse) find(t int32) int {
	i := 0
	for i < len(o.Topics) && o.Topics[i] != t {
		i++
	}
	return i
}

// Inc adds count to topic and bubbles it towards the front to keep
// the descending order.
func (o *OrderedSparse) Inc(topic, count int) {
	if topic < 0 || count <= 0 {
		panic(fmt.Sprintf("OrderedSparse.Inc(%d, %d)", topic, count))
	}

	t := int32(topic)
	i := o.find(t)
	if i < len(o.Topics) {
		if int64(o.Counts[i])+int64(count) > math.MaxInt32 {
			panic(fmt.Sprintf("OrderedSparse[%d] = %d overflows", t, o.Counts[i]))
		}
		o.Counts[i] += int32(count)
	} else {
		o.Topics = append(o.Topics, t)
		o.Counts = append(o.Counts, int32(count))
	}

	c := o.Counts[i]
	for i > 0 && c > o.Counts[i-1] {
		o.Topics[i], o.Counts[i] = o.Topics[i-1], o.Counts[i-1]
		i--
	}
	o.Topics[i] = t
	o.Counts[i] = c
}

// Dec subtracts count from topic and bubbles it towards the back.  A
// topic that reaches zero is removed by reslicing, without
// reallocation.
func (o *OrderedSparse) Dec(topic, count int) {
	if topic < 0 || count <= 0 {
		panic(fmt.Sprintf("OrderedSparse.Dec(%d, %d)", topic, count))
	}

	t := int32(topic)
	i := o.find(t)
	if i >= len(o.Topics) {
		panic(fmt.Sprintf("OrderedSparse.Dec: topic %d does not exist", t))
	}
	if o.Counts[i] < int32(count) {
		panic(fmt.Sprintf("OrderedSparse.Dec: count %d < %d", o.Counts[i], count))
	}

	c := o.Counts[i] - int32(count)
	for i+1 < len(o.Topics) && c < o.Counts[i+1] {
		o.Topics[i], o.Counts[i] = o.Topics[i+1], o.Counts[i+1]
		i++
	}
	o.Topics[i] = t
	o.Counts[i] = c

	if c == 0 {
		o.Topics = o.Topics[:i]
		o.Counts = o.Counts[:i]
	}
}

func (o *OrderedSparse) Sum() int64 {
	var s int64
	for _, c := range o.Counts {
		s += int64(c)
	}
	return s
}

// ForEach visits topics in descending order of count.
func (o *OrderedSparse) ForEach(p func(topic int, count int64) error) error {
	for i := range o.Topics {
		if e := p(int(o.Topics[i]), int64(o.Counts[i])); e != nil {
			return e
		}
	}
	return nil
}

func (o *OrderedSparse) Clone() Hist {
	n := &OrderedSparse{
		Topics: make([]int32, len(o.Topics)),
		Counts: make([]int32, len(o.Counts))}
	copy(n.Topics, o.Topics)
	copy(n.Counts, o.Counts)
	return n
}

package gibbs

import (
	"fmt"
)

// Shard is the half-open range [Begin, End) of a sequence.
type Shard struct {
	Begin, End int
}

func (s Shard) Len() int {
	return s.End - s.Begin
}

// Sharder splits a zero-based sequence of integers into at most Shards
// contiguous buckets of similar size.
type Sharder struct {
	Shards int
}

func NewSharder(shards int) Sharder {
	if shards <= 0 {
		panic(fmt.Sprintf("shards (%d) <= 0", shards))
	}
	return Sharder{shards}
}

// Shard divides [0, n) into min(n, s.Shards) non-empty buckets.  The
// first n % buckets of them hold one extra element.
func (s Sharder) Shard(n int) []Shard {
	b := s.Shards
	if n < b {
		b = n
	}
	if b == 0 {
		return nil
	}

	shards := make([]Shard, b)
	size, extended := n/b, n%b
	begin := 0
	for j := range shards {
		end := begin + size
		if j < extended {
			end++
		}
		shards[j] = Shard{begin, end}
		begin = end
	}
	return shards
}

package gibbs

import (
	"fmt"
	"strings"
)

// Term is one entry of a bag-of-words: a vocabulary id and how often
// it occurs.
type Term struct {
	Id    int32
	Count int32
}

// BoW is a bag-of-words sorted by id.
type BoW []Term

func (b BoW) Len() int           { return len(b) }
func (b BoW) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }
func (b BoW) Less(i, j int) bool { return b[i].Id < b[j].Id }

// NumWords returns the number of tokens the bag represents.
func (b BoW) NumWords() int {
	n := 0
	for _, t := range b {
		n += int(t.Count)
	}
	return n
}

func (b BoW) String() string {
	parts := make([]string, len(b))
	for i, t := range b {
		parts[i] = fmt.Sprintf("(%d, %d)", t.Id, t.Count)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

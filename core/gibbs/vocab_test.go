package gibbs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabularyAddDocuments(t *testing.T) {
	v := CreateTestingVocabulary()
	assert.Equal(t, testingV, v.Len())
	assert.Equal(t, int32(0), v.Id("apple"))
	assert.Equal(t, int32(1), v.Id("orange"))
	assert.Equal(t, int32(2), v.Id("cat"))
	assert.Equal(t, int32(3), v.Id("tiger"))
	assert.Equal(t, int32(-1), v.Id("unknown"))
	assert.Equal(t, "tiger", v.Token(3))

	assert.Equal(t, int64(4), v.NumDocs)
	assert.Equal(t, int64(8), v.NumPos)
	assert.Equal(t, int64(8), v.NumNNZ)
	for id := int32(0); id < 4; id++ {
		assert.Equal(t, int64(2), v.DocFreq(id))
	}
}

func TestVocabularyDocFreqCountsDocumentsOnce(t *testing.T) {
	v := NewVocabulary()
	v.AddDocuments([][]string{{"b", "a", "b", "b"}, {"c", "a"}})
	assert.Equal(t, map[string]int32{"a": 0, "b": 1, "c": 2}, v.Token2Id)
	assert.Equal(t, int64(2), v.DocFreq(v.Id("a")))
	assert.Equal(t, int64(1), v.DocFreq(v.Id("b")))
	assert.Equal(t, int64(6), v.NumPos)
	assert.Equal(t, int64(4), v.NumNNZ)
}

func TestVocabularyFilterAndCompactify(t *testing.T) {
	v := NewVocabulary()
	v.AddDocuments([][]string{
		{"a", "b", "c", "d", "e"},
		{"a", "b", "c", "d"},
		{"a", "b", "c"},
		{"a", "b"},
		{"a"},
	})
	// a:5 b:4 c:3 d:2 e:1
	assert.Equal(t, 2, v.FilterBelow(3))
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, int32(-1), v.Id("d"))

	v.FilterTokens([]int32{v.Id("b")})
	assert.Equal(t, map[string]int32{"a": 0, "c": 2}, v.Token2Id)

	v.Compactify()
	assert.Equal(t, map[string]int32{"a": 0, "c": 1}, v.Token2Id)
	assert.Equal(t, int64(5), v.DocFreq(0))
	assert.Equal(t, int64(3), v.DocFreq(1))
	assert.Equal(t, "c", v.Token(1))

	// New tokens continue after the compacted range.
	v.AddDocuments([][]string{{"z"}})
	assert.Equal(t, int32(2), v.Id("z"))
}

func TestVocabularyPruneAt(t *testing.T) {
	v := NewVocabulary()
	v.PruneAt = 2
	v.AddDocuments([][]string{{"x", "y"}, {"x"}, {"x", "y", "z"}})
	require.Equal(t, 2, v.Len())
	assert.Equal(t, map[string]int32{"x": 0, "y": 1}, v.Token2Id)
}

func TestVocabularyDoc2Bow(t *testing.T) {
	v := CreateTestingVocabulary()
	bow := v.Doc2Bow([]string{"tiger", "apple", "unknown", "tiger"})
	assert.Equal(t, BoW{{Id: 0, Count: 1}, {Id: 3, Count: 2}}, bow)
	assert.Equal(t, 3, bow.NumWords())
	assert.Equal(t, "[(0, 1), (3, 2)]", fmt.Sprint(bow))
	assert.Empty(t, v.Doc2Bow([]string{"nothing", "known"}))
}

func TestVocabularyId2Word(t *testing.T) {
	v := CreateTestingVocabulary()
	assert.Equal(t, map[int32]string{0: "apple", 1: "orange", 2: "cat", 3: "tiger"}, v.Id2Word())
	assert.Panics(t, func() { v.Token(17) })
}

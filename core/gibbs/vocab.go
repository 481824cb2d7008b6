package gibbs

import (
	"fmt"
	"sort"
)

// Vocabulary maintains the bi-directional mapping between tokens and
// ids together with the document frequency of every token.  Ids of
// new tokens are handed out in order of first appearance (tokens new
// to the same document in lexical order).  FilterBelow and
// FilterTokens leave gaps in the id range; Compactify closes them and
// keeps the relative order of the surviving ids.
type Vocabulary struct {
	Token2Id map[string]int32
	DFS      map[int32]int64 // document frequency by id
	NumDocs  int64
	NumPos   int64 // total number of tokens seen
	NumNNZ   int64 // sum of distinct tokens per document
	NextId   int32

	// PruneAt bounds the vocabulary size during AddDocuments.  When
	// exceeded, only the PruneAt most frequent tokens are kept.  Zero
	// disables pruning.
	PruneAt int

	id2token map[int32]string
}

func NewVocabulary() *Vocabulary {
	return &Vocabulary{
		Token2Id: make(map[string]int32),
		DFS:      make(map[int32]int64),
	}
}

func (v *Vocabulary) Len() int {
	return len(v.Token2Id)
}

// AddDocuments updates the vocabulary with a batch of tokenized
// documents.
func (v *Vocabulary) AddDocuments(docs [][]string) {
	for _, doc := range docs {
		v.addDocument(doc)
		if v.PruneAt > 0 && v.Len() > v.PruneAt {
			v.keepMostFrequent(v.PruneAt)
		}
	}
}

func (v *Vocabulary) addDocument(doc []string) {
	counts := make(map[string]int, len(doc))
	for _, token := range doc {
		counts[token]++
	}

	missing := make([]string, 0)
	for token := range counts {
		if _, ok := v.Token2Id[token]; !ok {
			missing = append(missing, token)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		for _, token := range missing {
			v.Token2Id[token] = v.NextId
			v.NextId++
		}
		v.id2token = nil
	}

	for token := range counts {
		v.DFS[v.Token2Id[token]]++
	}
	v.NumDocs++
	v.NumPos += int64(len(doc))
	v.NumNNZ += int64(len(counts))
}

// FilterBelow removes tokens that appear in fewer than minDocFreq
// documents and returns how many were removed.
func (v *Vocabulary) FilterBelow(minDocFreq int64) int {
	rare := make([]int32, 0)
	for _, id := range v.Token2Id {
		if v.DFS[id] < minDocFreq {
			rare = append(rare, id)
		}
	}
	v.FilterTokens(rare)
	return len(rare)
}

// FilterTokens removes the given ids.  Unknown ids are ignored.
func (v *Vocabulary) FilterTokens(ids []int32) {
	if len(ids) == 0 {
		return
	}
	bad := make(map[int32]bool, len(ids))
	for _, id := range ids {
		bad[id] = true
	}
	for token, id := range v.Token2Id {
		if bad[id] {
			delete(v.Token2Id, token)
			delete(v.DFS, id)
		}
	}
	v.id2token = nil
}

// Compactify renumbers ids into [0, Len()).
func (v *Vocabulary) Compactify() {
	old := make([]int32, 0, v.Len())
	for _, id := range v.Token2Id {
		old = append(old, id)
	}
	sort.Slice(old, func(i, j int) bool { return old[i] < old[j] })

	remap := make(map[int32]int32, len(old))
	for i, id := range old {
		remap[id] = int32(i)
	}

	dfs := make(map[int32]int64, len(old))
	for token, id := range v.Token2Id {
		v.Token2Id[token] = remap[id]
		dfs[remap[id]] = v.DFS[id]
	}
	v.DFS = dfs
	v.NextId = int32(len(old))
	v.id2token = nil
}

func (v *Vocabulary) keepMostFrequent(n int) {
	ids := make([]int32, 0, v.Len())
	for _, id := range v.Token2Id {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if v.DFS[ids[i]] != v.DFS[ids[j]] {
			return v.DFS[ids[i]] > v.DFS[ids[j]]
		}
		return ids[i] < ids[j]
	})
	v.FilterTokens(ids[n:])
	v.Compactify()
}

// Doc2Bow counts the known tokens of doc.  Unknown tokens are
// ignored.
func (v *Vocabulary) Doc2Bow(doc []string) BoW {
	counts := make(map[int32]int32, len(doc))
	for _, token := range doc {
		if id, ok := v.Token2Id[token]; ok {
			counts[id]++
		}
	}
	bow := make(BoW, 0, len(counts))
	for id, c := range counts {
		bow = append(bow, Term{Id: id, Count: c})
	}
	sort.Sort(bow)
	return bow
}

// Id returns the id of token, or -1 if token is not in the
// vocabulary.
func (v *Vocabulary) Id(token string) int32 {
	if id, ok := v.Token2Id[token]; ok {
		return id
	}
	return -1
}

func (v *Vocabulary) Token(id int32) string {
	if v.id2token == nil {
		v.id2token = v.Id2Word()
	}
	token, ok := v.id2token[id]
	if !ok {
		panic(fmt.Sprintf("id=%d not in vocabulary of size %d", id, v.Len()))
	}
	return token
}

func (v *Vocabulary) DocFreq(id int32) int64 {
	return v.DFS[id]
}

// Id2Word inverts Token2Id.
func (v *Vocabulary) Id2Word() map[int32]string {
	m := make(map[int32]string, len(v.Token2Id))
	for token, id := range v.Token2Id {
		m[id] = token
	}
	return m
}

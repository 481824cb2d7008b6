// Package corpus streams labeled articles and the fixed-size token
// windows cut from them.
//
// An article file holds one article per line.  Tokens are separated by
// white space and may carry a label as word/LABEL, where LABEL starts
// with an upper-case letter followed by upper-case letters, digits, '-'
// or '_'.  The label O means the token is unlabeled.
package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/fz-29/ner-crf/core/utils"
)

// ErrStop may be returned by a ForEach callback to end iteration early.
// ForEach then returns nil.
var ErrStop = errors.New("stop iteration")

const maxLineBytes = 16 * 1024 * 1024

const unlabeled = "O"

type Token struct {
	Word  string
	Label string // empty if unlabeled
}

func (t Token) Labeled() bool {
	return t.Label != ""
}

// ParseToken splits s into word and label.
func ParseToken(s string) Token {
	i := strings.LastIndexByte(s, '/')
	if i <= 0 || i == len(s)-1 || !isLabel(s[i+1:]) {
		return Token{Word: s}
	}
	t := Token{Word: s[:i], Label: s[i+1:]}
	if t.Label == unlabeled {
		t.Label = ""
	}
	return t
}

func isLabel(s string) bool {
	if s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

type Article struct {
	Tokens []Token
}

// ParseArticle parses one line of an article file.
func ParseArticle(line string) *Article {
	fields := strings.Fields(line)
	a := &Article{Tokens: make([]Token, len(fields))}
	for i, f := range fields {
		a.Tokens[i] = ParseToken(f)
	}
	return a
}

// ContentString joins the words of a, without labels, by single
// spaces.
func (a *Article) ContentString() string {
	words := make([]string, len(a.Tokens))
	for i, t := range a.Tokens {
		words[i] = t.Word
	}
	return strings.Join(words, " ")
}

// ArticleFile is a lazily read article file.  Every ForEach re-reads
// it from the start.
type ArticleFile struct {
	Path string
}

func LoadArticles(path string) *ArticleFile {
	return &ArticleFile{Path: path}
}

// ForEach calls p for each non-empty article in file order.
func (f *ArticleFile) ForEach(p func(*Article) error) error {
	r, e := utils.OpenReader(f.Path)
	if e != nil {
		return fmt.Errorf("cannot open articles: %w", e)
	}
	defer r.Close()

	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), maxLineBytes)
	line := 0
	for s.Scan() {
		line++
		if strings.TrimSpace(s.Text()) == "" {
			continue
		}
		if e := p(ParseArticle(s.Text())); e != nil {
			if errors.Is(e, ErrStop) {
				return nil
			}
			return e
		}
	}
	if e := s.Err(); e != nil {
		return fmt.Errorf("reading %s after line %d: %w", f.Path, line, e)
	}
	return nil
}

// Articles is an in-memory ArticleSource.
type Articles []*Article

func (as Articles) ForEach(p func(*Article) error) error {
	for _, a := range as {
		if e := p(a); e != nil {
			if errors.Is(e, ErrStop) {
				return nil
			}
			return e
		}
	}
	return nil
}

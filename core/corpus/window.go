package corpus

import (
	"errors"
	"fmt"
)

// Window is a span of consecutive tokens of one article.
type Window struct {
	Tokens []Token
}

// Words returns the words of w.
func (w *Window) Words() []string {
	words := make([]string, len(w.Tokens))
	for i, t := range w.Tokens {
		words[i] = t.Word
	}
	return words
}

// Center returns the token in the middle of w (the left one of the
// two middle tokens for even sizes).
func (w *Window) Center() Token {
	return w.Tokens[(len(w.Tokens)-1)/2]
}

// ArticleSource is anything that streams articles.
type ArticleSource interface {
	ForEach(p func(*Article) error) error
}

// Windows slides a window of Size tokens with stride 1 over every
// article.  Windows never cross article boundaries, so articles
// shorter than Size contribute nothing.  With OnlyLabeled, only
// windows whose center token is labeled are produced.
type Windows struct {
	Articles    ArticleSource
	Size        int
	OnlyLabeled bool
}

func LoadWindows(articles ArticleSource, size int, onlyLabeled bool) *Windows {
	return &Windows{Articles: articles, Size: size, OnlyLabeled: onlyLabeled}
}

// errStopped carries ErrStop out of the article iteration so that it
// is not confused with an ErrStop of an outer ForEach.
var errStopped = errors.New("windows stopped")

// ForEach calls p for each window.  The Tokens of the window share
// memory with the article and must not be modified.
func (w *Windows) ForEach(p func(*Window) error) error {
	if w.Size <= 0 {
		return fmt.Errorf("window size must be positive, got %d", w.Size)
	}
	e := w.Articles.ForEach(func(a *Article) error {
		for begin := 0; begin+w.Size <= len(a.Tokens); begin++ {
			win := &Window{Tokens: a.Tokens[begin : begin+w.Size]}
			if w.OnlyLabeled && !win.Center().Labeled() {
				continue
			}
			if e := p(win); e != nil {
				if errors.Is(e, ErrStop) {
					return errStopped
				}
				return e
			}
		}
		return nil
	})
	if errors.Is(e, errStopped) {
		return nil
	}
	return e
}

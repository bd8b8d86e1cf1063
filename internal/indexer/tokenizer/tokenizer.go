// Package tokenizer provides text analysis shared by the query parser and the
// index loader. It lower-cases input, splits on non-alphanumeric boundaries,
// removes stop-words, and applies the Snowball English stemmer.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Analyzer turns raw text into index terms.
type Analyzer interface {
	Analyze(text string) []string
}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// English is the default Analyzer.
type English struct{}

func (English) Analyze(text string) []string {
	tokens := Tokenize(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}

// Passthrough only lower-cases and splits; nothing is removed or stemmed.
type Passthrough struct{}

func (Passthrough) Analyze(text string) []string {
	return split(strings.ToLower(text))
}

// Tokenize breaks text into a slice of stemmed, lowercased Tokens with
// stop-words removed. Positions count surviving tokens only.
func Tokenize(text string) []Token {
	words := split(strings.ToLower(text))
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, word := range words {
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		stemmed := english.Stem(word, true)
		if stemmed == "" {
			continue
		}
		tokens = append(tokens, Token{
			Term:     stemmed,
			Position: pos,
		})
		pos++
	}
	return tokens
}

func split(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

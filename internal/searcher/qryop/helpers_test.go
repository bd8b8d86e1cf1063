package qryop

import (
	"context"
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/retrieval"
)

// doc describes one fixture document: token -> positions, per field.
type doc map[string]map[string][]int

// buildIndex lays out numDocs documents so that the internal docid of
// docs[k] is k. Fields are padded with "pad" tokens up to length.
func buildIndex(t *testing.T, numDocs, length int, docs map[int]doc) *index.MemoryIndex {
	t.Helper()
	m := index.NewMemoryIndex()
	for id := 0; id < numDocs; id++ {
		fields := map[string][]string{}
		d, ok := docs[id]
		if !ok {
			d = doc{"body": {"filler": {0}}}
		}
		for field, terms := range d {
			tokens := make([]string, length)
			for i := range tokens {
				tokens[i] = "pad"
			}
			for term, positions := range terms {
				for _, p := range positions {
					if p >= length {
						t.Fatalf("position %d beyond length %d", p, length)
					}
					tokens[p] = term
				}
			}
			fields[field] = tokens
		}
		if got := m.AddDocument(externalID(id), fields); got != id {
			t.Fatalf("docid = %d, want %d", got, id)
		}
	}
	return m
}

func externalID(id int) string {
	return "doc-" + string(rune('a'+id%26)) + string(rune('0'+id/26))
}

func newEval(kind retrieval.Kind, store index.Store) *Evaluator {
	return NewEvaluator(context.Background(), retrieval.Model{
		Kind:   kind,
		B:      0.75,
		K1:     1.2,
		K3:     0,
		Mu:     2500,
		Lambda: 0.4,
	}, store)
}

func docIDs(l *index.ScoreList) []int {
	out := make([]int, 0, l.Len())
	for _, e := range l.Entries {
		out = append(out, e.DocID)
	}
	return out
}

func postingDocs(l *index.InvertedList) []int {
	out := make([]int, 0, len(l.Postings))
	for _, p := range l.Postings {
		out = append(out, p.DocID)
	}
	return out
}

func scoreOf(t *testing.T, l *index.ScoreList, docID int) float64 {
	t.Helper()
	s, ok := l.Lookup(docID)
	if !ok {
		t.Fatalf("doc %d not in score list %v", docID, docIDs(l))
	}
	return s
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func term(tok string) *Term {
	return NewTerm(tok, "body")
}

func score(tok string) *Score {
	return NewScore(term(tok))
}

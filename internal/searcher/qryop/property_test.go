package qryop

import (
	"fmt"
	"math/rand/v2"
	"reflect"
	"slices"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/retrieval"
)

var randomTerms = []string{"a", "b", "c"}

// randomIndex scatters the terms a, b and c over numDocs body fields of the
// given length. Terms never share a position within a document.
func randomIndex(t *testing.T, seed uint64, numDocs, length int) *index.MemoryIndex {
	t.Helper()
	r := rand.New(rand.NewPCG(seed, 0))
	docs := make(map[int]doc, numDocs)
	for id := 0; id < numDocs; id++ {
		perm := r.Perm(length)
		body := map[string][]int{}
		next := 0
		for _, tok := range randomTerms {
			if r.IntN(10) < 3 {
				continue
			}
			n := 1 + r.IntN(4)
			body[tok] = perm[next : next+n]
			next += n
		}
		if len(body) == 0 {
			continue
		}
		docs[id] = doc{"body": body}
	}
	return buildIndex(t, numDocs, length, docs)
}

func positionsByDoc(l *index.InvertedList) map[int][]int {
	out := make(map[int][]int, len(l.Postings))
	for _, p := range l.Postings {
		out[p.DocID] = p.Positions
	}
	return out
}

func TestListOperatorsKeepOrderingInvariants(t *testing.T) {
	for seed := uint64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			store := randomIndex(t, seed, 40, 30)
			ev := newEval(retrieval.RankedBoolean, store)

			inputs := map[string]map[int][]int{}
			for _, tok := range randomTerms {
				l, err := term(tok).EvaluateList(ev)
				if err != nil {
					t.Fatal(err)
				}
				if err := l.Validate(); err != nil {
					t.Fatalf("term %s: %v", tok, err)
				}
				inputs[tok] = positionsByDoc(l)
			}

			syn, err := NewSyn(term("a"), term("b"), term("c")).EvaluateList(ev)
			if err != nil {
				t.Fatal(err)
			}
			if err := syn.Validate(); err != nil {
				t.Fatalf("#SYN: %v", err)
			}
			got := positionsByDoc(syn)
			for id := 0; id < 40; id++ {
				var want []int
				for _, tok := range randomTerms {
					want = append(want, inputs[tok][id]...)
				}
				slices.Sort(want)
				if !slices.Equal(got[id], want) {
					t.Errorf("#SYN doc %d = %v, want %v", id, got[id], want)
				}
			}

			for _, g := range []int{1, 2, 4, 8} {
				ops := []ListOperator{
					NewNear(g, term("a"), term("b")),
					NewNear(g, term("a"), term("b"), term("c")),
					NewWindow(g, term("c"), term("a")),
					NewWindow(g, term("a"), term("b"), term("c")),
				}
				for _, op := range ops {
					l, err := op.EvaluateList(ev)
					if err != nil {
						t.Fatalf("%s: %v", op, err)
					}
					if err := l.Validate(); err != nil {
						t.Errorf("%s: %v", op, err)
					}
					for _, p := range l.Postings {
						for _, tok := range randomTerms {
							if _, used := inputs[tok][p.DocID]; !used && opUses(op, tok) {
								t.Errorf("%s matched doc %d without %s", op, p.DocID, tok)
							}
						}
					}
					if near, ok := op.(*Near); ok {
						last := near.Args[len(near.Args)-1].(*Term).Token
						for _, p := range l.Postings {
							for _, pos := range p.Positions {
								if !slices.Contains(inputs[last][p.DocID], pos) {
									t.Errorf("%s doc %d emitted %d, not a position of %s", op, p.DocID, pos, last)
								}
							}
						}
					}
				}
			}
		})
	}
}

func opUses(op ListOperator, tok string) bool {
	var args []ListOperator
	switch o := op.(type) {
	case *Near:
		args = o.Args
	case *Window:
		args = o.Args
	}
	for _, a := range args {
		if a.(*Term).Token == tok {
			return true
		}
	}
	return false
}

func TestProximityMatchesExactlyWithinDistance(t *testing.T) {
	const base = 12
	for _, g := range []int{1, 2, 3, 5} {
		for d := -g - 2; d <= g+2; d++ {
			t.Run(fmt.Sprintf("g=%d,d=%d", g, d), func(t *testing.T) {
				wantNear := d > 0 && d <= g
				wantWindow := d < g && -d < g

				if got := len(nearPositions([]int{base}, []int{base + d}, g)) > 0; got != wantNear {
					t.Errorf("nearPositions matched = %v, want %v", got, wantNear)
				}
				if got := len(windowPositions([]int{base}, []int{base + d}, g)) > 0; got != wantWindow {
					t.Errorf("windowPositions matched = %v, want %v", got, wantWindow)
				}
				if d == 0 {
					return
				}

				store := buildIndex(t, 1, 30, map[int]doc{
					0: {"body": {"x": {base}, "y": {base + d}}},
				})
				ev := newEval(retrieval.RankedBoolean, store)
				near, err := NewNear(g, term("x"), term("y")).EvaluateList(ev)
				if err != nil {
					t.Fatal(err)
				}
				if got := len(near.Postings) > 0; got != wantNear {
					t.Errorf("#NEAR/%d matched = %v, want %v", g, got, wantNear)
				}
				window, err := NewWindow(g, term("x"), term("y")).EvaluateList(ev)
				if err != nil {
					t.Fatal(err)
				}
				if got := len(window.Postings) > 0; got != wantWindow {
					t.Errorf("#WINDOW/%d matched = %v, want %v", g, got, wantWindow)
				}
			})
		}
	}
}

func permutations(n int) [][]int {
	if n == 1 {
		return [][]int{{0}}
	}
	var out [][]int
	for _, p := range permutations(n - 1) {
		for i := 0; i <= len(p); i++ {
			q := make([]int, 0, n)
			q = append(q, p[:i]...)
			q = append(q, n-1)
			q = append(q, p[i:]...)
			out = append(out, q)
		}
	}
	return out
}

func TestCombinatorsIgnoreArgumentOrder(t *testing.T) {
	weights := []float64{1, 2, 3}
	tests := []struct {
		name  string
		kind  retrieval.Kind
		build func(args []ScoreOperator, w []float64) ScoreOperator
	}{
		{"indri and", retrieval.Indri, func(a []ScoreOperator, _ []float64) ScoreOperator { return NewAnd(a...) }},
		{"indri or", retrieval.Indri, func(a []ScoreOperator, _ []float64) ScoreOperator { return NewOr(a...) }},
		{"indri wsum", retrieval.Indri, func(a []ScoreOperator, w []float64) ScoreOperator { return NewWSum(weighted(a, w)...) }},
		{"indri wand", retrieval.Indri, func(a []ScoreOperator, w []float64) ScoreOperator { return NewWAnd(weighted(a, w)...) }},
		{"bm25 sum", retrieval.BM25, func(a []ScoreOperator, _ []float64) ScoreOperator { return NewSum(a...) }},
		{"ranked and", retrieval.RankedBoolean, func(a []ScoreOperator, _ []float64) ScoreOperator { return NewAnd(a...) }},
		{"ranked or", retrieval.RankedBoolean, func(a []ScoreOperator, _ []float64) ScoreOperator { return NewOr(a...) }},
		{"cosine and", retrieval.CosineSimilarity, func(a []ScoreOperator, _ []float64) ScoreOperator { return NewAnd(a...) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := uint64(1); seed <= 5; seed++ {
				store := randomIndex(t, seed, 30, 25)
				var want *index.ScoreList
				for _, perm := range permutations(len(randomTerms)) {
					args := make([]ScoreOperator, len(perm))
					w := make([]float64, len(perm))
					for i, k := range perm {
						args[i] = score(randomTerms[k])
						w[i] = weights[k]
					}
					root := tt.build(args, w)
					got, err := root.EvaluateScores(newEval(tt.kind, store))
					if err != nil {
						t.Fatalf("%s: %v", root, err)
					}
					if want == nil {
						want = got
						continue
					}
					gotIDs, wantIDs := docIDs(got), docIDs(want)
					slices.Sort(gotIDs)
					slices.Sort(wantIDs)
					if !reflect.DeepEqual(gotIDs, wantIDs) {
						t.Fatalf("seed %d %s: docs %v, want %v", seed, root, gotIDs, wantIDs)
					}
					for _, e := range want.Entries {
						if s := scoreOf(t, got, e.DocID); !approx(s, e.Score) {
							t.Errorf("seed %d %s: doc %d = %v, want %v", seed, root, e.DocID, s, e.Score)
						}
					}
				}
			}
		})
	}
}

func weighted(args []ScoreOperator, w []float64) []Weighted {
	out := make([]Weighted, len(args))
	for i, a := range args {
		out[i] = Weighted{Op: a, Weight: w[i]}
	}
	return out
}

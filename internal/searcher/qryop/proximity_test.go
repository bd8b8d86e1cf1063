package qryop

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/retrieval"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

func TestNearPositions(t *testing.T) {
	tests := []struct {
		name      string
		base, cmp []int
		g         int
		want      []int
	}{
		{"gap within bound", []int{5}, []int{8}, 3, []int{8}},
		{"gap beyond bound", []int{5}, []int{8}, 2, nil},
		{"order matters", []int{8}, []int{5}, 3, nil},
		{"equal positions never match", []int{4}, []int{4}, 5, nil},
		{"multiple matches advance both", []int{5, 9}, []int{6, 12}, 3, []int{6, 12}},
		{"cmp behind base skipped", []int{10}, []int{2, 11}, 1, []int{11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nearPositions(tt.base, tt.cmp, tt.g)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("nearPositions(%v, %v, %d) = %v, want %v", tt.base, tt.cmp, tt.g, got, tt.want)
			}
		})
	}
}

func TestWindowPositions(t *testing.T) {
	tests := []struct {
		name      string
		base, cmp []int
		g         int
		want      []int
	}{
		{"inside window", []int{5}, []int{8}, 4, []int{8}},
		{"window is exclusive", []int{5}, []int{8}, 3, nil},
		{"any order", []int{8}, []int{5}, 4, []int{8}},
		{"same position", []int{3}, []int{3}, 1, []int{3}},
		{"emits later position", []int{1, 20}, []int{2, 18}, 3, []int{2, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := windowPositions(tt.base, tt.cmp, tt.g)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("windowPositions(%v, %v, %d) = %v, want %v", tt.base, tt.cmp, tt.g, got, tt.want)
			}
		})
	}
}

func TestNearGapFlipsMatch(t *testing.T) {
	store := buildIndex(t, 3, 12, map[int]doc{
		1: {"body": {"heart": {5}, "rate": {8}}},
		2: {"body": {"heart": {2}, "rate": {9}}},
	})
	ev := newEval(retrieval.RankedBoolean, store)

	near3, err := NewNear(3, term("heart"), term("rate")).EvaluateList(ev)
	if err != nil {
		t.Fatalf("near/3: %v", err)
	}
	if got := postingDocs(near3); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("near/3 docs = %v, want [1]", got)
	}
	if err := near3.Validate(); err != nil {
		t.Errorf("near/3 list invalid: %v", err)
	}
	if near3.Postings[0].Positions[0] != 8 {
		t.Errorf("near/3 position = %v, want [8]", near3.Postings[0].Positions)
	}

	near2, err := NewNear(2, term("heart"), term("rate")).EvaluateList(ev)
	if err != nil {
		t.Fatalf("near/2: %v", err)
	}
	if len(near2.Postings) != 0 || near2.DF != 0 || near2.CTF != 0 {
		t.Errorf("near/2 = %+v, want empty", near2)
	}
}

func TestNearGapMonotone(t *testing.T) {
	store := buildIndex(t, 4, 20, map[int]doc{
		0: {"body": {"a": {1, 9}, "b": {3, 15}}},
		1: {"body": {"a": {4}, "b": {5}}},
		2: {"body": {"a": {2}, "b": {19}}},
		3: {"body": {"b": {1}, "a": {6}}},
	})
	ev := newEval(retrieval.RankedBoolean, store)
	prev := map[int]bool{}
	for g := 1; g <= 20; g++ {
		l, err := NewNear(g, term("a"), term("b")).EvaluateList(ev)
		if err != nil {
			t.Fatal(err)
		}
		cur := map[int]bool{}
		for _, d := range postingDocs(l) {
			cur[d] = true
		}
		for d := range prev {
			if !cur[d] {
				t.Errorf("doc %d matched at g=%d but not at g=%d", d, g-1, g)
			}
		}
		prev = cur
	}
	if prev[3] {
		t.Error("doc 3 has b before a and must never match #NEAR(a b)")
	}
}

func TestWindowMatchesEitherOrder(t *testing.T) {
	store := buildIndex(t, 2, 12, map[int]doc{
		0: {"body": {"heart": {8}, "rate": {5}}},
		1: {"body": {"heart": {0}, "rate": {11}}},
	})
	ev := newEval(retrieval.RankedBoolean, store)
	l, err := NewWindow(4, term("heart"), term("rate")).EvaluateList(ev)
	if err != nil {
		t.Fatal(err)
	}
	if got := postingDocs(l); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("window/4 docs = %v, want [0]", got)
	}
}

func TestProximityFold(t *testing.T) {
	store := buildIndex(t, 2, 12, map[int]doc{
		0: {"body": {"a": {1}, "b": {2}, "c": {3}}},
		1: {"body": {"a": {1}, "b": {2}, "c": {9}}},
	})
	ev := newEval(retrieval.RankedBoolean, store)
	l, err := NewNear(1, term("a"), term("b"), term("c")).EvaluateList(ev)
	if err != nil {
		t.Fatal(err)
	}
	if got := postingDocs(l); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("#NEAR/1(a b c) docs = %v, want [0]", got)
	}
	if l.Postings[0].Positions[0] != 3 {
		t.Errorf("position = %v, want [3]", l.Postings[0].Positions)
	}
	if ev.Stats.ProximityMatches != 1 {
		t.Errorf("ProximityMatches = %d, want 1", ev.Stats.ProximityMatches)
	}
}

func TestProximityNeedsTwoArgs(t *testing.T) {
	store := buildIndex(t, 1, 4, nil)
	ev := newEval(retrieval.RankedBoolean, store)
	_, err := NewNear(2, term("a")).EvaluateList(ev)
	if !errors.Is(err, apperrors.ErrEmptyOperand) {
		t.Errorf("err = %v, want ErrEmptyOperand", err)
	}
	_, err = NewWindow(2).EvaluateList(ev)
	if !errors.Is(err, apperrors.ErrEmptyOperand) {
		t.Errorf("err = %v, want ErrEmptyOperand", err)
	}
}

func TestSynUnionsPositions(t *testing.T) {
	store := buildIndex(t, 3, 10, map[int]doc{
		0: {"body": {"car": {1, 5}, "auto": {3, 5}}},
		1: {"body": {"auto": {2}}},
		2: {"body": {"car": {0}}},
	})
	ev := newEval(retrieval.RankedBoolean, store)
	l, err := NewSyn(term("car"), term("auto"), term("missing")).EvaluateList(ev)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Validate(); err != nil {
		t.Fatalf("syn list invalid: %v", err)
	}
	if got := postingDocs(l); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("docs = %v", got)
	}
	if got := l.Postings[0].Positions; !reflect.DeepEqual(got, []int{1, 3, 5}) {
		t.Errorf("doc 0 positions = %v, want [1 3 5]", got)
	}
	if l.DF != 3 || l.CTF != 5 {
		t.Errorf("df/ctf = %d/%d, want 3/5", l.DF, l.CTF)
	}

	if _, err := NewSyn().EvaluateList(ev); !errors.Is(err, apperrors.ErrEmptyOperand) {
		t.Errorf("empty #SYN err = %v", err)
	}
}

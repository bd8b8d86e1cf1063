package index

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

func TestInvertedListValidate(t *testing.T) {
	tests := []struct {
		name    string
		list    InvertedList
		wantErr bool
	}{
		{
			name: "valid",
			list: InvertedList{DF: 2, CTF: 3, Postings: []Posting{
				NewPosting(1, []int{2, 9}), NewPosting(4, []int{0}),
			}},
		},
		{
			name:    "df mismatch",
			list:    InvertedList{DF: 3, CTF: 1, Postings: []Posting{NewPosting(1, []int{2})}},
			wantErr: true,
		},
		{
			name: "docids not ascending",
			list: InvertedList{DF: 2, CTF: 2, Postings: []Posting{
				NewPosting(4, []int{1}), NewPosting(4, []int{2}),
			}},
			wantErr: true,
		},
		{
			name:    "positions not ascending",
			list:    InvertedList{DF: 1, CTF: 2, Postings: []Posting{NewPosting(1, []int{5, 5})}},
			wantErr: true,
		},
		{
			name:    "tf mismatch",
			list:    InvertedList{DF: 1, CTF: 2, Postings: []Posting{{DocID: 1, TF: 2, Positions: []int{3}}}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.list.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInvertedListContains(t *testing.T) {
	l := NewInvertedList("body")
	for _, id := range []int{2, 5, 9, 14} {
		l.AppendPosting(id, []int{0})
	}
	for _, id := range []int{2, 5, 9, 14} {
		if !l.Contains(id) {
			t.Errorf("Contains(%d) = false", id)
		}
	}
	for _, id := range []int{0, 3, 15} {
		if l.Contains(id) {
			t.Errorf("Contains(%d) = true", id)
		}
	}
}

func TestScoreListDedupAndLookup(t *testing.T) {
	s := NewScoreList(4)
	s.Add(7, 1.0)
	s.Add(3, 2.0)
	s.Add(7, 4.0)
	s.Dedup()
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if got, ok := s.Lookup(7); !ok || got != 4.0 {
		t.Errorf("Lookup(7) = %v, %v; want 4, true", got, ok)
	}
	if _, ok := s.Lookup(5); ok {
		t.Error("Lookup(5) should miss")
	}
}

func TestMemoryIndex(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryIndex()
	d0 := m.AddDocument("clueweb-0", map[string][]string{
		"body":  {"heart", "rate", "heart"},
		"title": {"heart"},
	})
	d1 := m.AddDocument("clueweb-1", map[string][]string{
		"body": {"rate", "monitor"},
	})
	if d0 != 0 || d1 != 1 {
		t.Fatalf("docids = %d, %d", d0, d1)
	}

	list, err := m.FetchPostings(ctx, "heart", "body")
	if err != nil {
		t.Fatalf("FetchPostings: %v", err)
	}
	if err := list.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if list.DF != 1 || list.CTF != 2 || list.Postings[0].Positions[1] != 2 {
		t.Errorf("heart.body = %+v", list)
	}

	rate, _ := m.FetchPostings(ctx, "rate", "body")
	if rate.DF != 2 || rate.Postings[0].DocID != 0 || rate.Postings[1].DocID != 1 {
		t.Errorf("rate.body = %+v", rate)
	}

	missing, err := m.FetchPostings(ctx, "absent", "body")
	if err != nil || missing.DF != 0 || len(missing.Postings) != 0 {
		t.Errorf("absent term = %+v, %v", missing, err)
	}

	if n, _ := m.TotalDocumentCount(ctx); n != 2 {
		t.Errorf("TotalDocumentCount = %d", n)
	}
	if total, _ := m.FieldTotalLength(ctx, "body"); total != 5 {
		t.Errorf("FieldTotalLength(body) = %d", total)
	}
	if avg, _ := m.FieldAverageDocLength(ctx, "title"); avg != 1 {
		t.Errorf("FieldAverageDocLength(title) = %g, want 1 (one doc has a title)", avg)
	}
	if l, _ := m.DocumentLength(ctx, "body", 1); l != 2 {
		t.Errorf("DocumentLength(body,1) = %d", l)
	}
	if id, _ := m.ExternalID(ctx, 1); id != "clueweb-1" {
		t.Errorf("ExternalID(1) = %q", id)
	}
	_, err = m.ExternalID(ctx, 9)
	if !errors.Is(err, apperrors.ErrIndexAccess) {
		t.Errorf("ExternalID(9) error = %v, want ErrIndexAccess", err)
	}
}

func TestSnapshotOrdering(t *testing.T) {
	m := NewMemoryIndex()
	m.AddDocument("a", map[string][]string{"title": {"zeta"}, "body": {"beta", "alpha"}})
	snap := m.Snapshot()
	want := []struct{ field, term string }{
		{"body", "alpha"}, {"body", "beta"}, {"title", "zeta"},
	}
	if len(snap.Terms) != len(want) {
		t.Fatalf("got %d terms", len(snap.Terms))
	}
	for i, w := range want {
		if snap.Terms[i].Field != w.field || snap.Terms[i].Term != w.term {
			t.Errorf("entry %d = %s.%s, want %s.%s", i, snap.Terms[i].Term, snap.Terms[i].Field, w.term, w.field)
		}
	}
	if len(snap.Docs) != 1 || snap.Docs[0].Lengths["body"] != 2 {
		t.Errorf("docs = %+v", snap.Docs)
	}
}

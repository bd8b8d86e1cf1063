package docstore

import (
	"context"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

type fakeTable struct {
	rows     map[int]index.DocEntry
	failures int
	calls    int
}

func (f *fakeTable) load(_ context.Context, docID int) (index.DocEntry, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return index.DocEntry{}, errors.New("connection reset")
	}
	row, ok := f.rows[docID]
	if !ok {
		return row, apperrors.ErrDocumentNotFound
	}
	return row, nil
}

func table() *fakeTable {
	return &fakeTable{rows: map[int]index.DocEntry{
		0: {ExternalID: "clueweb-0001", Lengths: map[string]int{"body": 120, "title": 6}},
		1: {ExternalID: "clueweb-0002", Lengths: map[string]int{"body": 80}},
	}}
}

func TestLookupsAreCached(t *testing.T) {
	f := table()
	s := newStore(f.load, nil)
	ctx := context.Background()

	id, err := s.ExternalID(ctx, 0)
	if err != nil || id != "clueweb-0001" {
		t.Fatalf("ExternalID = %q, %v", id, err)
	}
	n, err := s.DocumentLength(ctx, "title", 0)
	if err != nil || n != 6 {
		t.Fatalf("DocumentLength = %d, %v", n, err)
	}
	if n, _ := s.DocumentLength(ctx, "inlink", 1); n != 0 {
		t.Errorf("missing field length = %d, want 0", n)
	}
	if f.calls != 2 {
		t.Errorf("table read %d times, want 2", f.calls)
	}
}

func TestTransientFailuresAreRetried(t *testing.T) {
	f := table()
	f.failures = 2
	s := newStore(f.load, nil)
	id, err := s.ExternalID(context.Background(), 1)
	if err != nil || id != "clueweb-0002" {
		t.Fatalf("ExternalID = %q, %v", id, err)
	}
	if f.calls != 3 {
		t.Errorf("calls = %d, want 3", f.calls)
	}
}

func TestErrorsAreIndexAccess(t *testing.T) {
	t.Run("missing document", func(t *testing.T) {
		f := table()
		s := newStore(f.load, nil)
		_, err := s.ExternalID(context.Background(), 7)
		if !errors.Is(err, apperrors.ErrIndexAccess) || !errors.Is(err, apperrors.ErrDocumentNotFound) {
			t.Errorf("err = %v", err)
		}
		if f.calls != 1 {
			t.Errorf("missing document retried: %d calls", f.calls)
		}
		if !apperrors.IsFatal(err) {
			t.Error("missing document must be fatal")
		}
	})
	t.Run("store down", func(t *testing.T) {
		f := table()
		f.failures = 100
		s := newStore(f.load, nil)
		_, err := s.DocumentLength(context.Background(), "body", 0)
		if !errors.Is(err, apperrors.ErrIndexAccess) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestMapErrorKeepsExistingWrap(t *testing.T) {
	inner := errors.Join(apperrors.ErrIndexAccess, errors.New("x"))
	if got := mapError(inner, 3); got != inner {
		t.Errorf("mapError rewrapped an index access error: %v", got)
	}
}

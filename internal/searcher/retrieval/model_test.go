package retrieval

import (
	"errors"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

func TestFromName(t *testing.T) {
	p := Params{NumDocs: 500, B: 0.75, K1: 1.2, K3: 0, Mu: 2500, Lambda: 0.4}
	tests := []struct {
		name      string
		want      Kind
		defaultOp string
	}{
		{"UnrankedBoolean", UnrankedBoolean, "or"},
		{"rankedboolean", RankedBoolean, "or"},
		{"TfIdf", TfIdf, "or"},
		{"CosineSimilarity", CosineSimilarity, "or"},
		{"FieldWeighted", FieldWeighted, "or"},
		{"BM25", BM25, "sum"},
		{" Indri ", Indri, "and"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := FromName(tt.name, p)
			if err != nil {
				t.Fatalf("FromName: %v", err)
			}
			if m.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", m.Kind, tt.want)
			}
			if got := m.DefaultOperator(); got != tt.defaultOp {
				t.Errorf("DefaultOperator = %q, want %q", got, tt.defaultOp)
			}
		})
	}
}

func TestFromNameParams(t *testing.T) {
	p := Params{NumDocs: 500, B: 0.5, K1: 1.5, K3: 3, Mu: 1000, Lambda: 0.2}
	bm25, _ := FromName("bm25", p)
	if bm25.B != 0.5 || bm25.K1 != 1.5 || bm25.K3 != 3 || bm25.Mu != 0 {
		t.Errorf("bm25 = %+v", bm25)
	}
	indri, _ := FromName("indri", p)
	if indri.Mu != 1000 || indri.Lambda != 0.2 || indri.B != 0 {
		t.Errorf("indri = %+v", indri)
	}
	tfidf, _ := FromName("tfidf", p)
	if tfidf.NumDocs != 500 {
		t.Errorf("tfidf NumDocs = %d", tfidf.NumDocs)
	}
	if bm25.String() != "BM25{b=0.5,k1=1.5,k3=3}" {
		t.Errorf("String() = %q", bm25.String())
	}
}

func TestFromNameUnknown(t *testing.T) {
	_, err := FromName("pagerank", Params{})
	if !errors.Is(err, apperrors.ErrUnknownModel) {
		t.Errorf("err = %v, want ErrUnknownModel", err)
	}
}

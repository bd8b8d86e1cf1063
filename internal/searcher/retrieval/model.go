// Package retrieval defines the closed set of retrieval models a query can be
// evaluated under, together with their parameters.
package retrieval

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

type Kind int

const (
	UnrankedBoolean Kind = iota
	RankedBoolean
	TfIdf
	CosineSimilarity
	FieldWeighted
	BM25
	Indri
)

func (k Kind) String() string {
	switch k {
	case UnrankedBoolean:
		return "UnrankedBoolean"
	case RankedBoolean:
		return "RankedBoolean"
	case TfIdf:
		return "TfIdf"
	case CosineSimilarity:
		return "CosineSimilarity"
	case FieldWeighted:
		return "FieldWeighted"
	case BM25:
		return "BM25"
	case Indri:
		return "Indri"
	default:
		return "unknown"
	}
}

// Model is a retrieval model and its parameters. Only the parameters of
// the selected Kind are meaningful. NumDocs, when zero, is taken from the
// index at evaluation time.
type Model struct {
	Kind    Kind
	NumDocs int
	B       float64
	K1      float64
	K3      float64
	Mu      float64
	Lambda  float64
}

// Params carries every tunable a model might need; FromName picks the
// ones relevant to the selected model.
type Params struct {
	NumDocs int
	B       float64
	K1      float64
	K3      float64
	Mu      float64
	Lambda  float64
}

var names = map[string]Kind{
	"unrankedboolean":        UnrankedBoolean,
	"rankedboolean":          RankedBoolean,
	"tfidf":                  TfIdf,
	"tfidfrankedboolean":     TfIdf,
	"cosinesimilarity":       CosineSimilarity,
	"cosine":                 CosineSimilarity,
	"cosinesimrankedboolean": CosineSimilarity,
	"fieldweighted":          FieldWeighted,
	"fieldrankedboolean":     FieldWeighted,
	"bm25":                   BM25,
	"indri":                  Indri,
}

// FromName selects a model by its configured name, ignoring case.
func FromName(name string, p Params) (Model, error) {
	kind, ok := names[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Model{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownModel, name)
	}
	m := Model{Kind: kind}
	switch kind {
	case TfIdf, CosineSimilarity, FieldWeighted:
		m.NumDocs = p.NumDocs
	case BM25:
		m.NumDocs = p.NumDocs
		m.B, m.K1, m.K3 = p.B, p.K1, p.K3
	case Indri:
		m.Mu, m.Lambda = p.Mu, p.Lambda
	}
	return m, nil
}

// Ranked reports whether scores carry ranking information.
func (m Model) Ranked() bool {
	return m.Kind != UnrankedBoolean
}

// DefaultOperator is the combinator a bare list of query terms is wrapped
// in: "sum" for BM25, "and" for Indri and "or" otherwise.
func (m Model) DefaultOperator() string {
	switch m.Kind {
	case BM25:
		return "sum"
	case Indri:
		return "and"
	default:
		return "or"
	}
}

// String renders the model with its parameters; it is stable and used in
// cache keys.
func (m Model) String() string {
	switch m.Kind {
	case BM25:
		return fmt.Sprintf("BM25{b=%g,k1=%g,k3=%g}", m.B, m.K1, m.K3)
	case Indri:
		return fmt.Sprintf("Indri{mu=%g,lambda=%g}", m.Mu, m.Lambda)
	default:
		return m.Kind.String()
	}
}

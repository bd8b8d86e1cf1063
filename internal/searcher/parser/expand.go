package parser

import (
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/qryop"
)

// DefaultFieldWeights spreads a body term over the document representations
// used by the Indri multi-field rewrite.
var DefaultFieldWeights = map[string]float64{
	"url":    0.1,
	"body":   0.4,
	"inlink": 0.3,
	"title":  0.2,
}

// ExpandFields rewrites every argument of the root combinator that scores a
// body-field list into a #WSUM over one copy of that list per field in
// weights. Lists naming any other field are left alone, as is a root that
// is not a combinator. Field order follows index.Fields.
func ExpandFields(root qryop.ScoreOperator, weights map[string]float64) qryop.ScoreOperator {
	if len(weights) == 0 {
		weights = DefaultFieldWeights
	}
	expand := func(op qryop.ScoreOperator) qryop.ScoreOperator {
		s, ok := op.(*qryop.Score)
		if !ok || !bodyOnly(s.Arg) {
			return op
		}
		var args []qryop.Weighted
		for _, field := range index.Fields {
			w, ok := weights[field]
			if !ok || w <= 0 {
				continue
			}
			args = append(args, qryop.Weighted{Op: qryop.NewScore(withField(s.Arg, field)), Weight: w})
		}
		if len(args) == 0 {
			return op
		}
		return qryop.NewWSum(args...)
	}

	switch r := root.(type) {
	case *qryop.And:
		return qryop.NewAnd(mapScores(r.Args, expand)...)
	case *qryop.Or:
		return qryop.NewOr(mapScores(r.Args, expand)...)
	case *qryop.Sum:
		return qryop.NewSum(mapScores(r.Args, expand)...)
	case *qryop.WSum:
		return qryop.NewWSum(mapWeighted(r.Args, expand)...)
	case *qryop.WAnd:
		return qryop.NewWAnd(mapWeighted(r.Args, expand)...)
	case *qryop.Score:
		return expand(r)
	}
	return root
}

func mapScores(args []qryop.ScoreOperator, fn func(qryop.ScoreOperator) qryop.ScoreOperator) []qryop.ScoreOperator {
	out := make([]qryop.ScoreOperator, len(args))
	for i, a := range args {
		out[i] = fn(a)
	}
	return out
}

func mapWeighted(args []qryop.Weighted, fn func(qryop.ScoreOperator) qryop.ScoreOperator) []qryop.Weighted {
	out := make([]qryop.Weighted, len(args))
	for i, a := range args {
		out[i] = qryop.Weighted{Op: fn(a.Op), Weight: a.Weight}
	}
	return out
}

func bodyOnly(op qryop.ListOperator) bool {
	switch l := op.(type) {
	case *qryop.Term:
		return l.Field == index.DefaultField
	case *qryop.Syn:
		return allBody(l.Args)
	case *qryop.Near:
		return allBody(l.Args)
	case *qryop.Window:
		return allBody(l.Args)
	}
	return false
}

func allBody(args []qryop.ListOperator) bool {
	if len(args) == 0 {
		return false
	}
	for _, a := range args {
		if !bodyOnly(a) {
			return false
		}
	}
	return true
}

// withField copies a list operator with every term moved to field.
func withField(op qryop.ListOperator, field string) qryop.ListOperator {
	switch l := op.(type) {
	case *qryop.Term:
		t := qryop.NewTerm(l.Token, field)
		t.Exact = l.Exact
		return t
	case *qryop.Syn:
		return qryop.NewSyn(mapLists(l.Args, field)...)
	case *qryop.Near:
		return qryop.NewNear(l.Distance, mapLists(l.Args, field)...)
	case *qryop.Window:
		return qryop.NewWindow(l.Size, mapLists(l.Args, field)...)
	}
	return op
}

func mapLists(args []qryop.ListOperator, field string) []qryop.ListOperator {
	out := make([]qryop.ListOperator, len(args))
	for i, a := range args {
		out[i] = withField(a, field)
	}
	return out
}

package qryop

import "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"

// ExactPrefix marks a term written as an index token. The parser takes such
// a term verbatim instead of analyzing it again.
const ExactPrefix = "="

// Term fetches the posting list of an analyzed token in one field. Exact
// terms render with ExactPrefix so that String output parses back to the
// same token.
type Term struct {
	Token string
	Field string
	Exact bool
}

func NewTerm(token, field string) *Term {
	if field == "" {
		field = index.DefaultField
	}
	return &Term{Token: token, Field: field}
}

func (t *Term) Evaluate(ev *Evaluator) (Result, error) {
	list, err := t.EvaluateList(ev)
	return Result{List: list}, err
}

func (t *Term) EvaluateList(ev *Evaluator) (*index.InvertedList, error) {
	if err := ev.enter(); err != nil {
		return nil, err
	}
	list, err := ev.Store.FetchPostings(ev.ctx, t.Token, t.Field)
	if err != nil {
		return nil, indexErr(err, "postings of %s", t)
	}
	if list == nil {
		list = index.NewInvertedList(t.Field)
	}
	ev.Stats.PostingsFetched += len(list.Postings)
	return list, nil
}

func (t *Term) String() string {
	if t.Exact {
		return ExactPrefix + t.Token + "." + t.Field
	}
	return t.Token + "." + t.Field
}

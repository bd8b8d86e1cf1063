// Package qryop implements the query operator tree and its document-at-a-time
// evaluation. Operators either produce positional inverted lists (Term, Syn,
// Near, Window) or per-document score lists (Score and the combinators).
// How each operator scores depends on the retrieval model of the Evaluator
// it runs under.
package qryop

import (
	"context"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/retrieval"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

// Result holds exactly one of List or Scores.
type Result struct {
	List   *index.InvertedList
	Scores *index.ScoreList
}

type Operator interface {
	Evaluate(ev *Evaluator) (Result, error)
	// String renders the operator in query syntax; parsing the output
	// yields an equivalent tree.
	String() string
}

// ListOperator produces a positional inverted list.
type ListOperator interface {
	Operator
	EvaluateList(ev *Evaluator) (*index.InvertedList, error)
}

// ScoreOperator produces a score list and can score documents it did not
// match.
type ScoreOperator interface {
	Operator
	EvaluateScores(ev *Evaluator) (*index.ScoreList, error)
	DefaultScore(ev *Evaluator, docID int) (float64, error)
}

// Weighted pairs an argument of #WSUM or #WAND with its weight.
type Weighted struct {
	Op     ScoreOperator
	Weight float64
}

// Stats counts work done during one evaluation.
type Stats struct {
	NodesEvaluated   int `json:"nodes_evaluated"`
	PostingsFetched  int `json:"postings_fetched"`
	ProximityMatches int `json:"proximity_matches"`
}

type listStats struct {
	field string
	df    int
	ctf   int
}

// Evaluator carries everything one query evaluation needs. It is not safe
// for concurrent use; create one per query.
type Evaluator struct {
	ctx   context.Context
	Model retrieval.Model
	Store index.Store
	Stats Stats

	numDocs     int
	fieldTotals map[string]int64
	fieldAvgs   map[string]float64
	scoreStats  map[*Score]listStats
}

func NewEvaluator(ctx context.Context, model retrieval.Model, store index.Store) *Evaluator {
	return &Evaluator{
		ctx:         ctx,
		Model:       model,
		Store:       store,
		numDocs:     model.NumDocs,
		fieldTotals: make(map[string]int64),
		fieldAvgs:   make(map[string]float64),
		scoreStats:  make(map[*Score]listStats),
	}
}

func (ev *Evaluator) Context() context.Context {
	return ev.ctx
}

// Run evaluates the root of a query tree into a score list.
func (ev *Evaluator) Run(root ScoreOperator) (*index.ScoreList, error) {
	scores, err := root.EvaluateScores(ev)
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// NumDocs is the collection size: the model's NumDocs when set, the
// index's document count otherwise.
func (ev *Evaluator) NumDocs() (int, error) {
	if ev.numDocs > 0 {
		return ev.numDocs, nil
	}
	n, err := ev.Store.TotalDocumentCount(ev.ctx)
	if err != nil {
		return 0, indexErr(err, "document count")
	}
	ev.numDocs = n
	return n, nil
}

func (ev *Evaluator) fieldTotal(field string) (int64, error) {
	if v, ok := ev.fieldTotals[field]; ok {
		return v, nil
	}
	v, err := ev.Store.FieldTotalLength(ev.ctx, field)
	if err != nil {
		return 0, indexErr(err, "total length of field %s", field)
	}
	ev.fieldTotals[field] = v
	return v, nil
}

func (ev *Evaluator) fieldAvg(field string) (float64, error) {
	if v, ok := ev.fieldAvgs[field]; ok {
		return v, nil
	}
	v, err := ev.Store.FieldAverageDocLength(ev.ctx, field)
	if err != nil {
		return 0, indexErr(err, "average length of field %s", field)
	}
	ev.fieldAvgs[field] = v
	return v, nil
}

func (ev *Evaluator) docLength(field string, docID int) (int, error) {
	n, err := ev.Store.DocumentLength(ev.ctx, field, docID)
	if err != nil {
		return 0, indexErr(err, "length of doc %d field %s", docID, field)
	}
	return n, nil
}

func (ev *Evaluator) enter() error {
	ev.Stats.NodesEvaluated++
	return ev.ctx.Err()
}

// indexErr marks a store failure as an index access error unless the store
// already did. Cancellation is not a store failure.
func indexErr(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, apperrors.ErrIndexAccess) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%w: %s: %w", apperrors.ErrIndexAccess, msg, err)
}

func emptyOperand(op string) error {
	return fmt.Errorf("%s: %w", op, apperrors.ErrEmptyOperand)
}

func unsupported(op string, ev *Evaluator) error {
	return apperrors.Unsupported(op, ev.Model.Kind.String())
}

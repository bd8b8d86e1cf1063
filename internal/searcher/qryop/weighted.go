package qryop

import (
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/retrieval"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

// WSum is the Indri weighted mean of argument beliefs.
type WSum struct {
	Args []Weighted
}

func NewWSum(args ...Weighted) *WSum {
	return &WSum{Args: args}
}

func (w *WSum) Evaluate(ev *Evaluator) (Result, error) {
	scores, err := w.EvaluateScores(ev)
	return Result{Scores: scores}, err
}

func (w *WSum) EvaluateScores(ev *Evaluator) (*index.ScoreList, error) {
	return evaluateWeighted(ev, "#WSUM", w.Args, weightedMean)
}

func (w *WSum) DefaultScore(ev *Evaluator, docID int) (float64, error) {
	return defaultWeighted(ev, w.Args, docID, weightedMean)
}

func (w *WSum) String() string {
	return render("#WSUM", weightedArgs(w.Args))
}

// WAnd is the Indri weighted geometric mean of argument beliefs.
type WAnd struct {
	Args []Weighted
}

func NewWAnd(args ...Weighted) *WAnd {
	return &WAnd{Args: args}
}

func (w *WAnd) Evaluate(ev *Evaluator) (Result, error) {
	scores, err := w.EvaluateScores(ev)
	return Result{Scores: scores}, err
}

func (w *WAnd) EvaluateScores(ev *Evaluator) (*index.ScoreList, error) {
	return evaluateWeighted(ev, "#WAND", w.Args, weightedGeometric)
}

func (w *WAnd) DefaultScore(ev *Evaluator, docID int) (float64, error) {
	return defaultWeighted(ev, w.Args, docID, weightedGeometric)
}

func (w *WAnd) String() string {
	return render("#WAND", weightedArgs(w.Args))
}

type combineFunc func(scores, norm []float64) float64

func weightedMean(scores, norm []float64) float64 {
	total := 0.0
	for i, s := range scores {
		total += norm[i] * s
	}
	return total
}

func weightedGeometric(scores, norm []float64) float64 {
	p := 1.0
	for i, s := range scores {
		p *= math.Pow(s, norm[i])
	}
	return p
}

// normalizedWeights returns w_i / sum(w).
func normalizedWeights(name string, args []Weighted) ([]float64, error) {
	total := 0.0
	for _, a := range args {
		total += a.Weight
	}
	if total <= 0 {
		return nil, fmt.Errorf("%s: %w: weights sum to %g", name, apperrors.ErrInvalidInput, total)
	}
	norm := make([]float64, len(args))
	for i, a := range args {
		norm[i] = a.Weight / total
	}
	return norm, nil
}

func operators(args []Weighted) []ScoreOperator {
	ops := make([]ScoreOperator, len(args))
	for i, a := range args {
		ops[i] = a.Op
	}
	return ops
}

func evaluateWeighted(ev *Evaluator, name string, args []Weighted, combine combineFunc) (*index.ScoreList, error) {
	if err := ev.enter(); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, emptyOperand(name)
	}
	if ev.Model.Kind != retrieval.Indri {
		return nil, unsupported(name, ev)
	}
	norm, err := normalizedWeights(name, args)
	if err != nil {
		return nil, err
	}
	ops := operators(args)
	lists, err := evaluateScoreLists(ev, ops)
	if err != nil {
		return nil, err
	}
	out := index.NewScoreList(0)
	err = unionDocs(lists, func(d docScores) error {
		scores, err := withDefaults(ev, ops, d)
		if err != nil {
			return err
		}
		out.Add(d.docID, combine(scores, norm))
		return nil
	})
	return out, err
}

func defaultWeighted(ev *Evaluator, args []Weighted, docID int, combine combineFunc) (float64, error) {
	if ev.Model.Kind != retrieval.Indri || len(args) == 0 {
		return 0, nil
	}
	norm, err := normalizedWeights("default score", args)
	if err != nil {
		return 0, err
	}
	scores := make([]float64, len(args))
	for i, a := range args {
		s, err := a.Op.DefaultScore(ev, docID)
		if err != nil {
			return 0, err
		}
		scores[i] = s
	}
	return combine(scores, norm), nil
}

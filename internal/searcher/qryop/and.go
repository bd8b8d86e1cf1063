package qryop

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/retrieval"
)

// And requires every argument under the Boolean-style models and scores the
// weakest one. Under Indri it is the geometric mean of argument beliefs and
// documents missing an argument use its default score.
type And struct {
	Args []ScoreOperator
}

func NewAnd(args ...ScoreOperator) *And {
	return &And{Args: args}
}

func (a *And) Evaluate(ev *Evaluator) (Result, error) {
	scores, err := a.EvaluateScores(ev)
	return Result{Scores: scores}, err
}

func (a *And) EvaluateScores(ev *Evaluator) (*index.ScoreList, error) {
	if err := ev.enter(); err != nil {
		return nil, err
	}
	if len(a.Args) == 0 {
		return nil, emptyOperand("#AND")
	}
	kind := ev.Model.Kind
	switch kind {
	case retrieval.UnrankedBoolean, retrieval.RankedBoolean, retrieval.TfIdf,
		retrieval.CosineSimilarity, retrieval.FieldWeighted, retrieval.Indri:
	default:
		return nil, unsupported("#AND", ev)
	}

	lists, err := evaluateScoreLists(ev, a.Args)
	if err != nil {
		return nil, err
	}
	out := index.NewScoreList(0)

	if kind == retrieval.Indri {
		exp := 1 / float64(len(a.Args))
		err = unionDocs(lists, func(d docScores) error {
			scores, err := withDefaults(ev, a.Args, d)
			if err != nil {
				return err
			}
			out.Add(d.docID, geometricMean(scores, exp))
			return nil
		})
		return out, err
	}

	err = intersectDocs(lists, func(d docScores) error {
		switch kind {
		case retrieval.UnrankedBoolean:
			out.Add(d.docID, 1.0)
		case retrieval.CosineSimilarity:
			out.Add(d.docID, cosine(lists, d))
		default:
			minScore := d.scores[0]
			for _, s := range d.scores[1:] {
				minScore = math.Min(minScore, s)
			}
			out.Add(d.docID, minScore)
		}
		return nil
	})
	if kind == retrieval.CosineSimilarity {
		out.IDF = 1
	}
	return out, err
}

func (a *And) DefaultScore(ev *Evaluator, docID int) (float64, error) {
	if ev.Model.Kind != retrieval.Indri || len(a.Args) == 0 {
		return 0, nil
	}
	scores := make([]float64, len(a.Args))
	for i, arg := range a.Args {
		s, err := arg.DefaultScore(ev, docID)
		if err != nil {
			return 0, err
		}
		scores[i] = s
	}
	return geometricMean(scores, 1/float64(len(a.Args))), nil
}

func (a *And) String() string {
	return render("#AND", scoreArgs(a.Args))
}

func geometricMean(scores []float64, exp float64) float64 {
	p := 1.0
	for _, s := range scores {
		p *= math.Pow(s, exp)
	}
	return p
}

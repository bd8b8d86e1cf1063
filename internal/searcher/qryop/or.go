package qryop

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/retrieval"
)

// Or matches documents that any argument matches and scores the strongest
// argument. Under Indri it combines beliefs as a probabilistic OR.
type Or struct {
	Args []ScoreOperator
}

func NewOr(args ...ScoreOperator) *Or {
	return &Or{Args: args}
}

func (o *Or) Evaluate(ev *Evaluator) (Result, error) {
	scores, err := o.EvaluateScores(ev)
	return Result{Scores: scores}, err
}

func (o *Or) EvaluateScores(ev *Evaluator) (*index.ScoreList, error) {
	if err := ev.enter(); err != nil {
		return nil, err
	}
	if len(o.Args) == 0 {
		return nil, emptyOperand("#OR")
	}
	kind := ev.Model.Kind
	switch kind {
	case retrieval.UnrankedBoolean, retrieval.RankedBoolean, retrieval.TfIdf,
		retrieval.CosineSimilarity, retrieval.FieldWeighted, retrieval.Indri:
	default:
		return nil, unsupported("#OR", ev)
	}

	lists, err := evaluateScoreLists(ev, o.Args)
	if err != nil {
		return nil, err
	}
	out := index.NewScoreList(0)
	exp := 1 / float64(len(o.Args))
	err = unionDocs(lists, func(d docScores) error {
		switch kind {
		case retrieval.UnrankedBoolean:
			out.Add(d.docID, 1.0)
		case retrieval.CosineSimilarity:
			out.Add(d.docID, cosine(lists, d))
		case retrieval.Indri:
			scores, err := withDefaults(ev, o.Args, d)
			if err != nil {
				return err
			}
			out.Add(d.docID, probabilisticOr(scores, exp))
		default:
			best := math.Inf(-1)
			for i, s := range d.scores {
				if d.present[i] {
					best = math.Max(best, s)
				}
			}
			out.Add(d.docID, best)
		}
		return nil
	})
	if kind == retrieval.CosineSimilarity {
		out.IDF = 1
	}
	return out, err
}

func (o *Or) DefaultScore(ev *Evaluator, docID int) (float64, error) {
	if ev.Model.Kind != retrieval.Indri || len(o.Args) == 0 {
		return 0, nil
	}
	scores := make([]float64, len(o.Args))
	for i, arg := range o.Args {
		s, err := arg.DefaultScore(ev, docID)
		if err != nil {
			return 0, err
		}
		scores[i] = s
	}
	return probabilisticOr(scores, 1/float64(len(o.Args))), nil
}

func (o *Or) String() string {
	return render("#OR", scoreArgs(o.Args))
}

func probabilisticOr(scores []float64, exp float64) float64 {
	q := 1.0
	for _, s := range scores {
		q *= 1 - math.Pow(s, exp)
	}
	return 1 - q
}

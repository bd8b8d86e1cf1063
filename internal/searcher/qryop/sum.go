package qryop

import (
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/retrieval"
)

// Sum adds BM25 argument scores, each scaled by the query-term frequency
// weight (k3+1)qtf/(k3+qtf), where qtf counts how often the argument's
// query text repeats among its siblings.
type Sum struct {
	Args []ScoreOperator
}

func NewSum(args ...ScoreOperator) *Sum {
	return &Sum{Args: args}
}

func (s *Sum) Evaluate(ev *Evaluator) (Result, error) {
	scores, err := s.EvaluateScores(ev)
	return Result{Scores: scores}, err
}

func (s *Sum) EvaluateScores(ev *Evaluator) (*index.ScoreList, error) {
	if err := ev.enter(); err != nil {
		return nil, err
	}
	if len(s.Args) == 0 {
		return nil, emptyOperand("#SUM")
	}
	if ev.Model.Kind != retrieval.BM25 {
		return nil, unsupported("#SUM", ev)
	}
	lists, err := evaluateScoreLists(ev, s.Args)
	if err != nil {
		return nil, err
	}

	names := scoreArgs(s.Args)
	counts := make(map[string]int, len(names))
	for _, n := range names {
		counts[n]++
	}
	k3 := ev.Model.K3
	weights := make([]float64, len(names))
	for i, n := range names {
		qtf := float64(counts[n])
		weights[i] = (k3 + 1) * qtf / (k3 + qtf)
	}

	out := index.NewScoreList(0)
	err = unionDocs(lists, func(d docScores) error {
		total := 0.0
		for i, score := range d.scores {
			if d.present[i] {
				total += score * weights[i]
			}
		}
		out.Add(d.docID, total)
		return nil
	})
	return out, err
}

func (s *Sum) DefaultScore(*Evaluator, int) (float64, error) {
	return 0, nil
}

func (s *Sum) String() string {
	return render("#SUM", scoreArgs(s.Args))
}

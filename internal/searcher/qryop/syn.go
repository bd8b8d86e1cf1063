package qryop

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
)

// Syn treats its arguments as one term: a document matches if any argument
// does, and its positions are the union of theirs.
type Syn struct {
	Args []ListOperator
}

func NewSyn(args ...ListOperator) *Syn {
	return &Syn{Args: args}
}

func (s *Syn) Evaluate(ev *Evaluator) (Result, error) {
	list, err := s.EvaluateList(ev)
	return Result{List: list}, err
}

func (s *Syn) EvaluateList(ev *Evaluator) (*index.InvertedList, error) {
	if err := ev.enter(); err != nil {
		return nil, err
	}
	if len(s.Args) == 0 {
		return nil, emptyOperand("#SYN")
	}
	lists, err := evaluateLists(ev, s.Args)
	if err != nil {
		return nil, err
	}

	out := index.NewInvertedList(lists[0].Field)
	cursors := make([]int, len(lists))
	for {
		minDoc := math.MaxInt
		for i, l := range lists {
			if cursors[i] < len(l.Postings) && l.Postings[cursors[i]].DocID < minDoc {
				minDoc = l.Postings[cursors[i]].DocID
			}
		}
		if minDoc == math.MaxInt {
			break
		}
		var positions []int
		for i, l := range lists {
			if cursors[i] < len(l.Postings) && l.Postings[cursors[i]].DocID == minDoc {
				positions = unionPositions(positions, l.Postings[cursors[i]].Positions)
				cursors[i]++
			}
		}
		out.AppendPosting(minDoc, positions)
	}
	return out, nil
}

func (s *Syn) String() string {
	return render("#SYN", listArgs(s.Args))
}

func evaluateLists(ev *Evaluator, args []ListOperator) ([]*index.InvertedList, error) {
	lists := make([]*index.InvertedList, len(args))
	for i, arg := range args {
		l, err := arg.EvaluateList(ev)
		if err != nil {
			return nil, err
		}
		lists[i] = l
	}
	return lists, nil
}

// unionPositions merges two ascending position lists without duplicates.
func unionPositions(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

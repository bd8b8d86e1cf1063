package qryop

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
)

// Near matches its arguments in order, each within Distance positions after
// the previous one. Arguments are folded left to right: the matches of the
// first two become the base that the third is compared against, and so on.
type Near struct {
	Distance int
	Args     []ListOperator
}

func NewNear(distance int, args ...ListOperator) *Near {
	return &Near{Distance: distance, Args: args}
}

func (n *Near) Evaluate(ev *Evaluator) (Result, error) {
	list, err := n.EvaluateList(ev)
	return Result{List: list}, err
}

func (n *Near) EvaluateList(ev *Evaluator) (*index.InvertedList, error) {
	return foldProximity(ev, n.name(), n.Args, func(base, cmp []int) []int {
		return nearPositions(base, cmp, n.Distance)
	})
}

func (n *Near) name() string {
	return fmt.Sprintf("#NEAR/%d", n.Distance)
}

func (n *Near) String() string {
	return render(n.name(), listArgs(n.Args))
}

// Window matches its arguments in any order when they fall inside a span
// narrower than Size positions.
type Window struct {
	Size int
	Args []ListOperator
}

func NewWindow(size int, args ...ListOperator) *Window {
	return &Window{Size: size, Args: args}
}

func (w *Window) Evaluate(ev *Evaluator) (Result, error) {
	list, err := w.EvaluateList(ev)
	return Result{List: list}, err
}

func (w *Window) EvaluateList(ev *Evaluator) (*index.InvertedList, error) {
	return foldProximity(ev, w.name(), w.Args, func(base, cmp []int) []int {
		return windowPositions(base, cmp, w.Size)
	})
}

func (w *Window) name() string {
	return fmt.Sprintf("#WINDOW/%d", w.Size)
}

func (w *Window) String() string {
	return render(w.name(), listArgs(w.Args))
}

func foldProximity(ev *Evaluator, name string, args []ListOperator, match func(base, cmp []int) []int) (*index.InvertedList, error) {
	if err := ev.enter(); err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("%s needs at least two arguments, got %d: %w", name, len(args), emptyOperand(name))
	}
	lists, err := evaluateLists(ev, args)
	if err != nil {
		return nil, err
	}
	base := lists[0]
	for _, cmp := range lists[1:] {
		base = pairwise(base, cmp, match)
	}
	ev.Stats.ProximityMatches += base.CTF
	return base, nil
}

// pairwise intersects two lists by docid and keeps the documents where
// match yields at least one position.
func pairwise(base, cmp *index.InvertedList, match func(base, cmp []int) []int) *index.InvertedList {
	out := index.NewInvertedList(base.Field)
	i, j := 0, 0
	for i < len(base.Postings) && j < len(cmp.Postings) {
		bd, cd := base.Postings[i].DocID, cmp.Postings[j].DocID
		switch {
		case bd < cd:
			i++
		case bd > cd:
			j++
		default:
			if positions := match(base.Postings[i].Positions, cmp.Postings[j].Positions); len(positions) > 0 {
				out.AppendPosting(bd, positions)
			}
			i++
			j++
		}
	}
	return out
}

// nearPositions emits p_cmp for every pair with 0 < p_cmp - p_base <= g.
// Both cursors move past a match; otherwise the smaller position moves.
func nearPositions(base, cmp []int, g int) []int {
	var out []int
	i, j := 0, 0
	for i < len(base) && j < len(cmp) {
		d := cmp[j] - base[i]
		switch {
		case d > 0 && d <= g:
			out = append(out, cmp[j])
			i++
			j++
		case base[i] < cmp[j]:
			i++
		case base[i] > cmp[j]:
			j++
		default:
			i++
			j++
		}
	}
	return out
}

// windowPositions emits max(p_base, p_cmp) for every pair with
// |p_cmp - p_base| < g, under the same cursor rules as nearPositions.
func windowPositions(base, cmp []int, g int) []int {
	var out []int
	i, j := 0, 0
	for i < len(base) && j < len(cmp) {
		b, c := base[i], cmp[j]
		d := c - b
		if d < 0 {
			d = -d
		}
		switch {
		case d < g:
			out = append(out, max(b, c))
			i++
			j++
		case b < c:
			i++
		case b > c:
			j++
		default:
			i++
			j++
		}
	}
	return out
}

package qryop

import (
	"math"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
)

func evaluateScoreLists(ev *Evaluator, args []ScoreOperator) ([]*index.ScoreList, error) {
	lists := make([]*index.ScoreList, len(args))
	for i, arg := range args {
		l, err := arg.EvaluateScores(ev)
		if err != nil {
			return nil, err
		}
		l.Dedup()
		lists[i] = l
	}
	return lists, nil
}

// docScores is the view of one document across all argument lists.
// present[i] reports whether argument i matched; scores[i] is only
// meaningful when it did.
type docScores struct {
	docID   int
	scores  []float64
	present []bool
}

// unionDocs walks docid-sorted score lists in ascending docid order and
// calls fn for every document that appears in at least one list.
func unionDocs(lists []*index.ScoreList, fn func(d docScores) error) error {
	cursors := make([]int, len(lists))
	d := docScores{
		scores:  make([]float64, len(lists)),
		present: make([]bool, len(lists)),
	}
	for {
		minDoc := math.MaxInt
		for i, l := range lists {
			if cursors[i] < l.Len() && l.Entries[cursors[i]].DocID < minDoc {
				minDoc = l.Entries[cursors[i]].DocID
			}
		}
		if minDoc == math.MaxInt {
			return nil
		}
		d.docID = minDoc
		for i, l := range lists {
			d.present[i] = false
			d.scores[i] = 0
			if cursors[i] < l.Len() && l.Entries[cursors[i]].DocID == minDoc {
				d.present[i] = true
				d.scores[i] = l.Entries[cursors[i]].Score
				cursors[i]++
			}
		}
		if err := fn(d); err != nil {
			return err
		}
	}
}

// intersectDocs calls fn for every document present in all lists.
func intersectDocs(lists []*index.ScoreList, fn func(d docScores) error) error {
	if len(lists) == 0 {
		return nil
	}
	cursors := make([]int, len(lists))
	d := docScores{
		scores:  make([]float64, len(lists)),
		present: make([]bool, len(lists)),
	}
	for i := range d.present {
		d.present[i] = true
	}
	for {
		target := math.MinInt
		for i, l := range lists {
			if cursors[i] >= l.Len() {
				return nil
			}
			target = max(target, l.Entries[cursors[i]].DocID)
		}
		aligned := true
		for i, l := range lists {
			for cursors[i] < l.Len() && l.Entries[cursors[i]].DocID < target {
				cursors[i]++
			}
			if cursors[i] >= l.Len() {
				return nil
			}
			if l.Entries[cursors[i]].DocID != target {
				aligned = false
			}
		}
		if !aligned {
			continue
		}
		d.docID = target
		for i, l := range lists {
			d.scores[i] = l.Entries[cursors[i]].Score
			cursors[i]++
		}
		if err := fn(d); err != nil {
			return err
		}
	}
}

// withDefaults fills in the default score of every argument that did not
// match d.docID.
func withDefaults(ev *Evaluator, args []ScoreOperator, d docScores) ([]float64, error) {
	out := make([]float64, len(args))
	for i, arg := range args {
		if d.present[i] {
			out[i] = d.scores[i]
			continue
		}
		s, err := arg.DefaultScore(ev, d.docID)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// cosine scores a document as the cosine between the query vector (one
// unit component per argument) and the document's vector over the matched
// arguments. Each list's IDF is its component weight; combinators report 1.
func cosine(lists []*index.ScoreList, d docScores) float64 {
	var dot, docNorm float64
	for i, l := range lists {
		if !d.present[i] {
			continue
		}
		dot += d.scores[i]
		docNorm += l.IDF * l.IDF
	}
	if docNorm == 0 {
		return 0
	}
	return dot / (math.Sqrt(float64(len(lists))) * math.Sqrt(docNorm))
}

func scoreArgs(args []ScoreOperator) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a.String()
	}
	return out
}

func listArgs(args []ListOperator) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a.String()
	}
	return out
}

func weightedArgs(args []Weighted) []string {
	out := make([]string, 0, 2*len(args))
	for _, a := range args {
		out = append(out, strconv.FormatFloat(a.Weight, 'g', -1, 64), a.Op.String())
	}
	return out
}

func render(name string, args []string) string {
	return name + "( " + strings.Join(args, " ") + " )"
}

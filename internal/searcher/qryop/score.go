package qryop

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/retrieval"
)

const (
	titleBoost  = 8
	inlinkBoost = 16
	zScoreShift = 100
)

// Score turns a positional list into per-document scores under the
// evaluator's retrieval model.
type Score struct {
	Arg ListOperator
}

func NewScore(arg ListOperator) *Score {
	return &Score{Arg: arg}
}

func (s *Score) Evaluate(ev *Evaluator) (Result, error) {
	scores, err := s.EvaluateScores(ev)
	return Result{Scores: scores}, err
}

func (s *Score) EvaluateScores(ev *Evaluator) (*index.ScoreList, error) {
	if err := ev.enter(); err != nil {
		return nil, err
	}
	list, err := s.Arg.EvaluateList(ev)
	if err != nil {
		return nil, err
	}
	ev.scoreStats[s] = listStats{field: list.Field, df: list.DF, ctf: list.CTF}

	out := index.NewScoreList(len(list.Postings))
	switch ev.Model.Kind {
	case retrieval.UnrankedBoolean:
		for _, p := range list.Postings {
			out.Add(p.DocID, 1.0)
		}
	case retrieval.RankedBoolean:
		for _, p := range list.Postings {
			out.Add(p.DocID, float64(p.TF))
		}
	case retrieval.TfIdf:
		n, err := ev.NumDocs()
		if err != nil {
			return nil, err
		}
		idf := 0.0
		if list.DF > 0 {
			idf = math.Max(0, math.Log(float64(n)/float64(list.DF)))
		}
		for _, p := range list.Postings {
			out.Add(p.DocID, float64(p.TF)*idf)
		}
	case retrieval.CosineSimilarity:
		n, err := ev.NumDocs()
		if err != nil {
			return nil, err
		}
		idf := 0.0
		if list.DF > 0 {
			idf = math.Max(0, math.Log(float64(n)/float64(list.DF)))
		}
		for _, p := range list.Postings {
			out.Add(p.DocID, float64(p.TF)*idf)
		}
		out.IDF = idf
	case retrieval.FieldWeighted:
		if err := s.fieldWeighted(ev, list, out); err != nil {
			return nil, err
		}
	case retrieval.BM25:
		if err := s.bm25(ev, list, out); err != nil {
			return nil, err
		}
	case retrieval.Indri:
		for _, p := range list.Postings {
			score, err := s.indri(ev, list.Field, list.CTF, p.TF, p.DocID)
			if err != nil {
				return nil, err
			}
			out.Add(p.DocID, score)
		}
	default:
		return nil, unsupported("#SCORE", ev)
	}
	return out, nil
}

func (s *Score) bm25(ev *Evaluator, list *index.InvertedList, out *index.ScoreList) error {
	n, err := ev.NumDocs()
	if err != nil {
		return err
	}
	avg, err := ev.fieldAvg(list.Field)
	if err != nil {
		return err
	}
	df := float64(list.DF)
	rsj := math.Max(0, math.Log((float64(n)-df+0.5)/(df+0.5)))
	k1, b := ev.Model.K1, ev.Model.B
	for _, p := range list.Postings {
		docLen, err := ev.docLength(list.Field, p.DocID)
		if err != nil {
			return err
		}
		ratio := 1.0
		if avg > 0 {
			ratio = float64(docLen) / avg
		}
		tf := float64(p.TF)
		out.Add(p.DocID, tf/(tf+k1*((1-b)+b*ratio))*rsj)
	}
	return nil
}

// indri is the Dirichlet-smoothed, Jelinek-Mercer-mixed term probability.
// With tf = 0 it is the score of a document the term does not occur in.
func (s *Score) indri(ev *Evaluator, field string, ctf, tf, docID int) (float64, error) {
	total, err := ev.fieldTotal(field)
	if err != nil {
		return 0, err
	}
	docLen, err := ev.docLength(field, docID)
	if err != nil {
		return 0, err
	}
	pc := 0.0
	if total > 0 {
		pc = float64(ctf) / float64(total)
	}
	mu, lambda := ev.Model.Mu, ev.Model.Lambda
	denom := float64(docLen) + mu
	smoothed := 0.0
	if denom > 0 {
		smoothed = (float64(tf) + mu*pc) / denom
	}
	return lambda*smoothed + (1-lambda)*pc, nil
}

// fieldWeighted scores tf plus a bonus when the term also occurs in the
// document's title or inlink text, then z-normalises the list.
func (s *Score) fieldWeighted(ev *Evaluator, list *index.InvertedList, out *index.ScoreList) error {
	var title, inlink *index.InvertedList
	if t, ok := s.Arg.(*Term); ok {
		var err error
		if title, err = NewTerm(t.Token, "title").EvaluateList(ev); err != nil {
			return err
		}
		if inlink, err = NewTerm(t.Token, "inlink").EvaluateList(ev); err != nil {
			return err
		}
	}
	for _, p := range list.Postings {
		score := float64(p.TF)
		if title != nil && title.Contains(p.DocID) {
			score += titleBoost
		}
		if inlink != nil && inlink.Contains(p.DocID) {
			score += inlinkBoost
		}
		out.Add(p.DocID, score)
	}
	zNormalize(out)
	return nil
}

// zNormalize maps scores to (s-mean)/stddev + 100. Lists of one entry or
// with no spread are left unchanged.
func zNormalize(scores *index.ScoreList) {
	n := float64(scores.Len())
	if scores.Len() <= 1 {
		return
	}
	var sum float64
	for _, e := range scores.Entries {
		sum += e.Score
	}
	mean := sum / n
	var sq float64
	for _, e := range scores.Entries {
		sq += (e.Score - mean) * (e.Score - mean)
	}
	stddev := math.Sqrt(sq / n)
	if stddev == 0 {
		return
	}
	for i := range scores.Entries {
		scores.Entries[i].Score = (scores.Entries[i].Score-mean)/stddev + zScoreShift
	}
}

// DefaultScore is the score of a document the argument did not match. It
// is non-zero only under Indri.
func (s *Score) DefaultScore(ev *Evaluator, docID int) (float64, error) {
	if ev.Model.Kind != retrieval.Indri {
		return 0, nil
	}
	st, ok := ev.scoreStats[s]
	if !ok {
		list, err := s.Arg.EvaluateList(ev)
		if err != nil {
			return 0, err
		}
		st = listStats{field: list.Field, df: list.DF, ctf: list.CTF}
		ev.scoreStats[s] = st
	}
	return s.indri(ev, st.field, st.ctf, 0, docID)
}

func (s *Score) String() string {
	return s.Arg.String()
}

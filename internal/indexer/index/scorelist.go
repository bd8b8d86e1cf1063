package index

import "sort"

// ScoreEntry is one scored document.
type ScoreEntry struct {
	DocID int
	Score float64
}

// ScoreList holds per-document scores produced by a score operator.
// IDF is only used under the cosine model: it is the weight of this list's
// component in a document vector (the term idf, or 1 for combinators).
type ScoreList struct {
	Entries []ScoreEntry
	IDF     float64
}

func NewScoreList(capacity int) *ScoreList {
	return &ScoreList{Entries: make([]ScoreEntry, 0, capacity)}
}

func (s *ScoreList) Add(docID int, score float64) {
	s.Entries = append(s.Entries, ScoreEntry{DocID: docID, Score: score})
}

func (s *ScoreList) Len() int {
	return len(s.Entries)
}

// SortByDocID orders entries by ascending docid, keeping the relative order
// of equal docids.
func (s *ScoreList) SortByDocID() {
	sort.SliceStable(s.Entries, func(i, j int) bool {
		return s.Entries[i].DocID < s.Entries[j].DocID
	})
}

// SortedByDocID reports whether entries are strictly ascending by docid.
func (s *ScoreList) SortedByDocID() bool {
	for i := 1; i < len(s.Entries); i++ {
		if s.Entries[i].DocID <= s.Entries[i-1].DocID {
			return false
		}
	}
	return true
}

// Dedup sorts by docid and collapses repeated docids, keeping the score
// that appeared last.
func (s *ScoreList) Dedup() {
	if s.SortedByDocID() {
		return
	}
	s.SortByDocID()
	out := s.Entries[:0]
	for _, e := range s.Entries {
		if n := len(out); n > 0 && out[n-1].DocID == e.DocID {
			out[n-1] = e
			continue
		}
		out = append(out, e)
	}
	s.Entries = out
}

// Lookup returns the score for docID. Entries must be sorted by docid.
func (s *ScoreList) Lookup(docID int) (float64, bool) {
	i := sort.Search(len(s.Entries), func(i int) bool {
		return s.Entries[i].DocID >= docID
	})
	if i < len(s.Entries) && s.Entries[i].DocID == docID {
		return s.Entries[i].Score, true
	}
	return 0, false
}

package index

import "fmt"

// DefaultField is the field a term is looked up in when the query names none.
const DefaultField = "body"

// Fields lists the document fields the index knows about.
var Fields = []string{"url", "title", "body", "inlink", "keywords"}

// IsField reports whether name is one of Fields.
func IsField(name string) bool {
	for _, f := range Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Posting records one document's occurrences of a term.
type Posting struct {
	DocID     int   `cbor:"1,keyasint" json:"doc_id"`
	TF        int   `cbor:"2,keyasint" json:"tf"`
	Positions []int `cbor:"3,keyasint" json:"positions"`
}

// NewPosting builds a Posting whose TF matches its position count.
func NewPosting(docID int, positions []int) Posting {
	return Posting{DocID: docID, TF: len(positions), Positions: positions}
}

// InvertedList is the posting list of one term (or of an operator that
// produces positions) within one field.
type InvertedList struct {
	Field    string
	DF       int
	CTF      int
	Postings []Posting
}

func NewInvertedList(field string) *InvertedList {
	return &InvertedList{Field: field}
}

// AppendPosting adds a posting for a docid greater than any already present
// and keeps DF and CTF in step.
func (l *InvertedList) AppendPosting(docID int, positions []int) {
	l.Postings = append(l.Postings, NewPosting(docID, positions))
	l.DF++
	l.CTF += len(positions)
}

// Recount recomputes DF and CTF from the postings.
func (l *InvertedList) Recount() {
	l.DF = len(l.Postings)
	l.CTF = 0
	for _, p := range l.Postings {
		l.CTF += p.TF
	}
}

// Contains reports whether docID has a posting, using binary search over
// the docid-ordered postings.
func (l *InvertedList) Contains(docID int) bool {
	lo, hi := 0, len(l.Postings)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		switch {
		case l.Postings[mid].DocID == docID:
			return true
		case l.Postings[mid].DocID < docID:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return false
}

// Validate checks ordering and count invariants.
func (l *InvertedList) Validate() error {
	if l.DF != len(l.Postings) {
		return fmt.Errorf("df %d does not match %d postings", l.DF, len(l.Postings))
	}
	ctf := 0
	for i, p := range l.Postings {
		if i > 0 && p.DocID <= l.Postings[i-1].DocID {
			return fmt.Errorf("posting %d: docid %d not after %d", i, p.DocID, l.Postings[i-1].DocID)
		}
		if p.TF != len(p.Positions) {
			return fmt.Errorf("doc %d: tf %d does not match %d positions", p.DocID, p.TF, len(p.Positions))
		}
		for j := 1; j < len(p.Positions); j++ {
			if p.Positions[j] <= p.Positions[j-1] {
				return fmt.Errorf("doc %d: positions not strictly ascending at %d", p.DocID, j)
			}
		}
		ctf += p.TF
	}
	if ctf != l.CTF {
		return fmt.Errorf("ctf %d does not match summed tf %d", l.CTF, ctf)
	}
	return nil
}

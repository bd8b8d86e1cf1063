package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

// TermEntry is one (field, term) posting list in a Snapshot.
type TermEntry struct {
	Field    string
	Term     string
	CTF      int
	Postings []Posting
}

// DocEntry describes one document in a Snapshot; its docid is its index.
type DocEntry struct {
	ExternalID string         `json:"id"`
	Lengths    map[string]int `json:"len"`
}

// Snapshot is a point-in-time copy of a MemoryIndex, ordered for writing.
type Snapshot struct {
	Terms []TermEntry
	Docs  []DocEntry
}

// MemoryIndex is an in-memory Store. Documents arrive already analyzed;
// docids are assigned densely from 0 in arrival order, so appending keeps
// every posting list docid-ordered.
type MemoryIndex struct {
	mu          sync.RWMutex
	index       map[string]map[string]*InvertedList
	docs        []DocEntry
	fieldTotals map[string]int64
	fieldDocs   map[string]int
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index:       make(map[string]map[string]*InvertedList),
		fieldTotals: make(map[string]int64),
		fieldDocs:   make(map[string]int),
	}
}

// AddDocument indexes the token streams of one document, keyed by field,
// and returns its internal docid. A token's position is its index in the
// stream.
func (m *MemoryIndex) AddDocument(externalID string, fields map[string][]string) int {
	termData := make(map[string]map[string][]int, len(fields))
	lengths := make(map[string]int, len(fields))
	for field, tokens := range fields {
		byTerm := make(map[string][]int)
		for pos, token := range tokens {
			byTerm[token] = append(byTerm[token], pos)
		}
		termData[field] = byTerm
		lengths[field] = len(tokens)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docID := len(m.docs)
	m.docs = append(m.docs, DocEntry{ExternalID: externalID, Lengths: lengths})
	for field, byTerm := range termData {
		terms, exists := m.index[field]
		if !exists {
			terms = make(map[string]*InvertedList)
			m.index[field] = terms
		}
		for term, positions := range byTerm {
			list, exists := terms[term]
			if !exists {
				list = NewInvertedList(field)
				terms[term] = list
			}
			list.AppendPosting(docID, positions)
		}
		if lengths[field] > 0 {
			m.fieldTotals[field] += int64(lengths[field])
			m.fieldDocs[field]++
		}
	}
	return docID
}

func (m *MemoryIndex) FetchPostings(_ context.Context, term, field string) (*InvertedList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list, exists := m.index[field][term]
	if !exists {
		return NewInvertedList(field), nil
	}
	cp := *list
	return &cp, nil
}

func (m *MemoryIndex) FieldTotalLength(_ context.Context, field string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fieldTotals[field], nil
}

func (m *MemoryIndex) FieldAverageDocLength(_ context.Context, field string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fieldDocs[field] == 0 {
		return 0, nil
	}
	return float64(m.fieldTotals[field]) / float64(m.fieldDocs[field]), nil
}

func (m *MemoryIndex) TotalDocumentCount(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}

func (m *MemoryIndex) DocumentLength(_ context.Context, field string, docID int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if docID < 0 || docID >= len(m.docs) {
		return 0, fmt.Errorf("%w: document length: %w %d", apperrors.ErrIndexAccess, apperrors.ErrDocumentNotFound, docID)
	}
	return m.docs[docID].Lengths[field], nil
}

func (m *MemoryIndex) ExternalID(_ context.Context, docID int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if docID < 0 || docID >= len(m.docs) {
		return "", fmt.Errorf("%w: external id: %w %d", apperrors.ErrIndexAccess, apperrors.ErrDocumentNotFound, docID)
	}
	return m.docs[docID].ExternalID, nil
}

// Snapshot copies the index with terms ordered by field, then term.
func (m *MemoryIndex) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []TermEntry
	for field, terms := range m.index {
		for term, list := range terms {
			postings := make([]Posting, len(list.Postings))
			copy(postings, list.Postings)
			entries = append(entries, TermEntry{
				Field:    field,
				Term:     term,
				CTF:      list.CTF,
				Postings: postings,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Field != entries[j].Field {
			return entries[i].Field < entries[j].Field
		}
		return entries[i].Term < entries[j].Term
	})
	docs := make([]DocEntry, len(m.docs))
	copy(docs, m.docs)
	return Snapshot{Terms: entries, Docs: docs}
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

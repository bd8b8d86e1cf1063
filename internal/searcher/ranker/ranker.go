// Package ranker orders a query's score list into the final ranked result
// and renders it in TREC run format.
package ranker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/merger"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

const DefaultLimit = 100

// TieBreak orders documents with equal scores by external id, compared
// case-insensitively.
type TieBreak string

const (
	TieBreakDescending TieBreak = "desc"
	TieBreakAscending  TieBreak = "asc"
)

func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(strings.ToLower(s)) {
	case "", TieBreakDescending:
		return TieBreakDescending, nil
	case TieBreakAscending:
		return TieBreakAscending, nil
	}
	return "", fmt.Errorf("%w: tie break %q", apperrors.ErrInvalidInput, s)
}

type Options struct {
	Limit    int
	TieBreak TieBreak
}

type ScoredDoc struct {
	DocID      int     `json:"-"`
	ExternalID string  `json:"doc_id"`
	Rank       int     `json:"rank"`
	Score      float64 `json:"score"`
}

// Rank translates docids and returns the best opts.Limit documents, score
// descending, with ranks starting at 1.
func Rank(ctx context.Context, scores *index.ScoreList, ids index.DocIDTranslator, opts Options) ([]ScoredDoc, error) {
	if scores == nil || scores.Len() == 0 {
		return []ScoredDoc{}, nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	docs := make([]ScoredDoc, 0, scores.Len())
	for _, e := range scores.Entries {
		ext, err := ids.ExternalID(ctx, e.DocID)
		if err != nil {
			if errors.Is(err, apperrors.ErrIndexAccess) {
				return nil, fmt.Errorf("external id of doc %d: %w", e.DocID, err)
			}
			return nil, fmt.Errorf("%w: external id of doc %d: %w", apperrors.ErrIndexAccess, e.DocID, err)
		}
		docs = append(docs, ScoredDoc{DocID: e.DocID, ExternalID: ext, Score: e.Score})
	}
	top := merger.TopK([][]ScoredDoc{docs}, limit, opts.TieBreak.Better)
	for i := range top {
		top[i].Rank = i + 1
	}
	return top, nil
}

// Better reports whether a ranks ahead of b.
func (tb TieBreak) Better(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if c := compareIDs(a.ExternalID, b.ExternalID); c != 0 {
		if tb == TieBreakAscending {
			return c < 0
		}
		return c > 0
	}
	return a.DocID < b.DocID
}

func compareIDs(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

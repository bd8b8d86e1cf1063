package index

import "context"

// PostingSource serves term statistics and posting lists. Implementations
// return an empty list, not an error, for terms that do not occur.
type PostingSource interface {
	FetchPostings(ctx context.Context, term, field string) (*InvertedList, error)
	FieldTotalLength(ctx context.Context, field string) (int64, error)
	FieldAverageDocLength(ctx context.Context, field string) (float64, error)
	TotalDocumentCount(ctx context.Context) (int, error)
}

// DocLengthSource reports the number of tokens of a document's field.
type DocLengthSource interface {
	DocumentLength(ctx context.Context, field string, docID int) (int, error)
}

// DocIDTranslator maps internal docids to the external identifiers used in
// result files.
type DocIDTranslator interface {
	ExternalID(ctx context.Context, docID int) (string, error)
}

// Store is everything query evaluation and ranking needs from an index.
type Store interface {
	PostingSource
	DocLengthSource
	DocIDTranslator
}

type composite struct {
	PostingSource
	DocLengthSource
	DocIDTranslator
}

// Compose builds a Store from independent backends, e.g. postings from a
// segment file and document metadata from Postgres.
func Compose(postings PostingSource, lengths DocLengthSource, ids DocIDTranslator) Store {
	return composite{
		PostingSource:   postings,
		DocLengthSource: lengths,
		DocIDTranslator: ids,
	}
}

// Package docstore serves the document table (external ids and per-field
// lengths) from PostgreSQL, for deployments where it is shared between
// query services or maintained outside the segment file.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/resilience"
)

const Schema = `CREATE TABLE IF NOT EXISTS documents (
	docid       INTEGER PRIMARY KEY,
	external_id TEXT NOT NULL UNIQUE,
	lengths     JSONB NOT NULL
)`

type loadFunc func(ctx context.Context, docID int) (index.DocEntry, error)

// Store implements index.DocIDTranslator and index.DocLengthSource. Rows
// are cached after the first read; the table is immutable between imports.
type Store struct {
	db      *postgres.Client
	load    loadFunc
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	logger  *slog.Logger

	mu   sync.RWMutex
	rows map[int]index.DocEntry
}

// New wraps db; m may be nil.
func New(db *postgres.Client, m *metrics.Metrics) *Store {
	s := newStore(nil, m)
	s.db = db
	s.load = s.queryRow
	return s
}

func newStore(load loadFunc, m *metrics.Metrics) *Store {
	notFound := func(err error) bool { return !errors.Is(err, apperrors.ErrDocumentNotFound) }
	cbCfg := resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     10 * time.Second,
		IsFailure:        notFound,
	}
	if m != nil {
		cbCfg.OnStateChange = func(name string, _, to resilience.State) {
			m.CircuitState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &Store{
		load:    load,
		breaker: resilience.NewCircuitBreaker("docstore", cbCfg),
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 20 * time.Millisecond,
			MaxDelay:     500 * time.Millisecond,
			Retryable: func(err error) bool {
				return notFound(err) && !errors.Is(err, resilience.ErrCircuitOpen)
			},
		},
		logger: slog.Default().With("component", "docstore"),
		rows:   make(map[int]index.DocEntry),
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.db.Exec(ctx, Schema)
}

func (s *Store) ExternalID(ctx context.Context, docID int) (string, error) {
	row, err := s.row(ctx, docID)
	if err != nil {
		return "", err
	}
	return row.ExternalID, nil
}

func (s *Store) DocumentLength(ctx context.Context, field string, docID int) (int, error) {
	row, err := s.row(ctx, docID)
	if err != nil {
		return 0, err
	}
	return row.Lengths[field], nil
}

// Ping reports whether the table is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.DB.PingContext(ctx)
}

func (s *Store) row(ctx context.Context, docID int) (index.DocEntry, error) {
	s.mu.RLock()
	row, ok := s.rows[docID]
	s.mu.RUnlock()
	if ok {
		return row, nil
	}

	err := resilience.Retry(ctx, "docstore-read", s.retry, func() error {
		return s.breaker.Execute(func() error {
			var err error
			row, err = s.load(ctx, docID)
			return err
		})
	})
	if err != nil {
		return index.DocEntry{}, mapError(err, docID)
	}
	s.mu.Lock()
	s.rows[docID] = row
	s.mu.Unlock()
	return row, nil
}

func (s *Store) queryRow(ctx context.Context, docID int) (index.DocEntry, error) {
	var (
		entry   index.DocEntry
		lengths []byte
	)
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT external_id, lengths FROM documents WHERE docid = $1`, docID,
	).Scan(&entry.ExternalID, &lengths)
	if errors.Is(err, sql.ErrNoRows) {
		return entry, apperrors.ErrDocumentNotFound
	}
	if err != nil {
		return entry, err
	}
	if err := json.Unmarshal(lengths, &entry.Lengths); err != nil {
		return entry, fmt.Errorf("decoding lengths of doc %d: %w", docID, err)
	}
	return entry, nil
}

// mapError makes every failure an index access error, which aborts batch
// runs.
func mapError(err error, docID int) error {
	if errors.Is(err, apperrors.ErrIndexAccess) {
		return err
	}
	return fmt.Errorf("%w: docstore doc %d: %w", apperrors.ErrIndexAccess, docID, err)
}

// Import replaces the document table with docs, docid = slice index, in
// one transaction using COPY.
func (s *Store) Import(ctx context.Context, docs []index.DocEntry) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `TRUNCATE documents`); err != nil {
			return fmt.Errorf("truncating documents: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("documents", "docid", "external_id", "lengths"))
		if err != nil {
			return fmt.Errorf("preparing copy: %w", err)
		}
		for docID, d := range docs {
			lengths, err := json.Marshal(d.Lengths)
			if err != nil {
				stmt.Close()
				return fmt.Errorf("encoding lengths of %s: %w", d.ExternalID, err)
			}
			if _, err := stmt.ExecContext(ctx, docID, d.ExternalID, string(lengths)); err != nil {
				stmt.Close()
				return fmt.Errorf("copying %s: %w", d.ExternalID, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("flushing copy: %w", err)
		}
		return stmt.Close()
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rows = make(map[int]index.DocEntry)
	s.mu.Unlock()
	s.logger.Info("document table imported", "documents", len(docs))
	return nil
}

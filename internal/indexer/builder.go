// Package indexer builds segment files from documents, either in bulk
// from a JSONL file or incrementally from a Kafka topic.
package indexer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

const maxLineSize = 16 << 20

// Builder accumulates documents in a MemoryIndex and writes the whole
// index to a single segment file on Flush. Docids follow arrival order.
type Builder struct {
	mem      *index.MemoryIndex
	analyzer tokenizer.Analyzer
	path     string
	logger   *slog.Logger

	mu    sync.Mutex
	seen  map[string]struct{}
	dirty bool
}

func NewBuilder(path string, analyzer tokenizer.Analyzer) *Builder {
	if analyzer == nil {
		analyzer = tokenizer.English{}
	}
	return &Builder{
		mem:      index.NewMemoryIndex(),
		analyzer: analyzer,
		path:     path,
		logger:   slog.Default().With("component", "indexer"),
		seen:     make(map[string]struct{}),
	}
}

// IndexDocument analyzes and adds doc. Invalid or duplicate documents are
// rejected with an error wrapping ErrInvalidInput.
func (b *Builder) IndexDocument(doc Document) (int, error) {
	if err := doc.Validate(); err != nil {
		return 0, fmt.Errorf("%w: document %q: %v", apperrors.ErrInvalidInput, doc.ID, err)
	}
	id := strings.TrimSpace(doc.ID)

	fields := make(map[string][]string, len(doc.Fields)+len(doc.Tokens))
	for f, text := range doc.Fields {
		fields[f] = b.analyzer.Analyze(text)
	}
	for f, tokens := range doc.Tokens {
		fields[f] = tokens
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.seen[id]; dup {
		return 0, fmt.Errorf("%w: duplicate document id %q", apperrors.ErrInvalidInput, id)
	}
	b.seen[id] = struct{}{}
	b.dirty = true
	docID := b.mem.AddDocument(id, fields)
	b.logger.Debug("document indexed", "doc_id", id, "docid", docID)
	return docID, nil
}

// LoadJSONL indexes one JSON document per line. Blank lines are skipped;
// the first malformed or rejected line stops the load.
func (b *Builder) LoadJSONL(ctx context.Context, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	n, lineNo := 0, 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var doc Document
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return n, fmt.Errorf("%w: line %d: %v", apperrors.ErrInvalidInput, lineNo, err)
		}
		if _, err := b.IndexDocument(doc); err != nil {
			return n, fmt.Errorf("line %d: %w", lineNo, err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("reading documents: %w", err)
	}
	return n, nil
}

// Flush writes the index to the segment path if anything changed since
// the last flush.
func (b *Builder) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.dirty {
		return nil
	}
	snap := b.mem.Snapshot()
	if err := segment.Write(b.path, snap); err != nil {
		return fmt.Errorf("writing segment: %w", err)
	}
	b.dirty = false
	b.logger.Info("segment flushed",
		"path", b.path,
		"terms", len(snap.Terms),
		"docs", len(snap.Docs),
	)
	return nil
}

// Snapshot returns the current index contents, e.g. for a document table
// import.
func (b *Builder) Snapshot() index.Snapshot {
	return b.mem.Snapshot()
}

func (b *Builder) DocCount() int {
	return b.mem.DocCount()
}

// StartFlushLoop flushes every interval until ctx is done, then flushes
// once more. The returned channel closes after the final flush.
func (b *Builder) StartFlushLoop(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				b.logger.Info("flush loop stopping, performing final flush")
				if err := b.Flush(); err != nil {
					b.logger.Error("final flush failed", "error", err)
				}
				return
			case <-ticker.C:
				if err := b.Flush(); err != nil {
					b.logger.Error("periodic flush failed", "error", err)
				}
			}
		}
	}()
	return done
}

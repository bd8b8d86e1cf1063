// Package batch evaluates query files: one "qid:query" per line, results
// written as a TREC run in input order.
package batch

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type Query struct {
	ID   string
	Text string
	Line int
}

// ReadQueries parses r. Blank lines and lines starting with '#' are
// skipped; lines without a "qid:" prefix are logged and skipped. Only the
// first colon separates id from text.
func ReadQueries(r io.Reader) ([]Query, error) {
	logger := slog.Default().With("component", "batch")
	var queries []Query
	seen := make(map[string]int)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		id, query, ok := strings.Cut(text, ":")
		id = strings.TrimSpace(id)
		if !ok || id == "" || strings.ContainsAny(id, " \t") {
			logger.Warn("skipping malformed query line", "line", line, "text", text)
			continue
		}
		if prev, dup := seen[id]; dup {
			logger.Warn("duplicate query id", "id", id, "line", line, "first_line", prev)
		}
		seen[id] = line
		queries = append(queries, Query{ID: id, Text: strings.TrimSpace(query), Line: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading queries at line %d: %w", line+1, err)
	}
	return queries, nil
}

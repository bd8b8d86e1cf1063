package ranker

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

const DefaultRunTag = "run-1"

// TRECLine renders "QueryID Q0 ExternalDocID Rank Score RunTag".
func TRECLine(queryID, runTag string, d ScoredDoc) string {
	return fmt.Sprintf("%s Q0 %s %d %s %s",
		queryID, d.ExternalID, d.Rank, strconv.FormatFloat(d.Score, 'f', -1, 64), runTag)
}

func TRECLines(queryID, runTag string, docs []ScoredDoc) []string {
	lines := make([]string, len(docs))
	for i, d := range docs {
		lines[i] = TRECLine(queryID, runTag, d)
	}
	return lines
}

// WriteTREC writes one line per document. An empty result writes nothing.
func WriteTREC(w io.Writer, queryID, runTag string, docs []ScoredDoc) error {
	if runTag == "" {
		runTag = DefaultRunTag
	}
	bw := bufio.NewWriter(w)
	for _, d := range docs {
		if _, err := bw.WriteString(TRECLine(queryID, runTag, d) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

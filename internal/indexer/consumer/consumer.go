// Package consumer indexes documents arriving on a Kafka topic.
package consumer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/kafka"
)

// HandleDocument returns a MessageHandler that adds each message's
// document to b. Undecodable and rejected documents are logged and
// committed so one bad record cannot stall the partition.
func HandleDocument(b *indexer.Builder) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key, value []byte) error {
		doc, err := kafka.DecodeJSON[indexer.Document](value)
		if err != nil {
			logger.Error("failed to decode document", "key", string(key), "error", err)
			return nil
		}
		docID, err := b.IndexDocument(doc)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvalidInput) {
				logger.Warn("document rejected", "doc_id", doc.ID, "error", err)
				return nil
			}
			return err
		}
		logger.Debug("document indexed", "doc_id", doc.ID, "docid", docID)
		return nil
	}
}

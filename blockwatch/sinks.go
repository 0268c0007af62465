package blockwatch

import (
	"io"
	"log/slog"

	"github.com/mbaranovski/editor.js/blockwatch/internal/sink"
)

// Sink is the output interface for coalesced batches.
type Sink = sink.Sink

// BatchFunc is called for each batch by the callback sink.
type BatchFunc = sink.BatchFunc

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process callback sink with no serialisation.
func NewCallbackSink(onBatch BatchFunc) Sink {
	return sink.NewCallback(onBatch)
}

// NewJournalSink opens (or creates) a SQLite journal at path and persists
// every batch with a markdown digest.
func NewJournalSink(path string) (Sink, error) {
	return sink.OpenJournal(path)
}

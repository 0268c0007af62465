// Package sink defines output backends for coalesced update batches.
package sink

import (
	"context"

	"github.com/mbaranovski/editor.js/blockwatch/mutation"
)

// Sink is the output interface. Implementations deliver batches to
// different backends (stdout, webhook, SQLite journal, in-process callback).
type Sink interface {
	Send(ctx context.Context, batch mutation.Batch) error
	Close() error
}

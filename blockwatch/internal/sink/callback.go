package sink

import (
	"context"

	"github.com/mbaranovski/editor.js/blockwatch/mutation"
)

// BatchFunc is called for each batch (in-process, zero serialisation).
type BatchFunc func(ctx context.Context, batch mutation.Batch) error

// Callback delivers batches via Go function calls. This is the path for
// consumers living in the same binary as the watcher: no serialisation,
// no transport.
type Callback struct {
	onBatch BatchFunc
}

// NewCallback creates a Callback sink. A nil handler makes Send a no-op.
func NewCallback(onBatch BatchFunc) *Callback {
	return &Callback{onBatch: onBatch}
}

func (c *Callback) Send(ctx context.Context, batch mutation.Batch) error {
	if c.onBatch != nil {
		return c.onBatch(ctx, batch)
	}
	return nil
}

func (c *Callback) Close() error { return nil }

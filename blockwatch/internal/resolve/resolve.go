// Package resolve turns content-affecting mutation events into unit
// snapshots by consulting the editor's state store and the snapshot
// serializer. A lookup that finds nothing is not an error: mutations can
// land during transient states with no current unit, and a unit can be
// deleted between lookup and serialization. Both cases skip silently.
package resolve

import (
	"context"
	"log/slog"

	"github.com/mbaranovski/editor.js/blockwatch/mutation"
)

// UnitRef identifies one editable unit in the state store.
type UnitRef struct {
	ID string
}

// Store looks up the unit currently being edited. The lookup may suspend;
// ok=false means no current unit exists.
type Store interface {
	CurrentUnit(ctx context.Context) (ref UnitRef, ok bool, err error)
}

// Serializer produces a snapshot of a unit's current state. A nil snapshot
// with nil error means the unit yielded no data (deleted or empty).
type Serializer interface {
	Serialize(ctx context.Context, unitID string) (*mutation.UnitSnapshot, error)
}

// Resolver resolves the events of one flush into snapshots.
type Resolver struct {
	store    Store
	ser      Serializer
	classify func(mutation.Event) mutation.Class
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClassifier overrides the default mutation.Classify decision function.
func WithClassifier(fn func(mutation.Event) mutation.Class) Option {
	return func(r *Resolver) { r.classify = fn }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver.
func New(store Store, ser Serializer, opts ...Option) *Resolver {
	r := &Resolver{
		store:    store,
		ser:      ser,
		classify: mutation.Classify,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve classifies the events of one flush in arrival order and resolves
// each content-affecting one into an independent snapshot. Resolution is
// sequential and not deduplicated by unit id: two events against the same
// unit each produce their own lookup and append, capturing intermediate
// states. Serialization failures are logged and drop only that event's
// contribution; the rest of the flush proceeds.
func (r *Resolver) Resolve(ctx context.Context, events []mutation.Event) []mutation.UnitSnapshot {
	var out []mutation.UnitSnapshot
	for _, ev := range events {
		if r.classify(ev) != mutation.ContentAffecting {
			continue
		}

		unit, ok, err := r.store.CurrentUnit(ctx)
		if err != nil {
			r.logger.Warn("resolve: current unit lookup failed", "error", err)
			continue
		}
		if !ok {
			// Mutation during a transient state with no current unit.
			continue
		}

		snap, err := r.ser.Serialize(ctx, unit.ID)
		if err != nil {
			r.logger.Warn("resolve: serialize failed", "unit_id", unit.ID, "error", err)
			continue
		}
		if snap == nil {
			// Unit deleted between lookup and serialization.
			continue
		}
		out = append(out, *snap)
	}
	return out
}

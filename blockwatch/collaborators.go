package blockwatch

import (
	"context"

	"github.com/mbaranovski/editor.js/blockwatch/internal/resolve"
	"github.com/mbaranovski/editor.js/blockwatch/mutation"
)

// FlushHandler receives one delivery of raw mutation events. The source
// invokes it once per natural flush; deliveries are asynchronous.
type FlushHandler func(events []mutation.Event)

// SubscribeOptions selects which raw mutations the source reports.
type SubscribeOptions struct {
	Subtree               bool
	ChildList             bool
	Attributes            bool
	CharacterData         bool
	CharacterDataOldValue bool
}

// Subscription is a live registration with the observation primitive.
type Subscription interface {
	Cancel()
}

// Source is the raw observation primitive over the watched subtree.
type Source interface {
	Subscribe(opts SubscribeOptions, handler FlushHandler) (Subscription, error)
}

// ElementRef identifies a native input-capable element (textarea, input,
// select) in the watched tree. A weak reference: the element set is
// re-derived on every scan, never retained across teardown.
type ElementRef struct {
	XPath string
	Tag   string
}

// InputScanner finds native input elements and manages their change
// listeners. Off removes every handler registered for that event on that
// element.
type InputScanner interface {
	ScanInputs(ctx context.Context) ([]ElementRef, error)
	On(el ElementRef, event string, fn func())
	Off(el ElementRef, event string)
}

// UnitRef identifies one editable unit in the state store.
type UnitRef = resolve.UnitRef

// UnitStore looks up the unit currently being edited.
type UnitStore = resolve.Store

// Serializer produces a snapshot of a unit's current state.
type Serializer = resolve.Serializer

// ChangeFunc is the external notification callback: at most one call per
// quiet window, carrying the capability handle configured on the watcher and
// the merged updates of that window. It never receives errors, only
// successfully resolved data.
type ChangeFunc func(api any, updates []mutation.UnitSnapshot)

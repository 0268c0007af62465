// Package blockwatch watches the working tree of a block editor, classifies
// raw mutations into content-affecting vs structural, coalesces bursts into
// one debounced notification per quiet window, and resolves each
// notification into snapshots of the units that changed.
//
// blockwatch observes, it does not interpret. Snapshots are produced by the
// editor's own serializer and delivered unmodified to the change callback
// and to sinks (stdout, webhook, SQLite journal) for consumers to process.
package blockwatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mbaranovski/editor.js/blockwatch/internal/debounce"
	"github.com/mbaranovski/editor.js/blockwatch/internal/resolve"
	"github.com/mbaranovski/editor.js/blockwatch/internal/sink"
	"github.com/mbaranovski/editor.js/blockwatch/mutation"
	"github.com/mbaranovski/editor.js/idgen"
)

// inputChangeEvent is the listener event registered on native inputs.
const inputChangeEvent = "change"

type state int

const (
	stateUninitialized state = iota
	stateEnabled
	stateDisabled
	stateDestroyed
)

func (s state) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateEnabled:
		return "enabled"
	case stateDisabled:
		return "disabled"
	case stateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// Options configures a Watcher. Source, Store and Serializer are required;
// everything else has a working default.
type Options struct {
	// Source delivers raw mutation flushes for the watched subtree.
	Source Source
	// Inputs scans for native input elements and manages their listeners.
	// Nil disables native-input tracking.
	Inputs InputScanner
	// Store looks up the unit currently being edited.
	Store UnitStore
	// Serializer turns a unit id into a snapshot.
	Serializer Serializer

	// OnChange receives at most one notification per quiet window. Nil is
	// allowed: batches are still computed and routed to sinks.
	OnChange ChangeFunc
	// API is the opaque capability handle passed to OnChange.
	API any
	// Sinks additionally receive every batch (fan-out, errors logged).
	Sinks []Sink

	// ReadOnly starts the watcher with processing suppressed. Toggle later
	// with SetReadOnly.
	ReadOnly bool
	// QuietWindow is the debounce interval. Default: 450ms.
	QuietWindow time.Duration
	// SettleDelay postpones first-enable activation so the surrounding
	// initial render finishes before observation begins. Default: 1s.
	SettleDelay time.Duration
	// WrapperClass is the unit wrapper marker class used by classification.
	// Default: mutation.WrapperClass.
	WrapperClass string
	// NewID mints batch ids. Default: idgen.Default (UUIDv7).
	NewID idgen.Generator
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.QuietWindow <= 0 {
		o.QuietWindow = 450 * time.Millisecond
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = time.Second
	}
	if o.WrapperClass == "" {
		o.WrapperClass = mutation.WrapperClass
	}
	if o.NewID == nil {
		o.NewID = idgen.Default
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Stats are point-in-time counters.
type Stats struct {
	Flushes           int64 `json:"flushes"`
	Suppressed        int64 `json:"suppressed"`
	SnapshotsResolved int64 `json:"snapshots_resolved"`
	InputEvents       int64 `json:"input_events"`
	Notifications     int64 `json:"notifications"`
}

// Watcher is the observation controller. It owns the subscription to the
// raw source, the stealth flag, and the native-input listener set, and it
// orchestrates classify → resolve → debounce → notify.
//
// Lifecycle: Uninitialized → Enabled ⇄ Disabled → Destroyed. Destroy is
// terminal and reachable from any state.
//
// Concurrency: every raw flush is one unit of work on a single-consumer
// queue, so resolution for two flushes never interleaves. The debouncer
// is the only state shared with native-input listeners and is mutex-guarded.
type Watcher struct {
	opts   Options
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	// stealth suppresses all processing while the editor writes to its own
	// tree (and while read-only). Checked at the top of the flush handler.
	stealth atomic.Bool

	mu          sync.Mutex
	state       state
	sub         Subscription
	inputs      []ElementRef
	setupDone   bool
	settleTimer *time.Timer

	deb    *debounce.Debouncer[mutation.UnitSnapshot]
	res    *resolve.Resolver
	router *sink.Router

	flushCh       chan []mutation.Event
	seq           atomic.Uint64
	pendingInputs atomic.Int64
	lastBatch     atomic.Pointer[mutation.Batch]

	flushes       atomic.Int64
	suppressed    atomic.Int64
	resolved      atomic.Int64
	inputEvents   atomic.Int64
	notifications atomic.Int64
}

// New creates a Watcher. Nothing is observed until Enable.
func New(opts Options) *Watcher {
	opts.defaults()
	ctx, cancel := context.WithCancel(context.Background())

	w := &Watcher{
		opts:    opts,
		logger:  opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
		flushCh: make(chan []mutation.Event, 64),
	}

	wrapper := opts.WrapperClass
	w.res = resolve.New(opts.Store, opts.Serializer,
		resolve.WithClassifier(func(ev mutation.Event) mutation.Class {
			return mutation.ClassifyWith(ev, wrapper)
		}),
		resolve.WithLogger(w.logger),
	)
	w.deb = debounce.New(opts.QuietWindow, w.onQuiet)
	if len(opts.Sinks) > 0 {
		w.router = sink.NewRouter(w.logger, opts.Sinks...)
	}

	// Nothing may be observed before activation completes.
	w.stealth.Store(true)

	go w.loop()
	return w
}

// Enable starts observation. The first call performs a deferred activation:
// after the settle delay the watcher subscribes the source (insertions,
// removals, attributes, text with old values, recursive), scans the subtree
// for native inputs and registers change listeners, then clears the stealth
// flag. Subsequent calls only clear the stealth flag, immediately and with
// no delay. This is the counterpart of Disable around self-mutation windows.
func (w *Watcher) Enable() {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case stateDestroyed:
		return
	case stateUninitialized:
		if w.opts.ReadOnly {
			w.state = stateDisabled
		} else {
			w.state = stateEnabled
		}
		w.settleTimer = time.AfterFunc(w.opts.SettleDelay, w.activate)
	default:
		w.state = stateEnabled
		if w.setupDone {
			w.stealth.Store(false)
		}
	}
}

// Disable sets the stealth flag immediately: raw events keep arriving but
// are dropped at the top of the handler. Used around programmatic edits the
// watcher must not observe. The subscription stays in place.
func (w *Watcher) Disable() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == stateDestroyed {
		return
	}
	w.stealth.Store(true)
	if w.state == stateEnabled {
		w.state = stateDisabled
	}
}

// SetReadOnly toggles read-only mode. Like Disable it only flips the stealth
// flag; re-enabling does not re-run the deferred setup.
func (w *Watcher) SetReadOnly(readOnly bool) {
	if readOnly {
		w.Disable()
	} else {
		w.Enable()
	}
}

// Destroy tears the watcher down from any state: subscription cancelled,
// every native-input listener removed, pending quiet window discarded
// without flushing. Idempotent, and safe to call before Enable. No
// notification fires after Destroy; late flush deliveries are no-ops.
func (w *Watcher) Destroy() {
	w.mu.Lock()
	if w.state == stateDestroyed {
		w.mu.Unlock()
		return
	}
	w.state = stateDestroyed
	w.stealth.Store(true)
	if w.settleTimer != nil {
		w.settleTimer.Stop()
		w.settleTimer = nil
	}
	if w.sub != nil {
		w.sub.Cancel()
		w.sub = nil
	}
	if w.opts.Inputs != nil {
		for _, el := range w.inputs {
			w.opts.Inputs.Off(el, inputChangeEvent)
		}
	}
	w.inputs = nil
	w.mu.Unlock()

	w.deb.Stop()
	w.cancel()

	if w.router != nil {
		if err := w.router.Close(); err != nil {
			w.logger.Warn("blockwatch: sink close failed", "error", err)
		}
	}
	w.logger.Info("blockwatch: destroyed")
}

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		Flushes:           w.flushes.Load(),
		Suppressed:        w.suppressed.Load(),
		SnapshotsResolved: w.resolved.Load(),
		InputEvents:       w.inputEvents.Load(),
		Notifications:     w.notifications.Load(),
	}
}

// State reports the lifecycle state as a string.
func (w *Watcher) State() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.String()
}

// LastBatch returns the most recently emitted batch, if any.
func (w *Watcher) LastBatch() (mutation.Batch, bool) {
	if b := w.lastBatch.Load(); b != nil {
		return *b, true
	}
	return mutation.Batch{}, false
}

// activate runs once, after the settle delay of the first Enable.
func (w *Watcher) activate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == stateDestroyed || w.setupDone {
		return
	}

	sub, err := w.opts.Source.Subscribe(SubscribeOptions{
		Subtree:               true,
		ChildList:             true,
		Attributes:            true,
		CharacterData:         true,
		CharacterDataOldValue: true,
	}, w.handleFlush)
	if err != nil {
		w.logger.Error("blockwatch: subscribe failed", "error", err)
		return
	}
	w.sub = sub
	w.setupDone = true

	w.rescanInputsLocked()

	if w.state == stateEnabled {
		w.stealth.Store(false)
	}
	w.logger.Info("blockwatch: observation active",
		"inputs", len(w.inputs), "state", w.state.String())
}

// handleFlush is invoked by the source, once per raw flush, on the source's
// goroutine. Stealth is checked first: suppressed flushes never start a
// batch. Accepted flushes are queued for the single consumer loop.
func (w *Watcher) handleFlush(events []mutation.Event) {
	if w.stealth.Load() {
		w.suppressed.Add(1)
		return
	}
	select {
	case w.flushCh <- events:
	case <-w.ctx.Done():
	}
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case events := <-w.flushCh:
			w.processFlush(events)
		}
	}
}

// processFlush resolves one flush into a flush-local snapshot list and
// submits it as a single debouncer call. One flush therefore produces at
// most one Schedule regardless of how many content-affecting events it
// contained; coalescing across flushes is the debouncer's job.
func (w *Watcher) processFlush(events []mutation.Event) {
	w.flushes.Add(1)

	snaps := w.res.Resolve(w.ctx, events)
	if len(snaps) == 0 {
		return
	}
	w.resolved.Add(int64(len(snaps)))
	w.deb.Schedule(snaps...)
}

// onNativeInput is the change listener attached to every native input. It
// bypasses classification and resolution entirely: only a change marker
// reaches the debouncer.
func (w *Watcher) onNativeInput() {
	if w.stealth.Load() {
		return
	}
	w.inputEvents.Add(1)
	w.pendingInputs.Add(1)
	w.deb.Schedule()
}

// onQuiet fires when the quiet window elapses with the merged updates of
// every Schedule since the previous flush.
func (w *Watcher) onQuiet(updates []mutation.UnitSnapshot) {
	w.mu.Lock()
	if w.state == stateDestroyed {
		w.mu.Unlock()
		return
	}
	// Re-scan unconditionally so inputs added since the last notification
	// get listeners before the consumer reacts to this one.
	w.rescanInputsLocked()
	w.mu.Unlock()

	batch := mutation.Batch{
		ID:          w.opts.NewID(),
		Seq:         w.seq.Add(1),
		Updates:     updates,
		InputEvents: int(w.pendingInputs.Swap(0)),
		Timestamp:   time.Now().UnixMilli(),
	}
	w.lastBatch.Store(&batch)
	w.notifications.Add(1)

	if w.opts.OnChange != nil {
		w.opts.OnChange(w.opts.API, updates)
	}
	if w.router != nil {
		if err := w.router.Send(w.ctx, batch); err != nil {
			w.logger.Warn("blockwatch: sink delivery failed", "error", err)
		}
	}
}

// rescanInputsLocked removes every previously registered listener, then
// registers on the current input set. Deliberately diff-free: remove-all
// and re-add keeps registrations exactly 1:1 with the known inputs without
// tracking element identity across scans.
func (w *Watcher) rescanInputsLocked() {
	if w.opts.Inputs == nil || w.state == stateDestroyed {
		return
	}
	for _, el := range w.inputs {
		w.opts.Inputs.Off(el, inputChangeEvent)
	}
	w.inputs = nil

	els, err := w.opts.Inputs.ScanInputs(w.ctx)
	if err != nil {
		w.logger.Warn("blockwatch: input scan failed", "error", err)
		return
	}
	for _, el := range els {
		w.opts.Inputs.On(el, inputChangeEvent, w.onNativeInput)
	}
	w.inputs = els
}

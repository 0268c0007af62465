// Package rodsource adapts a live go-rod page to the blockwatch collaborator
// interfaces. An injected MutationObserver is the raw observation primitive,
// bridged to Go over a runtime binding; native-input scanning and listener
// registration ride the same binding.
package rodsource

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/mbaranovski/editor.js/blockwatch"
	"github.com/mbaranovski/editor.js/blockwatch/mutation"
)

//go:embed observer.js
var observerJS string

const bindingName = "__blockwatch_binding"

// Source bridges one page to blockwatch. Create with Open or Attach.
type Source struct {
	page   *rod.Page
	root   string
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	handler  blockwatch.FlushHandler
	inputFns map[string][]func()
	started  bool
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) { s.logger = l }
}

// Attach wraps an existing page. root is the CSS selector of the watched
// subtree (the editor's holder element).
func Attach(page *rod.Page, root string, opts ...Option) *Source {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Source{
		page:     page,
		root:     root,
		logger:   slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
		inputFns: make(map[string][]func()),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open creates a stealth tab on the browser, navigates to pageURL, waits for
// the load event, and attaches to root.
func Open(ctx context.Context, browser *rod.Browser, pageURL, root string, opts ...Option) (*Source, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("rodsource: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("rodsource: navigate %s: %w", pageURL, err)
	}
	s := Attach(page, root, opts...)
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		s.logger.Warn("rodsource: wait load timeout", "url", pageURL, "error", err)
	}
	return s, nil
}

// Page exposes the underlying page for collaborators attached alongside the
// source (unit store, serializer).
func (s *Source) Page() *rod.Page {
	return s.page
}

// Subscribe implements blockwatch.Source by injecting the MutationObserver
// into the page. At most one subscription per Source.
func (s *Source) Subscribe(opts blockwatch.SubscribeOptions, handler blockwatch.FlushHandler) (blockwatch.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handler != nil {
		return nil, fmt.Errorf("rodsource: already subscribed")
	}

	if !s.started {
		err := proto.RuntimeAddBinding{Name: bindingName}.Call(s.page)
		if err != nil {
			s.logger.Warn("rodsource: addBinding failed (may already exist)", "error", err)
		}
		go s.listenBinding()
		s.started = true
	}

	optsJSON, err := json.Marshal(map[string]any{
		"root":                  s.root,
		"subtree":               opts.Subtree,
		"childList":             opts.ChildList,
		"attributes":            opts.Attributes,
		"characterData":         opts.CharacterData,
		"characterDataOldValue": opts.CharacterDataOldValue,
	})
	if err != nil {
		return nil, fmt.Errorf("rodsource: marshal options: %w", err)
	}
	if _, err := s.page.Eval(fmt.Sprintf("window.__blockwatch_opts = %s", optsJSON)); err != nil {
		return nil, fmt.Errorf("rodsource: set options: %w", err)
	}
	if _, err := s.page.Eval(observerJS); err != nil {
		return nil, fmt.Errorf("rodsource: inject observer: %w", err)
	}

	s.handler = handler
	s.logger.Debug("rodsource: observer injected", "root", s.root)
	return &subscription{src: s}, nil
}

type subscription struct{ src *Source }

func (su *subscription) Cancel() {
	s := su.src
	s.mu.Lock()
	s.handler = nil
	s.mu.Unlock()

	if _, err := s.page.Eval(`() => { if (window.__blockwatch_stop) window.__blockwatch_stop() }`); err != nil {
		s.logger.Warn("rodsource: stop observer failed", "error", err)
	}
}

// ScanInputs implements blockwatch.InputScanner over the watched subtree.
func (s *Source) ScanInputs(ctx context.Context) ([]blockwatch.ElementRef, error) {
	js := fmt.Sprintf(`() => {
		if (!window.__blockwatch_xpath) return '[]';
		const root = document.querySelector(%q);
		if (!root) return '[]';
		const els = Array.from(root.querySelectorAll('textarea, input, select'));
		return JSON.stringify(els.map((el) => ({
			xpath: window.__blockwatch_xpath(el),
			tag: el.tagName.toLowerCase(),
		})));
	}`, s.root)

	res, err := s.page.Context(ctx).Eval(js)
	if err != nil {
		return nil, fmt.Errorf("rodsource: scan inputs: %w", err)
	}

	var raw []struct {
		XPath string `json:"xpath"`
		Tag   string `json:"tag"`
	}
	if err := json.Unmarshal([]byte(res.Value.Str()), &raw); err != nil {
		return nil, fmt.Errorf("rodsource: parse inputs: %w", err)
	}

	out := make([]blockwatch.ElementRef, 0, len(raw))
	for _, r := range raw {
		out = append(out, blockwatch.ElementRef{XPath: r.XPath, Tag: r.Tag})
	}
	return out, nil
}

// On registers fn for the given event on a scanned element.
func (s *Source) On(el blockwatch.ElementRef, event string, fn func()) {
	k := el.XPath + "|" + event
	s.mu.Lock()
	s.inputFns[k] = append(s.inputFns[k], fn)
	s.mu.Unlock()

	js := fmt.Sprintf(`() => { if (window.__blockwatch_bind) window.__blockwatch_bind(%q, %q) }`, el.XPath, event)
	if _, err := s.page.Eval(js); err != nil {
		s.logger.Warn("rodsource: bind input failed", "xpath", el.XPath, "error", err)
	}
}

// Off removes every handler for the given event on an element.
func (s *Source) Off(el blockwatch.ElementRef, event string) {
	k := el.XPath + "|" + event
	s.mu.Lock()
	delete(s.inputFns, k)
	s.mu.Unlock()

	js := fmt.Sprintf(`() => { if (window.__blockwatch_unbind) window.__blockwatch_unbind(%q, %q) }`, el.XPath, event)
	if _, err := s.page.Eval(js); err != nil {
		s.logger.Warn("rodsource: unbind input failed", "xpath", el.XPath, "error", err)
	}
}

// Close cancels the binding listener and closes the page.
func (s *Source) Close() {
	s.cancel()
	if err := s.page.Close(); err != nil {
		s.logger.Warn("rodsource: close page failed", "error", err)
	}
}

// listenBinding receives calls from the injected observer via
// Runtime.bindingCalled and dispatches flushes and input events.
func (s *Source) listenBinding() {
	s.page.Context(s.ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}

		var msg struct {
			Type   string    `json:"type"`
			Events []jsEvent `json:"events"`
			XPath  string    `json:"xpath"`
			Event  string    `json:"event"`
		}
		if err := json.Unmarshal([]byte(e.Payload), &msg); err != nil {
			s.logger.Warn("rodsource: parse binding payload", "error", err)
			return
		}

		switch msg.Type {
		case "flush":
			s.dispatchFlush(msg.Events)
		case "input":
			s.dispatchInput(msg.XPath, msg.Event)
		}
	})()
}

type jsNode struct {
	XPath   string   `json:"xpath"`
	Tag     string   `json:"tag"`
	Classes []string `json:"classes"`
}

func (n jsNode) node() mutation.Node {
	return mutation.Node{XPath: n.XPath, Tag: n.Tag, Classes: n.Classes}
}

type jsEvent struct {
	Kind      string   `json:"kind"`
	Target    jsNode   `json:"target"`
	Added     []jsNode `json:"added"`
	Removed   []jsNode `json:"removed"`
	Attribute string   `json:"attribute"`
	OldValue  string   `json:"old_value"`
}

func (s *Source) dispatchFlush(raw []jsEvent) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h == nil || len(raw) == 0 {
		return
	}

	events := make([]mutation.Event, 0, len(raw))
	for _, r := range raw {
		ev := mutation.Event{
			Kind:          mutation.Kind(r.Kind),
			Target:        r.Target.node(),
			AttributeName: r.Attribute,
			OldValue:      r.OldValue,
		}
		for _, n := range r.Added {
			ev.AddedNodes = append(ev.AddedNodes, n.node())
		}
		for _, n := range r.Removed {
			ev.RemovedNodes = append(ev.RemovedNodes, n.node())
		}
		events = append(events, ev)
	}
	h(events)
}

func (s *Source) dispatchInput(xpath, event string) {
	s.mu.Lock()
	fns := append([]func(){}, s.inputFns[xpath+"|"+event]...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mbaranovski/editor.js/blockwatch/mutation"
)

type fakeStore struct {
	ref   UnitRef
	ok    bool
	err   error
	calls int
}

func (s *fakeStore) CurrentUnit(context.Context) (UnitRef, bool, error) {
	s.calls++
	return s.ref, s.ok, s.err
}

type fakeSerializer struct {
	snaps map[string]*mutation.UnitSnapshot
	err   error
}

func (f *fakeSerializer) Serialize(_ context.Context, unitID string) (*mutation.UnitSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snaps[unitID], nil
}

func textEvent() mutation.Event {
	return mutation.Event{Kind: mutation.KindText, Target: mutation.Node{XPath: "/div[1]/p[1]/text()"}}
}

func wrapperAttrEvent() mutation.Event {
	return mutation.Event{
		Kind:   mutation.KindAttribute,
		Target: mutation.Node{XPath: "/div[1]", Classes: []string{mutation.WrapperClass}},
	}
}

func TestResolve_SingleTextChange(t *testing.T) {
	store := &fakeStore{ref: UnitRef{ID: "u1"}, ok: true}
	ser := &fakeSerializer{snaps: map[string]*mutation.UnitSnapshot{
		"u1": {ToolID: "paragraph", UnitID: "u1", Data: json.RawMessage(`{"text":"hi"}`)},
	}}
	r := New(store, ser)

	got := r.Resolve(context.Background(), []mutation.Event{textEvent()})
	if len(got) != 1 {
		t.Fatalf("snapshots: got %d, want 1", len(got))
	}
	if got[0].ToolID != "paragraph" || got[0].UnitID != "u1" {
		t.Errorf("snapshot: got %+v", got[0])
	}
}

func TestResolve_StructuralEventsSkipped(t *testing.T) {
	store := &fakeStore{ref: UnitRef{ID: "u1"}, ok: true}
	ser := &fakeSerializer{snaps: map[string]*mutation.UnitSnapshot{"u1": {UnitID: "u1"}}}
	r := New(store, ser)

	got := r.Resolve(context.Background(), []mutation.Event{wrapperAttrEvent()})
	if len(got) != 0 {
		t.Fatalf("snapshots: got %d, want 0", len(got))
	}
	if store.calls != 0 {
		t.Errorf("store lookups for structural event: got %d, want 0", store.calls)
	}
}

func TestResolve_NoCurrentUnitSkipsSilently(t *testing.T) {
	store := &fakeStore{ok: false}
	r := New(store, &fakeSerializer{})

	got := r.Resolve(context.Background(), []mutation.Event{textEvent(), textEvent()})
	if len(got) != 0 {
		t.Fatalf("snapshots: got %d, want 0", len(got))
	}
}

func TestResolve_NilSnapshotSkipsSilently(t *testing.T) {
	store := &fakeStore{ref: UnitRef{ID: "gone"}, ok: true}
	ser := &fakeSerializer{snaps: map[string]*mutation.UnitSnapshot{}}
	r := New(store, ser)

	got := r.Resolve(context.Background(), []mutation.Event{textEvent()})
	if len(got) != 0 {
		t.Fatalf("snapshots: got %d, want 0 (unit deleted between lookup and serialization)", len(got))
	}
}

func TestResolve_SerializeErrorDropsOnlyThatEvent(t *testing.T) {
	store := &fakeStore{ref: UnitRef{ID: "u1"}, ok: true}
	failing := &fakeSerializer{err: errors.New("boom")}
	r := New(store, failing)

	got := r.Resolve(context.Background(), []mutation.Event{textEvent(), textEvent()})
	if len(got) != 0 {
		t.Fatalf("snapshots: got %d, want 0", len(got))
	}
	// Both events must have gone through their own lookup: one failure does
	// not abort the rest of the flush.
	if store.calls != 2 {
		t.Errorf("store lookups: got %d, want 2", store.calls)
	}
}

func TestResolve_NoDedupWithinFlush(t *testing.T) {
	store := &fakeStore{ref: UnitRef{ID: "u1"}, ok: true}
	ser := &fakeSerializer{snaps: map[string]*mutation.UnitSnapshot{
		"u1": {ToolID: "paragraph", UnitID: "u1"},
	}}
	r := New(store, ser)

	got := r.Resolve(context.Background(), []mutation.Event{textEvent(), textEvent(), textEvent()})
	if len(got) != 3 {
		t.Fatalf("snapshots: got %d, want 3 (no dedup by unit id)", len(got))
	}
}

func TestResolve_OrderPreserved(t *testing.T) {
	// Alternate the current unit between lookups to check arrival order.
	store := &switchingStore{ids: []string{"a", "b"}}
	ser := &fakeSerializer{snaps: map[string]*mutation.UnitSnapshot{
		"a": {UnitID: "a"},
		"b": {UnitID: "b"},
	}}
	r := New(store, ser)

	got := r.Resolve(context.Background(), []mutation.Event{textEvent(), textEvent()})
	if len(got) != 2 || got[0].UnitID != "a" || got[1].UnitID != "b" {
		t.Fatalf("order: got %+v, want [a b]", got)
	}
}

type switchingStore struct {
	ids []string
	i   int
}

func (s *switchingStore) CurrentUnit(context.Context) (UnitRef, bool, error) {
	id := s.ids[s.i%len(s.ids)]
	s.i++
	return UnitRef{ID: id}, true, nil
}

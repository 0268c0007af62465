package inspect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mbaranovski/editor.js/blockwatch"
)

type nopSource struct{}

func (nopSource) Subscribe(_ blockwatch.SubscribeOptions, _ blockwatch.FlushHandler) (blockwatch.Subscription, error) {
	return nopSub{}, nil
}

type nopSub struct{}

func (nopSub) Cancel() {}

type nopStore struct{}

func (nopStore) CurrentUnit(context.Context) (blockwatch.UnitRef, bool, error) {
	return blockwatch.UnitRef{}, false, nil
}

func newWatcher(t *testing.T) *blockwatch.Watcher {
	t.Helper()
	w := blockwatch.New(blockwatch.Options{
		Source: nopSource{},
		Store:  nopStore{},
	})
	t.Cleanup(w.Destroy)
	return w
}

func TestStateEndpoint(t *testing.T) {
	srv := httptest.NewServer(Handler(newWatcher(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["state"] != "uninitialized" {
		t.Fatalf("state = %q, want uninitialized", body["state"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := httptest.NewServer(Handler(newWatcher(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var stats blockwatch.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Flushes != 0 || stats.Notifications != 0 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
}

func TestLastBatchEmpty(t *testing.T) {
	srv := httptest.NewServer(Handler(newWatcher(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/last-batch")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

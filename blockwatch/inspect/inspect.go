// Package inspect exposes watcher internals over HTTP for debugging:
// lifecycle state, counters, and the most recent batch.
package inspect

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbaranovski/editor.js/blockwatch"
)

// Handler returns the debug router for a watcher.
func Handler(w *blockwatch.Watcher) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/state", func(rw http.ResponseWriter, _ *http.Request) {
		writeJSON(rw, map[string]string{"state": w.State()})
	})
	r.Get("/stats", func(rw http.ResponseWriter, _ *http.Request) {
		writeJSON(rw, w.Stats())
	})
	r.Get("/last-batch", func(rw http.ResponseWriter, _ *http.Request) {
		b, ok := w.LastBatch()
		if !ok {
			http.Error(rw, "no batch emitted yet", http.StatusNotFound)
			return
		}
		writeJSON(rw, b)
	})

	return r
}

// Serve runs the debug endpoint on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, w *blockwatch.Watcher, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	srv := &http.Server{Addr: addr, Handler: Handler(w)}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			logger.Warn("inspect: shutdown", "error", err)
		}
	}()

	logger.Info("inspect: listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
	}
}

package board

import (
	"context"
	"sync"
)

// Hub hands out one Engine per project so that every caller looking at
// a project shares its board and subscribers.
type Hub struct {
	store Store
	opts  Options

	mu      sync.Mutex
	engines map[string]*Engine
}

// NewHub creates a hub whose engines share s and opts.
func NewHub(s Store, opts Options) *Hub {
	return &Hub{store: s, opts: opts, engines: make(map[string]*Engine)}
}

// Engine returns the engine for projectID, creating and refreshing it
// on first use. If that first refresh fails but a cached board exists,
// the engine is returned serving the cached board. Such an engine is
// read-only; every later call retries the store until a refresh
// succeeds.
func (h *Hub) Engine(ctx context.Context, projectID string) (*Engine, error) {
	h.mu.Lock()
	e, ok := h.engines[projectID]
	h.mu.Unlock()
	if ok {
		if e.Project() == nil {
			if err := e.Refresh(ctx); err != nil {
				e.log.WithError(err).Debug("store still unavailable, keeping cached board")
			}
		}
		return e, nil
	}

	e = NewEngine(projectID, h.store, h.opts)
	if err := e.Refresh(ctx); err != nil {
		cached := h.cached(ctx, projectID)
		if cached == nil {
			return nil, err
		}
		e.log.WithError(err).Warn("store unavailable, serving cached board")
		e.seed(*cached)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	// Another caller may have won the race.
	if existing, ok := h.engines[projectID]; ok {
		return existing, nil
	}
	h.engines[projectID] = e
	return e, nil
}

func (h *Hub) cached(ctx context.Context, projectID string) *Board {
	if h.opts.Cache == nil {
		return nil
	}
	b, err := h.opts.Cache.Get(ctx, projectID)
	if err != nil {
		return nil
	}
	return b
}

// Forget drops the engine of a deleted project.
func (h *Hub) Forget(projectID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.engines, projectID)
}

package feed

import (
	"sync"

	"main/internal/model"
)

// DefaultWindowCap bounds the rolling observation history per instrument.
const DefaultWindowCap = 100

// Window is a bounded rolling history of observations for one instrument,
// oldest evicted first.
type Window struct {
	cap int
	obs []model.Observation
}

// NewWindow creates a window with the given capacity.
func NewWindow(cap int) *Window {
	if cap <= 0 {
		cap = DefaultWindowCap
	}
	return &Window{cap: cap}
}

// Push appends an observation, evicting the oldest at capacity.
func (w *Window) Push(o model.Observation) {
	if len(w.obs) == w.cap {
		copy(w.obs, w.obs[1:])
		w.obs[len(w.obs)-1] = o
		return
	}
	w.obs = append(w.obs, o)
}

// Len returns the number of held observations.
func (w *Window) Len() int {
	return len(w.obs)
}

// Last returns the most recent observation.
func (w *Window) Last() (model.Observation, bool) {
	if len(w.obs) == 0 {
		return model.Observation{}, false
	}
	return w.obs[len(w.obs)-1], true
}

// Snapshot copies the window oldest-first.
func (w *Window) Snapshot() []model.Observation {
	out := make([]model.Observation, len(w.obs))
	copy(out, w.obs)
	return out
}

// Windows holds one Window per instrument. The mutex is scoped to this
// store only: it serializes the owner's message handler against the
// owner's cycle task, never across components.
type Windows struct {
	mu  sync.Mutex
	cap int
	m   map[string]*Window
}

// NewWindows creates an empty per-instrument store.
func NewWindows(cap int) *Windows {
	return &Windows{cap: cap, m: make(map[string]*Window)}
}

// Push appends the observation to its instrument's window.
func (ws *Windows) Push(o model.Observation) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	w, ok := ws.m[o.Symbol]
	if !ok {
		w = NewWindow(ws.cap)
		ws.m[o.Symbol] = w
	}
	w.Push(o)
}

// Snapshot copies one instrument's window.
func (ws *Windows) Snapshot(symbol string) []model.Observation {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	w, ok := ws.m[symbol]
	if !ok {
		return nil
	}
	return w.Snapshot()
}

// LastPrice returns the most recent price for the instrument.
func (ws *Windows) LastPrice(symbol string) (float64, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	w, ok := ws.m[symbol]
	if !ok {
		return 0, false
	}
	last, ok := w.Last()
	if !ok {
		return 0, false
	}
	return last.Price, true
}

// Symbols lists instruments with at least one observation.
func (ws *Windows) Symbols() []string {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	out := make([]string, 0, len(ws.m))
	for s := range ws.m {
		out = append(out, s)
	}
	return out
}

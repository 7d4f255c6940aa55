package exec

import (
	"sync"
	"time"

	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

// Tracked is the executor's local retry bookkeeping for one order. It is
// never persisted; the canonical order status lives on the order itself.
type Tracked struct {
	Order       model.Order
	Status      enum.TrackStatus
	Attempts    int
	LastAttempt time.Time
	Simulated   bool
}

// Tracker is the pending-orders map. It is owned by the execution
// component and touched only from its handlers and monitor task; the
// mutex serializes those against each other, nothing else.
type Tracker struct {
	mu sync.Mutex
	m  map[string]*Tracked
}

// NewTracker creates an empty map.
func NewTracker() *Tracker {
	return &Tracker{m: make(map[string]*Tracked)}
}

// Add starts tracking an order. Entries without an explicit tracking
// state start as PENDING.
func (t *Tracker) Add(entry Tracked) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.m[entry.Order.ID]; ok {
		return exception.ErrOrderDuplicate
	}
	if entry.Status == "" {
		entry.Status = enum.TrackStatusPending
	}
	if entry.LastAttempt.IsZero() {
		entry.LastAttempt = time.Now().UTC()
	}
	t.m[entry.Order.ID] = &entry
	return nil
}

// Get returns a copy of one tracked entry.
func (t *Tracker) Get(orderID string) (Tracked, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.m[orderID]
	if !ok {
		return Tracked{}, false
	}
	return *entry, true
}

// Update applies fn to one entry in place.
func (t *Tracker) Update(orderID string, fn func(*Tracked)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.m[orderID]
	if !ok {
		return false
	}
	fn(entry)
	return true
}

// Remove stops tracking an order.
func (t *Tracker) Remove(orderID string) {
	t.mu.Lock()
	delete(t.m, orderID)
	t.mu.Unlock()
}

// Finish stamps the terminal tracking state, stops tracking the order
// and returns the finished entry.
func (t *Tracker) Finish(orderID string, status enum.TrackStatus) (Tracked, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.m[orderID]
	if !ok {
		return Tracked{}, false
	}
	entry.Status = status
	delete(t.m, orderID)
	return *entry, true
}

// trackOutcome folds a terminal exchange status into the local tracking
// state.
func trackOutcome(status enum.OrderStatus) enum.TrackStatus {
	switch status {
	case enum.OrderStatusFilled:
		return enum.TrackStatusCompleted
	case enum.OrderStatusCanceled:
		return enum.TrackStatusCancelled
	default:
		return enum.TrackStatusFailed
	}
}

// Snapshot returns copies of every tracked entry.
func (t *Tracker) Snapshot() []Tracked {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Tracked, 0, len(t.m))
	for _, entry := range t.m {
		out = append(out, *entry)
	}
	return out
}

// Len reports how many orders are tracked.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}

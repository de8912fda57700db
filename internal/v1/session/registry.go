package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/blazerhq/blazer/internal/v1/logging"
	"github.com/blazerhq/blazer/internal/v1/metrics"
)

// SinkCapacity bounds each session's outbound buffer.
const SinkCapacity = 128

// sendTimeout bounds how long a fan-out waits on a full sink before giving
// up on that recipient.
const sendTimeout = 100 * time.Millisecond

// Sink is the send endpoint of a session's outbound event channel. The
// receive endpoint lives inside the session's pump.
type Sink chan Event

// Registry maps connected user ids to their session sinks. All operations
// are safe under concurrent invocation; the mutex is never held across a
// channel send or any I/O.
type Registry struct {
	mu    sync.RWMutex
	sinks map[string]Sink
}

func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]Sink)}
}

// Insert registers sink for userID, replacing any existing entry. A replaced
// sink is closed so the orphaned session's pump terminates instead of
// lingering as a zombie.
func (r *Registry) Insert(userID string, sink Sink) {
	r.mu.Lock()
	old, replaced := r.sinks[userID]
	r.sinks[userID] = sink
	r.mu.Unlock()

	if replaced {
		logging.Warn(context.Background(), "Replaced existing session sink",
			zap.String("userId", userID))
		close(old)
	}
	metrics.ActiveSessions.Set(float64(r.Len()))
}

// Lookup returns the sink registered for userID.
func (r *Registry) Lookup(userID string) (Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sinks[userID]
	return sink, ok
}

// Remove deregisters userID. Removing an absent entry is a no-op.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	delete(r.sinks, userID)
	r.mu.Unlock()
	metrics.ActiveSessions.Set(float64(r.Len()))
}

// RemoveSink deregisters userID only if sink is still the registered entry.
// Cleanup of a replaced session must not evict its successor.
func (r *Registry) RemoveSink(userID string, sink Sink) bool {
	r.mu.Lock()
	current, ok := r.sinks[userID]
	if ok && current == sink {
		delete(r.sinks, userID)
	} else {
		ok = false
	}
	r.mu.Unlock()
	metrics.ActiveSessions.Set(float64(r.Len()))
	return ok
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}

// Send enqueues ev onto userID's sink, waiting up to sendTimeout if the sink
// is full. It reports whether the enqueue succeeded; callers fan out to many
// recipients and must not abort on a single failure.
func (r *Registry) Send(ctx context.Context, userID string, ev Event) (delivered bool) {
	sink, ok := r.Lookup(userID)
	if !ok {
		logging.Warn(ctx, "Dropping event for unregistered user",
			zap.String("userId", userID), zap.String("eventType", ev.Type.String()))
		metrics.EventsSent.WithLabelValues(ev.Type.String(), "dropped").Inc()
		return false
	}

	// The sink may be closed concurrently by a replacing Insert; a send on a
	// closed channel panics, so recover and report failure.
	defer func() {
		if rec := recover(); rec != nil {
			logging.Warn(ctx, "Sink closed during send",
				zap.String("userId", userID), zap.Any("panic", rec))
			metrics.EventsSent.WithLabelValues(ev.Type.String(), "dropped").Inc()
			delivered = false
		}
	}()

	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()

	select {
	case sink <- ev:
		metrics.EventsSent.WithLabelValues(ev.Type.String(), "ok").Inc()
		return true
	case <-timer.C:
		logging.Warn(ctx, "Session sink full, dropping event",
			zap.String("userId", userID), zap.String("eventType", ev.Type.String()))
		metrics.EventsSent.WithLabelValues(ev.Type.String(), "timeout").Inc()
		return false
	}
}

package session

import (
	"time"

	"github.com/AltairaLabs/voice-gateway/internal/eventcodec"
	"github.com/AltairaLabs/voice-gateway/internal/gwerrors"
)

// DefaultOutboundQueueCap is the soft cap applied when a Session is built
// with queueCap == 0.
const DefaultOutboundQueueCap = 1000

// ErrQueueOverflow signals the fatal "exceeding the cap" condition of
// §4.4: enqueuing past the soft cap is a fatal session error, not a
// transient backpressure signal.
func ErrQueueOverflow(sessionID string) *gwerrors.ContextualError {
	return gwerrors.New(gwerrors.KindResource, "session", "enqueue", nil).
		WithDetails(map[string]any{"sessionId": sessionID})
}

// enqueue appends a single event to the outbound queue under s.mu, the
// only mutex guarding phase/queue/observer per §5.
func (s *Session) enqueue(ev eventcodec.OutboundEvent) error {
	return s.enqueueAll([]eventcodec.OutboundEvent{ev})
}

// enqueueAll appends every event in evs atomically, so no other session
// output can interleave between them — required for phase-boundary
// groups and the three-frame tool-result sequence (§5).
func (s *Session) enqueueAll(evs []eventcodec.OutboundEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queueClosed {
		return nil
	}
	if len(s.queue)+len(evs) > s.queueCap {
		return ErrQueueOverflow(s.SessionID)
	}
	s.queue = append(s.queue, evs...)
	s.lastActivity = time.Now()
	s.cond.Broadcast()
	return nil
}

// PopOutbound removes and returns the head event, blocking until one is
// available or the queue is closed. ok is false once the queue is closed
// and fully drained — the signal C5's drain loop uses to exit (§4.5).
func (s *Session) PopOutbound() (ev eventcodec.OutboundEvent, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queue) == 0 && !s.queueClosed {
		s.cond.Wait()
	}
	if len(s.queue) == 0 {
		return eventcodec.OutboundEvent{}, false
	}
	ev = s.queue[0]
	s.queue = s.queue[1:]
	return ev, true
}

// CloseOutbound marks the queue closed and wakes any blocked PopOutbound.
func (s *Session) CloseOutbound() {
	s.mu.Lock()
	s.queueClosed = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

// OutboundLen reports the current queue depth, for metrics.
func (s *Session) OutboundLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

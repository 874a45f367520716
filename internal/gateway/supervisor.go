package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AltairaLabs/voice-gateway/internal/metrics"
	"github.com/AltairaLabs/voice-gateway/internal/session"
)

// defaultShutdownGrace bounds how long Shutdown waits for active sessions
// to drain before forcing release (§4.8, §5 "Timeouts").
const defaultShutdownGrace = 5 * time.Second

// SupervisorOption configures a Supervisor, mirroring the teacher's own
// functional-options server construction (server/a2a/server.go's
// Option/With* pattern).
type SupervisorOption func(*Supervisor)

// WithMaxConcurrentSessions sets the process-wide session cap (§4.8).
func WithMaxConcurrentSessions(n int) SupervisorOption {
	return func(s *Supervisor) { s.maxSessions = n }
}

// WithShutdownGrace overrides the default graceful-shutdown timeout.
func WithShutdownGrace(d time.Duration) SupervisorOption {
	return func(s *Supervisor) { s.shutdownGrace = d }
}

// WithIdleTimeout overrides the default per-session idle cutoff (§5
// "Timeouts").
func WithIdleTimeout(d time.Duration) SupervisorOption {
	return func(s *Supervisor) { s.idleTimeout = d }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) SupervisorOption {
	return func(s *Supervisor) { s.logger = logger }
}

// Supervisor is the Gateway Supervisor (C8, §4.8): it enforces a
// process-wide concurrent-session cap, sweeps idle sessions, and drives
// every active session to Terminated on shutdown within a bounded grace
// period. Grounded on server/a2a/server.go's active-resource map guarded
// by its own mutex (never held across I/O) plus its eviction-loop shape.
type Supervisor struct {
	maxSessions   int
	shutdownGrace time.Duration
	idleTimeout   time.Duration
	logger        *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session.Session

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewSupervisor builds a Supervisor with the given options.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		maxSessions:   100,
		shutdownGrace: defaultShutdownGrace,
		idleTimeout:   2 * time.Minute,
		sessions:      make(map[string]*session.Session),
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	go s.evictionLoop()
	return s
}

// Register admits sess into the active set, rejecting it if the process
// is already at its concurrent-session cap (§4.8). The lock is held only
// for the map mutation, never across I/O (§5 "Shared state").
func (s *Supervisor) Register(sess *session.Session) bool {
	s.mu.Lock()
	if len(s.sessions) >= s.maxSessions {
		s.mu.Unlock()
		return false
	}
	s.sessions[sess.SessionID] = sess
	s.mu.Unlock()
	metrics.RecordSessionOpened()
	return true
}

// Unregister removes a session from the active set, idempotently, and
// records its teardown reason on the sessions_closed_total metric
// (§10.5, §4.9) — defaulting to client_close, the ordinary case of a
// socket closing without any prior error having marked a reason.
func (s *Supervisor) Unregister(sessionID string) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if ok {
		metrics.RecordSessionClosed(sess.TeardownReason(metrics.ReasonClientClose))
	}
}

// ActiveCount reports how many sessions are currently registered, for
// metrics.
func (s *Supervisor) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown drives every active session to Terminated and waits up to the
// configured grace period for them to finish draining (§4.8, §5).
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.stopOnce.Do(func() { close(s.stopCh) })

	s.mu.Lock()
	sessions := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.MarkTeardownReason(metrics.ReasonSupervisorShutdown)
		_ = sess.Close()
	}

	deadline := time.After(s.shutdownGrace)
	for {
		if s.ActiveCount() == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// evictionLoop periodically closes sessions that have exceeded the idle
// timeout (§5 "Timeouts").
func (s *Supervisor) evictionLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.evictIdle()
			s.reportQueueDepth()
		}
	}
}

// reportQueueDepth sets the OutboundQueueDepth gauge to the sum of every
// active session's outbound queue length (§10.5).
func (s *Supervisor) reportQueueDepth() {
	s.mu.Lock()
	sessions := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	total := 0
	for _, sess := range sessions {
		total += sess.OutboundLen()
	}
	metrics.RecordOutboundQueueDepth(total)
}

func (s *Supervisor) evictIdle() {
	if s.idleTimeout <= 0 {
		return
	}
	s.mu.Lock()
	sessions := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		if sess.Active() && sess.IdleSince() > s.idleTimeout {
			s.logger.Info("closing idle session", "sessionId", sess.SessionID)
			sess.MarkTeardownReason(metrics.ReasonSessionTimeout)
			if observer := sess.GetObserver(); observer != nil {
				observer.OnSessionTimeout("session idle timeout exceeded")
			}
			// §4.4: idle timeout drives any phase -> Errored, not
			// Terminated — the same "no further events enqueued" path
			// a model-side reset takes (§4.5 point 3).
			_ = sess.Fail("idle timeout")
		}
	}
}

// Package session implements the Session State Machine (C4, §4.4): the
// per-session authoritative phase, its guarded outbound queue, and the
// observer the Client Connection Handler registers to receive inbound
// model events. Grounded on the teacher's duplex session lifecycle
// (sdk/session/duplex_session.go) for the channel-free, mutex-guarded
// state-holder shape, and on its own design notes (§9) recommending a
// SessionObserver interface in place of a callback dictionary.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AltairaLabs/voice-gateway/internal/eventcodec"
)

// Phase is a discrete state of the session state machine (§4.4).
type Phase string

// Recognized phases.
const (
	PhaseCreated         Phase = "Created"
	PhaseInitialized     Phase = "Initialized"
	PhasePromptStarted   Phase = "PromptStarted"
	PhaseSystemPromptSet Phase = "SystemPromptSet"
	PhaseAudioOpen       Phase = "AudioOpen"
	PhaseAudioClosed     Phase = "AudioClosed"
	PhaseTerminated      Phase = "Terminated"
	PhaseErrored         Phase = "Errored"
)

// Identity is the decoded, immutable identity of the authenticated caller
// (§3 userIdentity).
type Identity struct {
	UserID      string
	DisplayName string
	Claims      map[string]any
}

// InferenceConfig carries the session's immutable inference parameters
// (§3).
type InferenceConfig struct {
	MaxTokens   int
	TopP        float64
	Temperature float64
}

// HistoryMessage is one (role, text) pair produced by transcript parsing
// (§4.4 "History injection").
type HistoryMessage struct {
	Role eventcodec.Role
	Text string
}

// Observer receives inbound model events routed through the session
// (§9's SessionObserver design note, replacing a per-session callback
// dictionary keyed by event kind). Implemented by the Client Connection
// Handler (C7). All methods must return quickly; slow work must be
// handed off, since the pump loop (C5) calls these synchronously.
type Observer interface {
	OnContentStart(contentID string, contentType eventcodec.ContentType, role eventcodec.Role, stage eventcodec.GenerationStage, hasStage bool)
	OnTextOutput(contentID, text string)
	OnAudioOutput(contentID, audioBase64 string)
	OnContentEnd(contentID string, stopReason eventcodec.StopReason)
	OnStreamComplete()
	OnToolResult(toolUseID string, result []byte)
	OnError(message string)
	OnSessionTimeout(message string)
}

// Session is the central entity of §3. A single mutex guards phase, the
// outbound queue, and the observer reference (the state §5 names as shared
// across a session's tasks), and also the session's other mutable fields:
// prompt and audio content IDs, activity time, pacing delay, teardown
// reason and close hook.
type Session struct {
	SessionID string
	Identity  Identity

	InferenceConfig InferenceConfig

	mu               sync.Mutex
	cond             *sync.Cond
	phase            Phase
	promptID         string
	audioContentID   string
	queue            []eventcodec.OutboundEvent
	queueCap         int
	queueClosed      bool
	observer         Observer
	active           bool
	isFirstTurn      bool
	systemPromptText string

	createdAt    time.Time
	lastActivity time.Time

	phasePause     time.Duration
	teardownReason string

	onClose     func()
	onCloseOnce sync.Once
}

// DefaultPhasePause is the pacing delay applied after enqueuing a
// phase-boundary frame group (§5 "Phase transition pacing"): a pragmatic
// accommodation for the model needing certain events observed in separate
// frames, not a correctness requirement of this state machine itself.
const DefaultPhasePause = 100 * time.Millisecond

// New creates a Session in PhaseCreated. queueCap is the soft cap on the
// outbound queue (§4.4); 0 selects DefaultOutboundQueueCap.
func New(sessionID string, identity Identity, cfg InferenceConfig, queueCap int) *Session {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if queueCap <= 0 {
		queueCap = DefaultOutboundQueueCap
	}
	now := time.Now()
	s := &Session{
		SessionID:       sessionID,
		Identity:        identity,
		InferenceConfig: cfg,
		phase:           PhaseCreated,
		queueCap:        queueCap,
		active:          true,
		isFirstTurn:     true,
		createdAt:       now,
		lastActivity:    now,
		phasePause:      DefaultPhasePause,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// SetPhasePause overrides the post-transition pacing delay (default
// DefaultPhasePause); tests set this to 0 to avoid real sleeps.
func (s *Session) SetPhasePause(d time.Duration) {
	s.mu.Lock()
	s.phasePause = d
	s.mu.Unlock()
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Active reports whether the session is still considered live.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetObserver registers the Observer that receives inbound model events.
func (s *Session) SetObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// GetObserver returns the currently registered Observer, or nil.
func (s *Session) GetObserver() Observer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observer
}

// MarkTeardownReason records why this session is about to leave the
// active set, for the Gateway Supervisor's sessions_closed_total metric
// (§10.5). First writer wins: whichever component first detects the
// terminal condition (client read loop, model worker, idle sweep,
// supervisor shutdown) supplies the reason that sticks.
func (s *Session) MarkTeardownReason(reason string) {
	s.mu.Lock()
	if s.teardownReason == "" {
		s.teardownReason = reason
	}
	s.mu.Unlock()
}

// TeardownReason returns the recorded teardown reason, defaulting to def
// if none was set (the ordinary case of a client closing the socket
// without any prior error).
func (s *Session) TeardownReason(def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.teardownReason == "" {
		return def
	}
	return s.teardownReason
}

// SetOnClose registers fn to run exactly once, the first time this
// session reaches Terminated or Errored by any path (client close, model
// failure, idle eviction, supervisor shutdown). The Client Connection
// Handler uses this to close both the client and model sockets so their
// blocked reads unblock promptly regardless of which side or which
// component (C5's pump, C7's read loop, the Supervisor's idle sweep)
// first detected the terminal condition — satisfying §3's "removed from
// the active set within a bounded delay ... regardless of the reason"
// without every teardown path needing its own transport references.
func (s *Session) SetOnClose(fn func()) {
	s.mu.Lock()
	s.onClose = fn
	s.mu.Unlock()
}

func (s *Session) fireOnClose() {
	s.mu.Lock()
	fn := s.onClose
	s.mu.Unlock()
	if fn != nil {
		s.onCloseOnce.Do(fn)
	}
}

// Touch records inbound or outbound activity, resetting the idle clock.
// Called by C5 on every frame read or written (§5 "suspension points").
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// IdleSince reports how long it has been since the session last saw
// activity.
func (s *Session) IdleSince() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

// PromptID returns the current prompt identifier, set by SetupPromptStart.
func (s *Session) PromptID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promptID
}

// AudioContentID returns the current audio content identifier, regenerated
// on every StartAudio call (§3 invariant: never reused).
func (s *Session) AudioContentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioContentID
}

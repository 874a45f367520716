package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AltairaLabs/voice-gateway/internal/eventcodec"
	"github.com/AltairaLabs/voice-gateway/internal/gwerrors"
)

// pause applies the configured post-transition pacing delay (§5 "Phase
// transition pacing") after a phase-boundary frame group has been
// enqueued.
func (s *Session) pause() {
	s.mu.Lock()
	d := s.phasePause
	s.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
}

// IllegalPhase reports that a transition was attempted from a phase that
// does not permit it (§4.4: "Transitions that do not appear are errors").
type IllegalPhase struct {
	From  Phase
	Event string
}

func (e *IllegalPhase) Error() string {
	return fmt.Sprintf("session: illegal transition %q from phase %q", e.Event, e.From)
}

func illegalPhase(from Phase, event string) error {
	return &IllegalPhase{From: from, Event: event}
}

// setPhase transitions the phase. Caller must hold s.mu.
func (s *Session) setPhase(p Phase) {
	s.phase = p
}

// OpenModelStream drives Created → Initialized, enqueuing sessionStart
// (§4.4).
func (s *Session) OpenModelStream() error {
	s.mu.Lock()
	if s.phase != PhaseCreated {
		from := s.phase
		s.mu.Unlock()
		return illegalPhase(from, "open model stream")
	}
	s.setPhase(PhaseInitialized)
	s.mu.Unlock()

	err := s.enqueue(eventcodec.NewSessionStart(eventcodec.InferenceConfig{
		MaxTokens:   s.InferenceConfig.MaxTokens,
		TopP:        s.InferenceConfig.TopP,
		Temperature: s.InferenceConfig.Temperature,
	}))
	s.pause()
	return err
}

// SetupPromptStart drives Initialized → PromptStarted, enqueuing
// promptStart with the given tool schemas (§4.4).
func (s *Session) SetupPromptStart(tools []eventcodec.ToolSpecEntry) error {
	s.mu.Lock()
	if s.phase != PhaseInitialized {
		from := s.phase
		s.mu.Unlock()
		return illegalPhase(from, "setup prompt start")
	}
	s.promptID = uuid.NewString()
	promptID := s.promptID
	s.setPhase(PhasePromptStarted)
	s.mu.Unlock()

	err := s.enqueue(eventcodec.NewPromptStart(promptID, tools))
	s.pause()
	return err
}

// SetupSystemPrompt drives PromptStarted → SystemPromptSet, enqueuing the
// content-start/textInput/content-end triple (§4.4) atomically.
func (s *Session) SetupSystemPrompt(text string) error {
	s.mu.Lock()
	if s.phase != PhasePromptStarted {
		from := s.phase
		s.mu.Unlock()
		return illegalPhase(from, "setup system prompt")
	}
	s.systemPromptText = text
	s.setPhase(PhaseSystemPromptSet)
	s.mu.Unlock()

	err := s.enqueueAll(systemPromptFrames(text))
	s.pause()
	return err
}

func systemPromptFrames(text string) []eventcodec.OutboundEvent {
	contentID := uuid.NewString()
	return []eventcodec.OutboundEvent{
		eventcodec.NewContentStart(contentID, eventcodec.ContentTypeText, eventcodec.RoleSystem),
		eventcodec.NewTextInput(contentID, text),
		eventcodec.NewContentEnd(contentID),
	}
}

// InjectHistoryMessage drives the SystemPromptSet self-loop "inject
// history messages" (§4.4): for each parsed transcript message, enqueues
// a content-start/textInput/content-end triple tagged with the message's
// role.
func (s *Session) InjectHistoryMessage(msg HistoryMessage) error {
	s.mu.Lock()
	if s.phase != PhaseSystemPromptSet {
		from := s.phase
		s.mu.Unlock()
		return illegalPhase(from, "inject history messages")
	}
	s.mu.Unlock()

	contentID := uuid.NewString()
	err := s.enqueueAll([]eventcodec.OutboundEvent{
		eventcodec.NewContentStart(contentID, eventcodec.ContentTypeText, msg.Role),
		eventcodec.NewTextInput(contentID, msg.Text),
		eventcodec.NewContentEnd(contentID),
	})
	s.pause()
	return err
}

// StartAudio drives SystemPromptSet|AudioClosed → AudioOpen, regenerating
// audioContentId and enqueuing a content-start for it (§4.4).
func (s *Session) StartAudio() error {
	s.mu.Lock()
	if s.phase != PhaseSystemPromptSet && s.phase != PhaseAudioClosed {
		from := s.phase
		s.mu.Unlock()
		return illegalPhase(from, "start audio")
	}
	s.audioContentID = uuid.NewString()
	contentID := s.audioContentID
	s.setPhase(PhaseAudioOpen)
	s.mu.Unlock()

	err := s.enqueue(eventcodec.NewContentStart(contentID, eventcodec.ContentTypeAudio, eventcodec.RoleUser))
	s.pause()
	return err
}

// AudioChunk drives the AudioOpen self-loop "audio chunk" (§4.4),
// enqueuing audioInput under the current audioContentId.
func (s *Session) AudioChunk(audioBase64 string) error {
	s.mu.Lock()
	if s.phase != PhaseAudioOpen {
		from := s.phase
		s.mu.Unlock()
		return illegalPhase(from, "audio chunk")
	}
	contentID := s.audioContentID
	s.mu.Unlock()

	return s.enqueue(eventcodec.NewAudioInput(contentID, audioBase64))
}

// StopAudio drives AudioOpen → AudioClosed, enqueuing content-end for the
// current audioContentId (§4.4).
func (s *Session) StopAudio() error {
	s.mu.Lock()
	if s.phase != PhaseAudioOpen {
		from := s.phase
		s.mu.Unlock()
		return illegalPhase(from, "stop audio")
	}
	contentID := s.audioContentID
	s.setPhase(PhaseAudioClosed)
	s.mu.Unlock()

	err := s.enqueue(eventcodec.NewContentEnd(contentID))
	s.pause()
	return err
}

// StartNewTurn drives AudioClosed → PromptStarted → SystemPromptSet in
// one call (§4.4: "enqueue promptStart again (plus system-prompt
// re-inject), set isFirstTurn=false"), replaying the cached system prompt
// text rather than requiring the caller to resupply it.
func (s *Session) StartNewTurn(tools []eventcodec.ToolSpecEntry) error {
	s.mu.Lock()
	if s.phase != PhaseAudioClosed {
		from := s.phase
		s.mu.Unlock()
		return illegalPhase(from, "start new turn")
	}
	s.promptID = uuid.NewString()
	promptID := s.promptID
	text := s.systemPromptText
	s.isFirstTurn = false
	s.setPhase(PhasePromptStarted)
	s.mu.Unlock()

	evs := append([]eventcodec.OutboundEvent{eventcodec.NewPromptStart(promptID, tools)}, systemPromptFrames(text)...)
	if err := s.enqueueAll(evs); err != nil {
		return err
	}

	s.mu.Lock()
	s.setPhase(PhaseSystemPromptSet)
	s.mu.Unlock()
	s.pause()
	return nil
}

// IsFirstTurn reports whether this session has not yet completed a turn.
func (s *Session) IsFirstTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isFirstTurn
}

// Close drives any non-terminal phase → Terminated (§4.4): enqueues a
// closing content-end if audio was open, then promptEnd and sessionEnd,
// and marks the session inactive. Idempotent: calling Close on an
// already-terminal session is a no-op, matching §3's "destruction is
// idempotent".
func (s *Session) Close() error {
	s.mu.Lock()
	if s.phase == PhaseTerminated || s.phase == PhaseErrored {
		s.mu.Unlock()
		return nil
	}
	var evs []eventcodec.OutboundEvent
	if s.phase == PhaseAudioOpen {
		evs = append(evs, eventcodec.NewContentEnd(s.audioContentID))
	}
	evs = append(evs, eventcodec.NewPromptEnd(s.promptID), eventcodec.NewSessionEnd())
	s.setPhase(PhaseTerminated)
	s.active = false
	s.mu.Unlock()

	err := s.enqueueAll(evs)
	s.CloseOutbound()
	s.fireOnClose()
	return err
}

// Fail drives any phase → Errored (§4.4): marks the session inactive and
// enqueues nothing further. reason is attached for diagnostics via the
// returned error's Details.
func (s *Session) Fail(reason string) error {
	s.mu.Lock()
	if s.phase == PhaseTerminated || s.phase == PhaseErrored {
		s.mu.Unlock()
		return nil
	}
	s.setPhase(PhaseErrored)
	s.active = false
	s.mu.Unlock()

	s.CloseOutbound()
	s.fireOnClose()
	return gwerrors.New(gwerrors.KindModel, "session", "fail", nil).WithDetails(map[string]any{"reason": reason})
}

package modelstream

import (
	"log/slog"
	"sync"
	"time"

	"github.com/AltairaLabs/voice-gateway/internal/eventcodec"
	"github.com/AltairaLabs/voice-gateway/internal/metrics"
	"github.com/AltairaLabs/voice-gateway/internal/session"
)

// ToolDispatcher routes an inbound toolUse frame to the Tool Invocation
// Coordinator (C6). Implemented by internal/toolcoordinator.Coordinator;
// declared here to avoid an import cycle (C6 depends on C4's Session, and
// C5 must not depend on C6's concrete type).
type ToolDispatcher interface {
	HandleToolUse(s *session.Session, ev eventcodec.InboundEvent)
}

// pollInterval records the "≤20ms" poll of §4.5 point 1. The drain loop
// does not use it: PopOutbound blocks on a condition variable that every
// enqueue and CloseOutbound signal, so the loop wakes as soon as an event
// arrives or Close()/Fail() closes the queue, without polling.
const pollInterval = 20 * time.Millisecond

// Worker owns one bidirectional model connection for the lifetime of a
// session (§4.5). Exactly one Worker runs per active Session (§3
// invariant). It is the only component that writes to or reads from
// transport; neither C7 nor C6 touches it directly.
type Worker struct {
	session     *session.Session
	transport   Transport
	dispatcher  ToolDispatcher
	logger      *slog.Logger

	closeOnce sync.Once
}

// New builds a Worker for session s over transport, routing toolUse
// frames to dispatcher.
func New(s *session.Session, transport Transport, dispatcher ToolDispatcher, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{session: s, transport: transport, dispatcher: dispatcher, logger: logger}
}

// Run starts the drain and pump loops and blocks until both exit (§4.5
// point 5: cancellation — when the state machine reaches
// Terminated/Errored, the worker closes the stream and exits).
func (w *Worker) Run() {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		w.drain()
	}()
	go func() {
		defer wg.Done()
		w.pump()
	}()

	wg.Wait()
	w.closeTransport()
}

func (w *Worker) closeTransport() {
	w.closeOnce.Do(func() {
		_ = w.transport.Close()
	})
}

// drain continuously pops queued outbound events and writes them to the
// stream (§4.5 point 1). It is the only component that talks on the
// outbound side. A write failure is treated as a fatal stream error: the
// session is failed and the transport is closed immediately so the pump
// loop's blocked read unblocks too.
func (w *Worker) drain() {
	for {
		ev, ok := w.session.PopOutbound()
		if !ok {
			return
		}
		if err := w.transport.WriteJSON(ev); err != nil {
			w.logger.Error("model stream write failed", "sessionId", w.session.SessionID, "error", err)
			w.session.MarkTeardownReason(metrics.ReasonModelError)
			_ = w.session.Fail("outbound write failed")
			w.closeTransport()
			return
		}
		w.session.Touch()
	}
}

// pump continuously reads frames from the model stream and dispatches
// them (§4.5 point 2). Ordering guarantee: inbound dispatch preserves
// model emission order, since this loop is the sole reader.
func (w *Worker) pump() {
	for {
		raw, err := w.transport.ReadMessage()
		if err != nil {
			w.handleReadError(err)
			return
		}
		w.session.Touch()

		ev, err := eventcodec.Decode(raw)
		if err != nil {
			w.logger.Warn("model stream sent malformed frame", "sessionId", w.session.SessionID, "error", err)
			continue
		}

		if w.dispatchFrame(ev) {
			return
		}
	}
}

// dispatchFrame handles one decoded inbound frame. It returns true if the
// pump loop should exit (the session was torn down as a result).
func (w *Worker) dispatchFrame(ev eventcodec.InboundEvent) (terminate bool) {
	observer := w.session.GetObserver()

	switch ev.Kind {
	case eventcodec.InToolUse:
		if w.dispatcher != nil {
			w.dispatcher.HandleToolUse(w.session, ev)
		}
		return false

	case eventcodec.InContentStart:
		if isToolContent(ev.ContentType, ev.Role) {
			return false
		}
		if observer != nil {
			observer.OnContentStart(ev.ContentID, ev.ContentType, ev.Role, ev.GenerationStage, ev.HasGenerationStage)
		}
		return false

	case eventcodec.InTextOutput:
		if observer != nil {
			observer.OnTextOutput(ev.ContentID, ev.Text)
		}
		return false

	case eventcodec.InAudioOutput:
		if observer != nil {
			observer.OnAudioOutput(ev.ContentID, ev.AudioBase64)
		}
		return false

	case eventcodec.InContentEnd:
		if isToolContent(ev.ContentType, ev.Role) {
			return false
		}
		if observer != nil {
			observer.OnContentEnd(ev.ContentID, ev.StopReason)
		}
		return false

	case eventcodec.InStreamComplete:
		if observer != nil {
			observer.OnStreamComplete()
		}
		return false

	case eventcodec.InModelStreamError, eventcodec.InInternalServerErr:
		if observer != nil {
			observer.OnError(ev.ErrorMessage)
		}
		w.session.MarkTeardownReason(metrics.ReasonModelError)
		metrics.RecordModelStreamError(metrics.StreamErrorOther)
		_ = w.session.Fail(ev.ErrorMessage)
		w.closeTransport()
		return true

	default:
		w.logger.Debug("unknown inbound frame kind", "sessionId", w.session.SessionID, "raw", string(ev.Raw))
		return false
	}
}

// handleReadError implements §4.5 point 3: a "stream reset / timed out"
// condition emits sessionTimeout and transitions to Errored; any other
// read failure is a plain error, also Errored.
func (w *Worker) handleReadError(err error) {
	observer := w.session.GetObserver()

	if isResetError(err) {
		if observer != nil {
			observer.OnSessionTimeout(err.Error())
		}
		w.session.MarkTeardownReason(metrics.ReasonSessionTimeout)
		metrics.RecordModelStreamError(metrics.StreamErrorReset)
	} else {
		if observer != nil {
			observer.OnError(err.Error())
		}
		w.session.MarkTeardownReason(metrics.ReasonModelError)
		metrics.RecordModelStreamError(metrics.StreamErrorOther)
	}
	_ = w.session.Fail(err.Error())
	w.closeTransport()
}

// isToolContent reports whether a content block is the synthetic
// tool-result framing that must never be forwarded to the client (§4.1,
// §4.5, §8 property 4).
func isToolContent(ct eventcodec.ContentType, role eventcodec.Role) bool {
	return ct == eventcodec.ContentTypeTool || role == eventcodec.RoleTool
}

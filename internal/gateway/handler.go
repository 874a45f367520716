package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AltairaLabs/voice-gateway/internal/eventcodec"
	"github.com/AltairaLabs/voice-gateway/internal/gwerrors"
	"github.com/AltairaLabs/voice-gateway/internal/identity"
	"github.com/AltairaLabs/voice-gateway/internal/metrics"
	"github.com/AltairaLabs/voice-gateway/internal/modelstream"
	"github.com/AltairaLabs/voice-gateway/internal/session"
	"github.com/AltairaLabs/voice-gateway/internal/toolregistry"
)

// Dialer opens the model-side connection for a session. Satisfied by
// modelstream.Dial; declared as a function type here so tests can supply
// an in-memory model without a real socket.
type Dialer func(ctx context.Context, idToken string) (modelstream.Transport, error)

// ConnectionHandler is the Client Connection Handler (C7, §4.7): it owns
// the per-socket upgrade, identity verification, session construction,
// and the translation of client frames into state-machine calls.
// Grounded on the teacher's own top-level connection entrypoint
// (server/a2a/handlers.go's request-scoped identity threading) adapted
// from a request/response RPC shape to a long-lived duplex socket.
type ConnectionHandler struct {
	verifier        *identity.Verifier
	tools           *toolregistry.Registry
	dispatcher      modelstream.ToolDispatcher
	dialer          Dialer
	supervisor      *Supervisor
	logger          *slog.Logger
	inferenceConfig session.InferenceConfig
	queueCap        int
}

// HandlerOption configures a ConnectionHandler.
type HandlerOption func(*ConnectionHandler)

// WithInferenceConfig overrides the default per-session inference
// parameters.
func WithInferenceConfig(cfg session.InferenceConfig) HandlerOption {
	return func(h *ConnectionHandler) { h.inferenceConfig = cfg }
}

// WithOutboundQueueCap overrides the default outbound queue soft cap.
func WithOutboundQueueCap(n int) HandlerOption {
	return func(h *ConnectionHandler) { h.queueCap = n }
}

// NewConnectionHandler builds a ConnectionHandler. dialer opens the
// model-side connection per session; supervisor enforces the
// process-wide concurrency cap and drives shutdown.
func NewConnectionHandler(
	verifier *identity.Verifier,
	tools *toolregistry.Registry,
	dispatcher modelstream.ToolDispatcher,
	dialer Dialer,
	supervisor *Supervisor,
	logger *slog.Logger,
	opts ...HandlerOption,
) *ConnectionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &ConnectionHandler{
		verifier:   verifier,
		tools:      tools,
		dispatcher: dispatcher,
		dialer:     dialer,
		supervisor: supervisor,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// extractToken pulls the identity token from the idToken query parameter
// or a Bearer Authorization header (§4.7 point 1).
func extractToken(r *http.Request) string {
	if t := r.URL.Query().Get("idToken"); t != "" {
		return t
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// ServeHTTP implements the full per-socket lifecycle of §4.7.
func (h *ConnectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	transport := newClientTransport(conn)

	token := extractToken(r)
	ident, err := h.verifier.Verify(token)
	if err != nil {
		h.logger.Info("identity verification failed", "error", err)
		if raw, encErr := eventcodec.EncodeError("authentication failed"); encErr == nil {
			_ = transport.WriteRaw(raw)
		}
		_ = transport.closeWithCode(1008, "authentication failed")
		return
	}

	sess := session.New("", session.Identity{
		UserID:      ident.UserID,
		DisplayName: ident.DisplayName,
		Claims:      ident.Claims,
	}, h.inferenceConfig, h.queueCap)

	if !h.supervisor.Register(sess) {
		h.logger.Info("rejecting connection: at capacity", "userId", ident.UserID)
		if raw, encErr := eventcodec.EncodeError("gateway at capacity"); encErr == nil {
			_ = transport.WriteRaw(raw)
		}
		_ = transport.closeWithCode(1008, "at capacity")
		return
	}
	defer h.supervisor.Unregister(sess.SessionID)

	h.runSession(r.Context(), sess, transport)
}

// runSession wires the session's observer, dials the model stream,
// starts the worker, and drives the client-frame read loop until the
// socket closes from either side (§4.7 points 3-6).
func (h *ConnectionHandler) runSession(ctx context.Context, sess *session.Session, transport clientTransport) {
	defer func() { _ = sess.Close() }()
	defer func() { _ = transport.Close() }()

	if raw, err := eventcodec.EncodeWelcome(sess.Identity.UserID, sess.Identity.DisplayName); err == nil {
		if err := transport.WriteRaw(raw); err != nil {
			h.logger.Warn("failed writing welcome frame", "sessionId", sess.SessionID, "error", err)
			return
		}
	}

	modelTransport, err := h.dialer(ctx, "")
	if err != nil {
		h.logger.Error("failed dialing model stream", "sessionId", sess.SessionID, "error", err)
		if raw, encErr := eventcodec.EncodeError("failed to reach assistant"); encErr == nil {
			_ = transport.WriteRaw(raw)
		}
		return
	}

	sess.SetObserver(newClientObserver(sess, transport, h.logger))

	// Whichever path first drives the session to Terminated/Errored
	// (client disconnect, model failure, idle eviction, supervisor
	// shutdown) closes both sockets here, so the other side's blocked
	// read unblocks too (§3 "removed ... within a bounded delay
	// regardless of the reason", §5 "Cancellation").
	sess.SetOnClose(func() {
		_ = transport.Close()
		_ = modelTransport.Close()
	})

	worker := modelstream.New(sess, modelTransport, h.dispatcher, h.logger)
	workerDone := make(chan struct{})
	go func() {
		worker.Run()
		close(workerDone)
	}()

	readDone := make(chan struct{})
	go func() {
		h.readClientFrames(sess, transport)
		close(readDone)
	}()

	// Either side finishing first means the session is done: close the
	// client socket so the other side's blocked read/write unblocks too
	// (§5 "Cancellation": all exit paths release their resources).
	select {
	case <-workerDone:
	case <-readDone:
	}
	_ = sess.Close()
	_ = transport.Close()
	<-workerDone
	<-readDone
}

// readClientFrames implements §4.7 point 4: it blocks reading client
// frames and translates each into the corresponding state-machine call,
// until the socket errors out or the session is torn down.
func (h *ConnectionHandler) readClientFrames(sess *session.Session, transport clientTransport) {
	for {
		if !sess.Active() {
			return
		}
		raw, err := transport.ReadMessage()
		if err != nil {
			return
		}
		sess.Touch()

		frame, err := eventcodec.DecodeClientFrame(raw)
		if err != nil {
			h.logger.Warn("malformed client frame", "sessionId", sess.SessionID, "error", err)
			continue
		}

		if err := h.handleClientFrame(sess, transport, frame); err != nil {
			h.logger.Warn("illegal client frame transition", "sessionId", sess.SessionID, "error", err)
			if raw, encErr := eventcodec.EncodeError("invalid request"); encErr == nil {
				_ = transport.WriteRaw(raw)
			}
			// §4.9: an illegal phase transition or an outbound queue
			// overflow is fatal to the session, unlike an unrecognized
			// frame kind (handled separately in handleClientFrame's
			// default case, which never returns an error).
			var ctxErr *gwerrors.ContextualError
			if errors.As(err, &ctxErr) && ctxErr.Kind == gwerrors.KindResource {
				sess.MarkTeardownReason(metrics.ReasonQueueOverflow)
			} else {
				sess.MarkTeardownReason(metrics.ReasonProtocolError)
			}
			_ = sess.Fail(err.Error())
			return
		}
	}
}

func (h *ConnectionHandler) handleClientFrame(sess *session.Session, transport clientTransport, frame eventcodec.ClientInFrame) error {
	switch frame.Kind {
	case eventcodec.ClientInStartSession:
		return h.handleStartSession(sess, transport, frame)

	case eventcodec.ClientInAudioStart:
		phase := sess.Phase()
		if phase != session.PhaseSystemPromptSet && phase != session.PhaseAudioClosed {
			if err := sess.StartNewTurn(BuildToolConfiguration(h.tools.List())); err != nil {
				return err
			}
		}
		return sess.StartAudio()

	case eventcodec.ClientInAudioData:
		return sess.AudioChunk(frame.AudioBase64)

	case eventcodec.ClientInAudioStop:
		return sess.StopAudio()

	default:
		if raw, err := eventcodec.EncodeError("unknown frame type"); err == nil {
			_ = transport.WriteRaw(raw)
		}
		return nil
	}
}

// handleStartSession drives Created through SystemPromptSet, optionally
// replaying history, then acks with sessionStarted/sessionReady (§4.7
// point 4).
func (h *ConnectionHandler) handleStartSession(sess *session.Session, transport clientTransport, frame eventcodec.ClientInFrame) error {
	toolSpecs := BuildToolConfiguration(h.tools.List())

	if err := sess.OpenModelStream(); err != nil {
		return err
	}
	if err := sess.SetupPromptStart(toolSpecs); err != nil {
		return err
	}

	prompt := BuildSystemPrompt(sess.Identity.DisplayName, h.tools.List())
	if err := sess.SetupSystemPrompt(prompt); err != nil {
		return err
	}

	if frame.Content != "" {
		for _, msg := range session.ParseHistory(frame.Content) {
			if err := sess.InjectHistoryMessage(msg); err != nil {
				return err
			}
		}
	}

	if raw, err := eventcodec.EncodeSessionStarted(sess.SessionID); err == nil {
		_ = transport.WriteRaw(raw)
	}
	if raw, err := eventcodec.EncodeSessionReady(sess.SessionID); err == nil {
		_ = transport.WriteRaw(raw)
	}
	return nil
}


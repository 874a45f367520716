// Package toolcoordinator implements the Tool Invocation Coordinator (C6,
// §4.6): the bridge between an inbound toolUse frame and the synthetic
// three-frame tool-result sequence enqueued back to the model. Grounded on
// the teacher repository's runtime/tools/registry.go Execute dispatch
// (the same invoke-then-wrap-result shape) and its A2A task handlers'
// pattern of threading a caller identity through a storage-backed
// operation (server/a2a/handlers.go).
package toolcoordinator

import (
	"encoding/json"
	"log/slog"

	"github.com/AltairaLabs/voice-gateway/internal/eventcodec"
	"github.com/AltairaLabs/voice-gateway/internal/metrics"
	"github.com/AltairaLabs/voice-gateway/internal/session"
	"github.com/AltairaLabs/voice-gateway/internal/toolregistry"
)

// Coordinator dispatches toolUse frames against a Registry and frames the
// outcome back into the session's outbound queue. One Coordinator is
// shared across every session (it holds no per-session state); the
// Registry it wraps is the process-wide tool catalogue.
type Coordinator struct {
	registry *toolregistry.Registry
	logger   *slog.Logger
}

// New builds a Coordinator over registry.
func New(registry *toolregistry.Registry, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{registry: registry, logger: logger}
}

type errorBody struct {
	Error string `json:"error"`
}

// HandleToolUse implements §4.6: invoke the named tool, serialize the
// outcome as {toolResult: {content: [{result|error}], status}}, enqueue
// the content-start/toolResult/content-end triple atomically under a
// fresh contentId, and notify the observer for observability only — the
// client never sees this directly (§4.1, §8 property 4).
//
// A tool name the Registry doesn't recognize, a schema validation
// failure, a handler error, and a handler panic all produce the same
// shape of result here: Registry.Invoke already reduces every one of
// them to (result, StatusError), so the coordinator has nothing special
// to do for "missing tool" beyond calling Invoke like any other (§4.6
// point 1; §4.9 "Tool handler throws").
//
// If the session has already been torn down, EnqueueToolResult is a
// silent no-op (the closed outbound queue discards further writes) —
// satisfying §4.6 point 2's "session is gone: do not enqueue" without a
// separate liveness check here.
func (c *Coordinator) HandleToolUse(s *session.Session, ev eventcodec.InboundEvent) {
	identity := toolregistry.Identity{UserID: s.Identity.UserID}

	resultJSON, status := c.registry.Invoke(ev.ToolName, ev.ParamsJSON, identity)
	metrics.RecordToolInvocation(ev.ToolName, string(status))

	payload := eventcodec.ToolResultPayload{Status: string(status)}
	if status == toolregistry.StatusSuccess {
		payload.Content = []eventcodec.ToolResultContent{{Result: resultJSON}}
	} else {
		payload.Content = []eventcodec.ToolResultContent{{Error: errorMessage(resultJSON)}}
	}

	if err := s.EnqueueToolResult(ev.ToolUseID, payload); err != nil {
		c.logger.Warn("tool result enqueue failed", "sessionId", s.SessionID, "toolUseId", ev.ToolUseID, "error", err)
	}

	if observer := s.GetObserver(); observer != nil {
		observer.OnToolResult(ev.ToolUseID, resultJSON)
	}
}

// errorMessage extracts the human-readable message from a
// Registry.Invoke error result, falling back to the raw JSON if it isn't
// the expected {"error": "..."} shape.
func errorMessage(resultJSON json.RawMessage) string {
	var body errorBody
	if err := json.Unmarshal(resultJSON, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return string(resultJSON)
}

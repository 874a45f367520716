package gateway

import (
	"log/slog"

	"github.com/AltairaLabs/voice-gateway/internal/eventcodec"
	"github.com/AltairaLabs/voice-gateway/internal/session"
)

// clientObserver implements session.Observer, re-emitting filtered model
// events to the browser socket as the client-facing wire vocabulary
// (§4.7 point 5). Tool-use events never reach this type: the Model Stream
// Worker (internal/modelstream) routes those to the Tool Invocation
// Coordinator instead of the Observer. The coordinator reports each tool
// result through OnToolResult, which is not forwarded to the browser.
type clientObserver struct {
	sess      *session.Session
	transport clientTransport
	logger    *slog.Logger
}

func newClientObserver(sess *session.Session, transport clientTransport, logger *slog.Logger) *clientObserver {
	return &clientObserver{sess: sess, transport: transport, logger: logger}
}

func (o *clientObserver) write(raw []byte, err error) {
	if err != nil {
		o.logger.Warn("failed encoding client frame", "sessionId", o.sess.SessionID, "error", err)
		return
	}
	if err := o.transport.WriteRaw(raw); err != nil {
		o.logger.Warn("failed writing client frame", "sessionId", o.sess.SessionID, "error", err)
	}
}

func (o *clientObserver) OnContentStart(contentID string, contentType eventcodec.ContentType, role eventcodec.Role, stage eventcodec.GenerationStage, hasStage bool) {
	o.write(eventcodec.EncodeContentStart(contentID, string(contentType), string(role), string(stage), hasStage))
}

func (o *clientObserver) OnTextOutput(contentID, text string) {
	o.write(eventcodec.EncodeTextOutput(contentID, text))
}

func (o *clientObserver) OnAudioOutput(contentID, audioBase64 string) {
	o.write(eventcodec.EncodeAudioOutput(contentID, audioBase64))
}

func (o *clientObserver) OnContentEnd(contentID string, stopReason eventcodec.StopReason) {
	o.write(eventcodec.EncodeContentEnd(contentID, stopReason))
}

func (o *clientObserver) OnStreamComplete() {
	o.write(eventcodec.EncodeStreamComplete(o.sess.SessionID))
}

// OnToolResult is called by the Tool Invocation Coordinator after every
// tool call. Tool results are not forwarded to the client (§4.7 point 5);
// this only logs the call at debug.
func (o *clientObserver) OnToolResult(toolUseID string, _ []byte) {
	o.logger.Debug("tool result not forwarded to client", "sessionId", o.sess.SessionID, "toolUseId", toolUseID)
}

func (o *clientObserver) OnError(message string) {
	o.write(eventcodec.EncodeError(message))
}

func (o *clientObserver) OnSessionTimeout(_ string) {
	o.write(eventcodec.EncodeSessionTimeout())
}

// Package modelstream implements the Model Stream Worker (C5, §4.5): the
// single owner of one bidirectional connection to the model for the
// lifetime of a session, running concurrent drain (outbound) and pump
// (inbound) loops. Grounded on the teacher repository's Gemini Live
// provider (runtime/providers/gemini/websocket_manager.go and
// stream_session.go) for the transport and receive-loop shape.
package modelstream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// maxMessageSize bounds inbound frame size, matching the teacher's own
// 16MB read limit (websocket_manager.go) — generous enough for
// base64-encoded audio chunks, small enough to bound memory on a
// malformed or hostile frame.
const maxMessageSize = 16 * 1024 * 1024

// Transport is the minimal duplex the worker needs: write one JSON-
// encodable frame, read one raw frame, close. Abstracting over
// *websocket.Conn lets tests exercise the worker against an in-memory
// fake instead of a real socket.
type Transport interface {
	WriteJSON(v any) error
	ReadMessage() ([]byte, error)
	Close() error
}

// wsTransport wraps *websocket.Conn, serializing writes behind writeMu
// since gorilla/websocket forbids concurrent writers on one connection —
// the same requirement the teacher's WebSocketManager documents and
// enforces.
type wsTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Dial opens a model stream connection to url, carrying idToken as a
// bearer header (the model endpoint's own auth, distinct from the
// client-facing identity token verified by internal/identity).
func Dial(ctx context.Context, url, idToken string) (Transport, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 45 * time.Second}

	headers := http.Header{}
	if idToken != "" {
		headers.Set("Authorization", "Bearer "+idToken)
	}

	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	conn.SetReadLimit(maxMessageSize)
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) WriteJSON(v any) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(v)
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) Close() error {
	t.writeMu.Lock()
	_ = t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.writeMu.Unlock()
	return t.conn.Close()
}

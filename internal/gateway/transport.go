package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// maxClientMessageSize bounds an inbound client frame, matching the
// model-stream worker's own read-limit discipline (internal/modelstream).
const maxClientMessageSize = 16 * 1024 * 1024

// upgrader upgrades the /novasonic HTTP connection to a WebSocket (§6).
// Origin checking is left to the caller's reverse proxy / CORS layer, the
// same posture the teacher's own HTTP servers take (no origin allowlist
// baked into the transport).
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientTransport is the minimal duplex the Client Connection Handler
// needs over the browser socket, mirroring internal/modelstream.Transport
// but kept as its own small interface since the two legs speak distinct
// wire vocabularies (§4.1, §6) and must never be confused for one
// another.
type clientTransport interface {
	WriteRaw(data []byte) error
	ReadMessage() ([]byte, error)
	Close() error
}

type wsClientTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func newClientTransport(conn *websocket.Conn) *wsClientTransport {
	conn.SetReadLimit(maxClientMessageSize)
	return &wsClientTransport{conn: conn}
}

func (t *wsClientTransport) WriteRaw(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsClientTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

// closeWithCode sends a close frame carrying code before closing the
// underlying connection (§4.7 point 2: "Reject with code 1008 on
// failure").
func (t *wsClientTransport) closeWithCode(code int, reason string) error {
	t.writeMu.Lock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(5*time.Second))
	t.writeMu.Unlock()
	return t.conn.Close()
}

func (t *wsClientTransport) Close() error {
	return t.closeWithCode(websocket.CloseNormalClosure, "")
}

package gateway_test

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/AltairaLabs/voice-gateway/internal/modelstream"
)

// fakeModelTransport is an in-memory modelstream.Transport, letting tests
// drive the model side of a session without a real socket.
type fakeModelTransport struct {
	mu      sync.Mutex
	written []json.RawMessage
	inbox   chan []byte
	closed  bool
}

func newFakeModelTransport() *fakeModelTransport {
	return &fakeModelTransport{inbox: make(chan []byte, 64)}
}

func (t *fakeModelTransport) WriteJSON(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.written = append(t.written, raw)
	t.mu.Unlock()
	return nil
}

func (t *fakeModelTransport) ReadMessage() ([]byte, error) {
	data, ok := <-t.inbox
	if !ok {
		return nil, io.EOF
	}
	return data, nil
}

func (t *fakeModelTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.inbox)
	}
	return nil
}

func (t *fakeModelTransport) pushInbound(raw []byte) {
	t.inbox <- raw
}

func (t *fakeModelTransport) writtenFrames() []json.RawMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]json.RawMessage, len(t.written))
	copy(out, t.written)
	return out
}

// fakeDialer builds a gateway.Dialer that always returns the same
// fakeModelTransport, so a test can both drive the handler and assert on
// what the model side received.
func fakeDialer(transport *fakeModelTransport) func(ctx context.Context, idToken string) (modelstream.Transport, error) {
	return func(ctx context.Context, idToken string) (modelstream.Transport, error) {
		return transport, nil
	}
}

package modelstream

import (
	"encoding/json"
	"io"
	"sync"
)

// fakeTransport is an in-memory Transport double, letting worker tests
// drive both directions without a real socket.
type fakeTransport struct {
	mu       sync.Mutex
	written  []json.RawMessage
	writeErr error
	closed   bool

	inbox  chan []byte
	reads  chan struct{}
	readErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inbox: make(chan []byte, 64)}
}

func (f *fakeTransport) WriteJSON(v any) error {
	f.mu.Lock()
	if f.writeErr != nil {
		err := f.writeErr
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.written = append(f.written, data)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) ReadMessage() ([]byte, error) {
	data, ok := <-f.inbox
	if !ok {
		f.mu.Lock()
		err := f.readErr
		f.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return data, nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.inbox)
	}
	return nil
}

// pushInbound queues a raw frame for the pump loop to read next.
func (f *fakeTransport) pushInbound(raw []byte) {
	f.inbox <- raw
}

// failReadsWith causes the next ReadMessage after the inbox drains (or an
// explicit close) to return err instead of io.EOF.
func (f *fakeTransport) failReadsWith(err error) {
	f.mu.Lock()
	f.readErr = err
	f.mu.Unlock()
}

func (f *fakeTransport) writtenFrames() []json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]json.RawMessage, len(f.written))
	copy(out, f.written)
	return out
}

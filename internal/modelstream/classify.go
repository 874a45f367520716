package modelstream

import (
	"errors"
	"io"
	"net"
	"strings"

	"github.com/gorilla/websocket"
)

// isResetError reports whether err represents the "stream reset / timed
// out" condition of §4.5 point 3, which maps to a sessionTimeout rather
// than a generic error. Grounded on the teacher's own close-error
// handling in websocket_manager.go's Receive, which distinguishes a
// *websocket.CloseError from other read failures; extended with the
// plain io/net signals a clean or idle-peer close produces.
func isResetError(err error) bool {
	if err == nil {
		return false
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure:
			return true
		}
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "reset")
}

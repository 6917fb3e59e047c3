package relay

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// SocketLeg adapts a websocket connection to the Leg interface. Writes are
// serialized; Close is idempotent and a write after Close returns
// ErrLegClosed instead of touching the dead connection.
type SocketLeg struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewSocketLeg wraps an accepted or dialed websocket connection.
func NewSocketLeg(conn *websocket.Conn) *SocketLeg {
	return &SocketLeg{conn: conn}
}

// ReadFrame blocks until the next frame. Orderly peer closes and reads
// after a local Close surface as io.EOF.
func (l *SocketLeg) ReadFrame() (Frame, error) {
	messageType, data, err := l.conn.ReadMessage()
	if err != nil {
		if l.closed.Load() {
			return Frame{}, io.EOF
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return Frame{}, io.EOF
		}
		return Frame{}, err
	}
	return Frame{Binary: messageType == websocket.BinaryMessage, Data: data}, nil
}

// WriteFrame sends one frame, preserving the text/binary message type.
func (l *SocketLeg) WriteFrame(frame Frame) error {
	if l.closed.Load() {
		return ErrLegClosed
	}

	messageType := websocket.TextMessage
	if frame.Binary {
		messageType = websocket.BinaryMessage
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if l.closed.Load() {
		return ErrLegClosed
	}
	return l.conn.WriteMessage(messageType, frame.Data)
}

// Close sends a close control frame and tears down the connection. Safe to
// call any number of times.
func (l *SocketLeg) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		l.writeMu.Lock()
		_ = l.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		l.writeMu.Unlock()
		_ = l.conn.Close()
	})
	return nil
}

// DialAILeg opens the AI conversation leg using the time-limited session
// URL delivered in the connect handshake.
func DialAILeg(ctx context.Context, sessionURL string, header http.Header) (*SocketLeg, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, sessionURL, header)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return NewSocketLeg(conn), nil
}

// Compile-time check.
var _ Leg = (*SocketLeg)(nil)

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var errNotAccepted = errors.New("websocket connection is not accepted")

// wsTransport is session.Transport over a gorilla websocket connection upgraded from w and r
type wsTransport struct {
	w             http.ResponseWriter
	r             *http.Request
	upgrader      *websocket.Upgrader
	writeTimeout  time.Duration
	maxFrameBytes int64

	conn *websocket.Conn
}

func (t *wsTransport) Accept(context.Context) error {
	conn, err := t.upgrader.Upgrade(t.w, t.r, nil)
	if err != nil {
		return err
	}
	// deadlines of http.Server survive the hijack
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		conn.Close()
		return err
	}
	if t.maxFrameBytes > 0 {
		conn.SetReadLimit(t.maxFrameBytes)
	}
	t.conn = conn
	return nil
}

// Read returns the next data frame, ctx cancellation expires the read deadline
func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	if t.conn == nil {
		return nil, errNotAccepted
	}

	stop := context.AfterFunc(ctx, func() {
		_ = t.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	_, frame, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return frame, nil
}

func (t *wsTransport) Write(_ context.Context, frame []byte) error {
	if t.conn == nil {
		return errNotAccepted
	}
	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return err
		}
	}
	return t.conn.WriteMessage(websocket.TextMessage, frame)
}

// Close upgrades the connection when it was never accepted, so that the peer gets the close code
func (t *wsTransport) Close(code int, reason string) error {
	if t.conn == nil {
		if err := t.Accept(t.r.Context()); err != nil {
			return err
		}
	}
	defer t.conn.Close()

	deadline := time.Now().Add(time.Second)
	if t.writeTimeout > 0 {
		deadline = time.Now().Add(t.writeTimeout)
	}
	msg := websocket.FormatCloseMessage(code, reason)
	if err := t.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return err
	}
	return nil
}

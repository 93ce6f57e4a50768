package hub

import (
	"log/slog"

	socketio "github.com/googollee/go-socket.io"
)

const namespace = "/"

// NewSocketServer returns a socket.io server whose connections are registered
// with h. The caller runs Serve in a goroutine and mounts it at /socket.io/.
func NewSocketServer(h *Hub, logger *slog.Logger) (*socketio.Server, error) {
	server, err := socketio.NewServer(nil)
	if err != nil {
		return nil, err
	}

	server.OnConnect(namespace, func(s socketio.Conn) error {
		h.SubscriberConnected(s)
		return nil
	})

	server.OnDisconnect(namespace, func(s socketio.Conn, reason string) {
		logger.Debug("socket.io disconnect", "session_id", s.ID(), "reason", reason)
		h.SubscriberDisconnected(s.ID())
	})

	server.OnError(namespace, func(s socketio.Conn, e error) {
		logger.Warn("socket.io error", "error", e)
		if s != nil {
			h.SubscriberDisconnected(s.ID())
		}
	})

	return server, nil
}

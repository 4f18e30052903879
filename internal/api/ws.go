package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/subseaworks/corridor-simulator/internal/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Snapshots only; the command surface stays on plain HTTP.
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

const wsReplayCount = 50

// streamEvents upgrades the connection and streams event-log entries:
// a replay of recent entries first, then live events as they are emitted.
func (s *Server) streamEvents(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error(c.Request.Context(), "websocket upgrade failed",
			logging.String("error", err.Error()))
		return
	}
	defer ws.Close()

	ctx := c.Request.Context()
	s.log.Info(ctx, "event stream client connected",
		logging.String("remote", ws.RemoteAddr().String()))

	for _, ev := range s.sim.Events().Recent(wsReplayCount) {
		if err := ws.WriteJSON(ev); err != nil {
			return
		}
	}

	events, cancel := s.sim.Events().Subscribe()
	defer cancel()

	// Drain client frames so pings and close messages are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := ws.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

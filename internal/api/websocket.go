package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"pagetrust/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// extension pages carry chrome-extension:// origins
		return true
	},
}

const writeTimeout = 10 * time.Second

// streamProgress pushes every step transition for a run until the run
// settles or the client goes away.
func (s *Server) streamProgress(c *gin.Context, tracker *pipeline.Tracker) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("[API] Websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	updates, cancel := tracker.Subscribe()
	defer cancel()

	// drain client frames so close frames are processed
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, open := <-updates:
			if !open {
				final := pipeline.StepUpdate{
					RunID: tracker.RunID(),
					Steps: tracker.Steps(),
					Done:  tracker.Done(),
				}
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				conn.WriteJSON(final)
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run settled"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(update); err != nil {
				slog.Warn("[API] Failed to write progress update",
					slog.String("run_id", tracker.RunID()),
					slog.String("error", err.Error()))
				return
			}
		case <-clientGone:
			return
		}
	}
}

package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// handleStream pushes the dashboard state to one websocket viewer: the
// current state right away, then one message per tick. The feed runs while
// at least one viewer is connected.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer c.Close()

	id := uuid.NewString()
	updates, detach, err := s.ctrl.Attach(r.Context())
	if err != nil {
		s.logger.Error("failed to start feed", "viewer", id, "err", err)
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "feed unavailable"),
			time.Now().Add(writeWait))
		return
	}
	defer detach()
	s.logger.Info("viewer connected", "viewer", id, "remote", r.RemoteAddr)
	defer s.logger.Info("viewer disconnected", "viewer", id)

	// The reader only exists to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := s.write(c, s.ctrl.State()); err != nil {
		return
	}
	for {
		select {
		case st := <-updates:
			if err := s.write(c, st); err != nil {
				s.logger.Debug("dropping viewer", "viewer", id, "err", err)
				return
			}
		case <-closed:
			return
		}
	}
}

func (s *Server) write(c *websocket.Conn, v interface{}) error {
	if err := c.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.WriteJSON(v)
}

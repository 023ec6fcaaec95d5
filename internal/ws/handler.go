package ws

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	herrors "github.com/jmylchreest/hapd/internal/errors"
	"github.com/jmylchreest/hapd/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Controllers are authenticated by pair-verify, not by origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler returns an http.HandlerFunc that upgrades a verified connection
// to WebSocket and registers the client with the hub.
func Handler(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := session.FromContext(r.Context())
		var (
			controller uuid.UUID
			ok         bool
		)
		if sess != nil {
			controller, ok = sess.ControllerID()
		}
		if !ok {
			w.Header().Set("Content-Type", "application/hap+json")
			w.WriteHeader(herrors.StatusConnectionAuthorizationRequired)
			fmt.Fprintf(w, `{"status":%d}`, herrors.HAPStatusInsufficientPrivileges)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("ws: upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
			return
		}

		client := hub.NewClient(conn, sess, controller)
		hub.Register(client)

		// Start read/write pumps in separate goroutines.
		go client.WritePump()
		go client.ReadPump()
	}
}

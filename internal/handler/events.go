package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"visiondash/internal/logger"
	ws "visiondash/internal/service/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsHandler handles GET /api/events: a websocket that receives the run
// status events of the caller's session.
func EventsHandler(hub *ws.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, ok := existingSessionID(r)
		if !ok {
			http.Error(w, "No session", http.StatusBadRequest)
			return
		}

		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		hub.Register(sid, connection)
		defer hub.Unregister(sid, connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warning("Event listener disconnected with error: %v", err)
				}
				break
			}
		}
	}
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/gapilongo/OPiN/broker"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks belong at the edge proxy in this deployment.
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "client_id")
	if clientID == "" {
		s.writeError(w, http.StatusBadRequest, "client_id required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "client_id", clientID, "error", err)
		return
	}

	broker.Serve(s.broker, broker.NewWSConnection(clientID, conn), s.logger)
}

package websocket

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Niyati251208/sports-performance-analyzer/internal/utils/jwt"
	"github.com/Niyati251208/sports-performance-analyzer/internal/utils/response"
	wsClient "github.com/Niyati251208/sports-performance-analyzer/internal/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The upload page may be served from another origin during development.
		return true
	},
}

// WebSocketHandler streams upload events to the holder of a login token.
// @Summary      Upload event stream
// @Description  Upgrades to a WebSocket that receives upload.created and upload.deleted events for the token's email.
// @Tags         events
// @Param        token  query  string  true  "Login token"
// @Failure      401  {object}  response.Response
// @Router       /ws [get]
func WebSocketHandler(hub *wsClient.Hub, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			slog.Warn("WebSocket connection attempted without token")
			response.WriteJSON(w, http.StatusUnauthorized, response.Failure("Token required"))
			return
		}

		email, err := jwt.ExtractEmailFromToken(token, jwtSecret)
		if err != nil {
			slog.Warn("WebSocket connection attempted with invalid token", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusUnauthorized, response.Failure("Invalid token"))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("Failed to upgrade WebSocket connection", slog.String("error", err.Error()))
			return
		}

		client := wsClient.NewClient(conn, email, hub)
		hub.RegisterClient(client)
		client.Start()

		slog.Info("WebSocket connection established", slog.String("email", email))
	}
}

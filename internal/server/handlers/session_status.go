package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/coinflow/pss/internal/server/websocket"
	"github.com/coinflow/pss/pkg/config"
)

// SessionStatusHandler upgrades authenticated clients to a websocket and
// registers them with the hub so they receive their session updates.
type SessionStatusHandler struct {
	logger   zerolog.Logger
	wsHub    *websocket.WsHub
	upgrader gws.Upgrader
}

func NewSessionStatusHandler(wsHub *websocket.WsHub, cfg config.WebSocketConfig, logger zerolog.Logger) *SessionStatusHandler {
	readBuf := cfg.ReadBufferSize
	if readBuf <= 0 {
		readBuf = 1024
	}
	writeBuf := cfg.WriteBufferSize
	if writeBuf <= 0 {
		writeBuf = 1024
	}

	upgrader := gws.Upgrader{
		ReadBufferSize:  readBuf,
		WriteBufferSize: writeBuf,
	}
	if !cfg.CheckOrigin {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}

	return &SessionStatusHandler{
		logger:   logger,
		wsHub:    wsHub,
		upgrader: upgrader,
	}
}

func (h *SessionStatusHandler) HandleWebSocket(c *gin.Context) {
	email, exists := c.Get("client_email")
	if !exists {
		h.logger.Error().Msg("Client email not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "Client not authenticated",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Err(err).
			Str("client_email", email.(string)).
			Msg("Failed to upgrade to WebSocket")
		return
	}

	client := &websocket.WsClient{
		ClientEmail: email.(string),
		Conn:        conn,
	}
	h.wsHub.Register <- client

	go func() {
		defer func() {
			h.wsHub.Unregister <- client
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.logger.Debug().Err(err).
					Str("client_email", client.ClientEmail).
					Msg("WebSocket read loop ended")
				break
			}
		}
	}()
}

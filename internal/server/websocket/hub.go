package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/coinflow/pss/internal/domain"
)

// WsHub pushes session status changes to the clients that own them,
// keyed by the client email the session was created with.
type WsHub struct {
	Clients    map[string]map[*websocket.Conn]bool
	Broadcast  chan domain.SessionUpdate
	Register   chan *WsClient
	Unregister chan *WsClient
	Logger     zerolog.Logger
}

type WsClient struct {
	ClientEmail string
	Conn        *websocket.Conn
}

func NewWsHub(logger zerolog.Logger) *WsHub {
	return &WsHub{
		Clients:    make(map[string]map[*websocket.Conn]bool),
		Broadcast:  make(chan domain.SessionUpdate, 100),
		Register:   make(chan *WsClient, 100),
		Unregister: make(chan *WsClient, 100),
		Logger:     logger.With().Str("component", "ws_hub").Logger(),
	}
}

func (h *WsHub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.Clients[client.ClientEmail] == nil {
				h.Clients[client.ClientEmail] = make(map[*websocket.Conn]bool)
			}
			h.Clients[client.ClientEmail][client.Conn] = true
			h.Logger.Info().
				Str("client_email", client.ClientEmail).
				Int("connection_count", len(h.Clients[client.ClientEmail])).
				Msg("WebSocket client registered")

		case client := <-h.Unregister:
			if clients, ok := h.Clients[client.ClientEmail]; ok {
				delete(clients, client.Conn)
				if len(clients) == 0 {
					delete(h.Clients, client.ClientEmail)
				}
				client.Conn.Close()
				h.Logger.Info().
					Str("client_email", client.ClientEmail).
					Int("connection_count", len(clients)).
					Msg("WebSocket client unregistered")
			}

		case update := <-h.Broadcast:
			if update.Session == nil {
				continue
			}
			email := update.Session.ClientEmail

			clients, ok := h.Clients[email]
			if !ok || len(clients) == 0 {
				h.Logger.Debug().
					Str("client_email", email).
					Str("payment_id", update.Session.PaymentID).
					Msg("No clients connected for session update")
				continue
			}

			for conn := range clients {
				if err := conn.WriteJSON(update); err != nil {
					h.Logger.Err(err).
						Str("client_email", email).
						Str("payment_id", update.Session.PaymentID).
						Msg("Failed to send WebSocket message")
					conn.Close()
					delete(clients, conn)
				}
			}
			if len(clients) == 0 {
				delete(h.Clients, email)
			}
		}
	}
}

// BroadcastPaymentSession queues a session status update for delivery.
func (h *WsHub) BroadcastPaymentSession(session domain.PaymentSession) {
	h.Broadcast <- domain.SessionUpdate{
		Type:      "payment_session",
		Session:   &session,
		Timestamp: time.Now(),
	}
}

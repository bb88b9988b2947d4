package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mediavault/internal/domain/events"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// EventsHandler streams analysis events over a websocket. Every authenticated
// subscriber receives every event published while connected; events emitted
// before the connection was established are not replayed.
type EventsHandler struct {
	broadcaster events.Broadcaster
	upgrader    websocket.Upgrader
	log         zerolog.Logger
}

func NewEventsHandler(broadcaster events.Broadcaster, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin enforcement is the gateway's job.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "events-handler").Logger(),
	}
}

// Stream upgrades the connection and forwards broadcast events until the
// client disconnects.
func (h *EventsHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := h.broadcaster.Subscribe()

	go h.writePump(conn, sub)
	h.readPump(conn, sub)
}

func (h *EventsHandler) writePump(conn *websocket.Conn, sub *events.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so pongs are processed and a closed
// connection is noticed promptly.
func (h *EventsHandler) readPump(conn *websocket.Conn, sub *events.Subscription) {
	defer func() {
		sub.Close()
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

package handlers

import (
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Arvi89/scrum-poker/hub"
)

// readPump feeds inbound frames to the coordinator until the socket fails.
// A failed read is how a dead peer is noticed, so it always ends in Disconnect.
func (h *RoomHandler) readPump(conn *websocket.Conn, client *hub.Client) {
	defer func() {
		h.coord.Disconnect(client.ID())
		conn.Close()
		h.log.Debug().Str("client", client.ID()).Msg("websocket disconnected")
	}()

	conn.SetReadLimit(h.opts.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	limiter := rate.NewLimiter(rate.Limit(h.opts.RateLimit), h.opts.RateBurst)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.log.Debug().Err(err).Str("client", client.ID()).Msg("websocket read failed")
			}
			return
		}

		if !limiter.Allow() {
			h.log.Warn().Str("client", client.ID()).Msg("rate limit exceeded, message dropped")
			continue
		}

		h.coord.Handle(client.ID(), data)
	}
}

// writePump is the only writer on conn. It drains the client's outbox and
// keeps the connection alive with pings.
func (h *RoomHandler) writePump(conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(h.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Outbox():
			conn.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package handlers

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Arvi89/scrum-poker/db"
	"github.com/Arvi89/scrum-poker/hub"
	"github.com/Arvi89/scrum-poker/models"
)

// Options configures the WebSocket transport
type Options struct {
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// DefaultOptions returns the transport timings used in production
func DefaultOptions() Options {
	return Options{
		RateLimit:      20,
		RateBurst:      40,
		PingPeriod:     15 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	}
}

// standardResponse sends a consistent JSON response
func standardResponse(c *gin.Context, code int, status string, data interface{}, err string) {
	response := gin.H{"status": status}

	if data != nil {
		response["data"] = data
	}

	if err != "" {
		response["error"] = err
	}

	c.JSON(code, response)
}

// RoomHandler serves the WebSocket endpoint and the read-only room API
type RoomHandler struct {
	store    *db.Store
	coord    *hub.Coordinator
	opts     Options
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewRoomHandler creates a new RoomHandler
func NewRoomHandler(store *db.Store, coord *hub.Coordinator, opts Options, log zerolog.Logger) *RoomHandler {
	h := &RoomHandler{
		store: store,
		coord: coord,
		opts:  opts,
		log:   log.With().Str("component", "handlers").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *RoomHandler) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	// Non-browser clients send no Origin
	return origin == "" || slices.Contains(h.opts.AllowedOrigins, origin)
}

// Health reports liveness and a few counters
func (h *RoomHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"rooms":       h.store.Len(),
		"connections": h.coord.Registry().Len(),
	})
}

// GetRoom returns the current snapshot of a room, hiding votes until they are revealed
func (h *RoomHandler) GetRoom(c *gin.Context) {
	var snapshot models.Snapshot
	ok := h.withRoom(c, func(room *models.Room) {
		snapshot = models.NewSnapshot(models.MessageUpdate, room)
	})
	if ok {
		c.JSON(http.StatusOK, snapshot)
	}
}

// GetHistory returns the revealed rounds of a room
func (h *RoomHandler) GetHistory(c *gin.Context) {
	var history []models.Round
	ok := h.withRoom(c, func(room *models.Room) {
		history = room.History()
	})
	if ok {
		standardResponse(c, http.StatusOK, "ok", history, "")
	}
}

func (h *RoomHandler) withRoom(c *gin.Context, fn func(*models.Room)) bool {
	actor, err := h.store.GetRoom(c.Param("id"))
	if err == nil {
		err = actor.Do(fn)
	}
	if errors.Is(err, models.ErrRoomNotFound) {
		standardResponse(c, http.StatusNotFound, "error", nil, models.ErrRoomNotFound.Error())
		return false
	}
	if err != nil {
		h.log.Error().Err(err).Str("room", c.Param("id")).Msg("room lookup failed")
		standardResponse(c, http.StatusInternalServerError, "error", nil, "internal error")
		return false
	}
	return true
}

// WebSocket upgrades the request and serves one client until it goes away
func (h *RoomHandler) WebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		h.log.Debug().Err(err).Str("ip", c.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	client := h.coord.Connect()
	h.log.Debug().Str("client", client.ID()).Str("ip", c.ClientIP()).Msg("websocket connected")

	go h.writePump(conn, client)
	h.readPump(conn, client)
}

package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Arvi89/scrum-poker/logger"
)

// NewRouter mounts the WebSocket endpoint and the room API on a gin engine
func NewRouter(h *RoomHandler, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinLogger(log))

	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
		MaxAge: 12 * time.Hour,
	}
	if len(h.opts.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = h.opts.AllowedOrigins
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", h.Health)

	// The browser client connects to the bare host
	router.GET("/", h.WebSocket)
	router.GET("/ws", h.WebSocket)

	api := router.Group("/api")
	{
		rooms := api.Group("/rooms/:id")
		{
			rooms.GET("", h.GetRoom)
			rooms.GET("/history", h.GetHistory)
		}
	}

	return router
}

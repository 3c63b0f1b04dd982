package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Arvi89/scrum-poker/config"
	"github.com/Arvi89/scrum-poker/db"
	"github.com/Arvi89/scrum-poker/handlers"
	"github.com/Arvi89/scrum-poker/hub"
	"github.com/Arvi89/scrum-poker/logger"
)

func main() {
	// A missing .env is fine, real env vars win anyway
	_ = godotenv.Load()

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// run returns only after its deferred cleanup has stopped every room
	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}

func run(cfg config.Config) error {

	zlog := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(cfg.GinMode)

	// Create a new store
	store := db.NewStore(zlog)

	coord := hub.NewCoordinator(store, hub.Options{
		EvictAfter: cfg.EvictAfter,
		SendBuffer: cfg.SendBuffer,
	}, zlog)
	defer coord.Close()

	opts := handlers.DefaultOptions()
	opts.AllowedOrigins = cfg.AllowedOrigins
	opts.RateLimit = cfg.RateLimit
	opts.RateBurst = cfg.RateBurst

	roomHandler := handlers.NewRoomHandler(store, coord, opts, zlog)
	router := handlers.NewRouter(roomHandler, zlog)

	server := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// Hijacked WebSocket connections are not tracked by Shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	zlog.Info().Int("port", cfg.Port).Dur("evict_after", cfg.EvictAfter).
		Strs("origins", cfg.AllowedOrigins).Msg("starting server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	zlog.Info().Msg("server stopped")
	return nil
}

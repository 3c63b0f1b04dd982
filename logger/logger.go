package logger

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger and returns it. format is "json" or
// "console"; an unknown level falls back to info.
func Setup(level, format string) zerolog.Logger {
	return SetupWriter(os.Stdout, level, format)
}

// SetupWriter is Setup with a custom destination
func SetupWriter(out io.Writer, level, format string) zerolog.Logger {
	if format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}

// GinLogger logs every request once it completes
func GinLogger(logger zerolog.Logger) gin.HandlerFunc {
	logger = logger.With().Str("component", "http").Logger()

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		ev := logger.Info()
		if c.Writer.Status() >= 500 {
			ev = logger.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("request completed")
	}
}

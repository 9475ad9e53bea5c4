// Package audit provides the structured event sink for the service.
// Audio payloads are bulk binary data and must never be logged raw, so the
// helpers here replace them with their size.
package audit

import (
	"encoding/base64"
	"log/slog"
	"os"
	"sync"
)

var (
	logger *slog.Logger
	once   sync.Once
)

// Init configures the global audit logger. Valid levels: debug, info,
// warn, error.
func Init(level string) {
	once.Do(func() {
		var lvl slog.Level
		switch level {
		case "debug":
			lvl = slog.LevelDebug
		case "warn":
			lvl = slog.LevelWarn
		case "error":
			lvl = slog.LevelError
		default:
			lvl = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: lvl}
		if os.Getenv("GO_ENV") == "production" {
			logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
		} else {
			logger = slog.New(slog.NewTextHandler(os.Stdout, opts))
		}
		slog.SetDefault(logger)
	})
}

// L returns the global audit logger.
func L() *slog.Logger {
	if logger == nil {
		Init("info")
	}
	return logger
}

// Payload redacts a base64 bulk field to its decoded byte length.
func Payload(key, b64 string) slog.Attr {
	n := base64.StdEncoding.DecodedLen(len(b64))
	// DecodedLen overestimates by up to two padding bytes; close enough for
	// an audit trail that must never carry the content itself.
	return slog.Int(key+"_bytes", n)
}

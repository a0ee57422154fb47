package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// parseLevel maps the logging.level config string to a slog.Level.
// Unknown or empty values fall back to info rather than erroring, so a typo in
// SWO_LOGGING_LEVEL degrades to noisier logs instead of a failed boot.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger installs the global slog logger from the logging.format and
// logging.level config values (SWO_LOGGING_FORMAT / SWO_LOGGING_LEVEL in the
// environment). "json" selects the JSON handler used in deployments; anything
// else gets the text handler for local development. Source locations are
// attached only at debug level.
//
// Installing the result as the default lets handlers, middleware, and jobs
// call slog.Info/Warn directly without threading a *slog.Logger around.
func SetupLogger(format, level string) {
	lvl := parseLevel(level)

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialised", "format", format, "level", lvl.String())
}

package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output so the
// aggregation pipeline can index on signal_id and action fields.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

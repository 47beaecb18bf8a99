// Package logging builds the JSON slog logger shared by the services.
//
// Under systemd, logs go straight to the journal through JournalWriter;
// elsewhere they go to stdout. A service can tee the same lines to MQTT with
// MQTTWriter so they show up next to the data.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a JSON logger writing to all of w, or to stdout when w is empty.
func New(level slog.Level, w ...io.Writer) *slog.Logger {
	var out io.Writer = os.Stdout
	switch len(w) {
	case 0:
	case 1:
		out = w[0]
	default:
		out = io.MultiWriter(w...)
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}

// ParseLevel accepts debug, info, warn and error (any case). Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

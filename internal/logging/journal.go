package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// JournalWriter sends each JSON log line to the systemd journal, with the
// journal priority taken from the line's "level" field.
type JournalWriter struct {
	identifier string
	send       func(message string, priority journal.Priority, vars map[string]string) error
}

func NewJournalWriter(identifier string) *JournalWriter {
	return &JournalWriter{identifier: identifier, send: journal.Send}
}

func (w *JournalWriter) Write(p []byte) (int, error) {
	line := bytes.TrimRight(p, "\n")

	var record struct {
		Level string `json:"level"`
	}
	priority := journal.PriInfo
	if err := json.Unmarshal(line, &record); err == nil {
		priority = journalPriority(record.Level)
	}

	vars := map[string]string{"SYSLOG_IDENTIFIER": w.identifier}
	if err := w.send(string(line), priority, vars); err != nil {
		return 0, err
	}
	return len(p), nil
}

// journalPriority maps slog level names, including offsets like "ERROR+2".
func journalPriority(level string) journal.Priority {
	switch {
	case strings.HasPrefix(level, "ERROR"):
		return journal.PriErr
	case strings.HasPrefix(level, "WARN"):
		return journal.PriWarning
	case strings.HasPrefix(level, "DEBUG"):
		return journal.PriDebug
	default:
		return journal.PriInfo
	}
}

// Output is the journal when its native socket is reachable, stdout
// otherwise (foreground runs, containers).
func Output(identifier string) io.Writer {
	if journal.Enabled() {
		return NewJournalWriter(identifier)
	}
	return os.Stdout
}

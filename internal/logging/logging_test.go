package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	topics   []string
	payloads [][]byte
}

func (p *recordingPublisher) PublishAsync(topic string, payload []byte) {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "INFO", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: " warn ", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNewTeesToMQTT(t *testing.T) {
	var stdout bytes.Buffer
	pub := &recordingPublisher{}
	w := NewMQTTWriter(pub, "fan-controller", "")

	logger := New(slog.LevelInfo, &stdout, w)
	logger.Debug("hidden")
	logger.Info("Relay switched", "state", "on")

	require.Equal(t, []string{"logs/fan-controller"}, pub.topics)
	require.Equal(t, stdout.Bytes(), pub.payloads[0])

	var line map[string]any
	require.NoError(t, json.Unmarshal(pub.payloads[0], &line))
	require.Equal(t, "Relay switched", line["msg"])
	require.Equal(t, "on", line["state"])
}

func TestMQTTWriterCopiesPayload(t *testing.T) {
	pub := &recordingPublisher{}
	w := NewMQTTWriter(pub, "sensor-publisher", "enclosure/logs")
	require.Equal(t, "enclosure/logs", w.Topic())

	buf := []byte("first")
	n, err := w.Write(buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	copy(buf, "XXXXX")
	require.Equal(t, "first", string(pub.payloads[0]))
}

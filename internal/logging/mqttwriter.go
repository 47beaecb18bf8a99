package logging

import (
	"fmt"
)

// AsyncPublisher is the part of the MQTT client the writer needs.
type AsyncPublisher interface {
	PublishAsync(topic string, payload []byte)
}

// MQTTWriter is an io.Writer that sends every log line to an MQTT topic.
// Publishing is fire-and-forget so a slow broker never stalls logging.
type MQTTWriter struct {
	pub   AsyncPublisher
	topic string
}

// NewMQTTWriter publishes to topic, or to "logs/<service>" when topic is empty.
func NewMQTTWriter(pub AsyncPublisher, service, topic string) *MQTTWriter {
	if topic == "" {
		topic = fmt.Sprintf("logs/%s", service)
	}
	return &MQTTWriter{pub: pub, topic: topic}
}

// Topic returns the topic log lines are published to.
func (w *MQTTWriter) Topic() string {
	return w.topic
}

func (w *MQTTWriter) Write(p []byte) (int, error) {
	// slog reuses its buffer after Write returns.
	payload := make([]byte, len(p))
	copy(payload, p)

	w.pub.PublishAsync(w.topic, payload)
	return len(p), nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Bus is the outbound half of the MQTT client.
type Bus interface {
	Publish(topic, payload string) error
}

// Thermometer is any single-value temperature source.
type Thermometer interface {
	Temperature() (float64, error)
}

// Publisher polls the sensor and forwards each reading to MQTT.
// It keeps nothing between cycles.
type Publisher struct {
	cfg    Config
	sensor Sensor
	soc    Thermometer // nil unless Config.SocTempTopic is set
	bus    Bus
	logger *slog.Logger
}

func NewPublisher(cfg Config, sensor Sensor, soc Thermometer, bus Bus, logger *slog.Logger) *Publisher {
	if cfg.SocTempTopic == "" {
		soc = nil
	}
	return &Publisher{cfg: cfg, sensor: sensor, soc: soc, bus: bus, logger: logger}
}

// formatValue is used for both the payload and the log line so the two
// never disagree.
func formatValue(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// Poll runs one cycle: read, then publish temperature and humidity as two
// independent messages. A failed read publishes nothing.
func (p *Publisher) Poll() {
	reading, err := p.sensor.Read()
	if err != nil {
		p.logger.Error("Failed to retrieve data from humidity sensor", "error", err)
		return
	}

	p.publish("Enclosure temperature", p.cfg.TempTopic, reading.Temperature)
	p.publish("Enclosure humidity", p.cfg.HumidTopic, reading.Humidity)

	if p.soc != nil {
		temp, err := p.soc.Temperature()
		if err != nil {
			p.logger.Error("Failed to read SoC temperature", "error", err)
			return
		}
		p.publish("SoC temperature", p.cfg.SocTempTopic, temp)
	}
}

// publish logs and swallows failures; the next cycle may succeed once the
// broker is back.
func (p *Publisher) publish(what, topic string, value float64) {
	payload := formatValue(value)
	if err := p.bus.Publish(topic, payload); err != nil {
		p.logger.Error("Publish failed", "metric", what, "topic", topic, "error", err)
		return
	}
	p.logger.Info(what+" published", "topic", topic, "value", payload)
}

// Run polls once right away, then every Config.Interval until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	p.logger.Info("Starting poll loop", "interval", p.cfg.Interval)
	p.Poll()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Received shutdown signal")
			return
		case <-ticker.C:
			p.Poll()
		}
	}
}

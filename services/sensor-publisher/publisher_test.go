package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/stretchr/testify/require"
)

type fakeSensor struct {
	reading Reading
	err     error
}

func (s *fakeSensor) Read() (Reading, error) {
	return s.reading, s.err
}

type published struct {
	topic   string
	payload string
}

type fakeBus struct {
	mu       sync.Mutex
	messages []published
	failOn   string
}

func (b *fakeBus) Publish(topic, payload string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, published{topic, payload})
	if topic == b.failOn {
		return errors.New("not connected")
	}
	return nil
}

func (b *fakeBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

type fixedThermometer float64

func (f fixedThermometer) Temperature() (float64, error) { return float64(f), nil }

func testConfig() Config {
	return Config{
		TempTopic:  "enclosure/temperature",
		HumidTopic: "enclosure/humidity",
		Interval:   time.Hour,
	}
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestPollPublishesTemperatureThenHumidity(t *testing.T) {
	logger, logs := bufferLogger()
	bus := &fakeBus{}
	sensor := &fakeSensor{reading: Reading{Temperature: 21.46, Humidity: 55.04}}

	NewPublisher(testConfig(), sensor, nil, bus, logger).Poll()

	require.Equal(t, []published{
		{"enclosure/temperature", "21.5"},
		{"enclosure/humidity", "55.0"},
	}, bus.messages)

	out := logs.String()
	require.Contains(t, out, "value=21.5")
	require.Contains(t, out, "value=55.0")
	require.NotContains(t, out, "level=ERROR")
}

func TestPollFormatsLikeTheLog(t *testing.T) {
	for _, v := range []float64{-4.05, 0, 19.94, 99.99} {
		logger, logs := bufferLogger()
		bus := &fakeBus{}
		sensor := &fakeSensor{reading: Reading{Temperature: v, Humidity: v}}

		NewPublisher(testConfig(), sensor, nil, bus, logger).Poll()

		require.Len(t, bus.messages, 2)
		for _, m := range bus.messages {
			require.Equal(t, fmt.Sprintf("%.1f", v), m.payload)
			require.Contains(t, logs.String(), "value="+m.payload)
		}
	}
}

func TestPollFailedReadPublishesNothing(t *testing.T) {
	logger, logs := bufferLogger()
	bus := &fakeBus{}
	sensor := &fakeSensor{err: fmt.Errorf("%w: checksum mismatch", ErrNoReading)}

	NewPublisher(testConfig(), sensor, fixedThermometer(50), bus, logger).Poll()

	require.Empty(t, bus.messages)
	require.Equal(t, 1, strings.Count(logs.String(), "level=ERROR"))
	require.Contains(t, logs.String(), "Failed to retrieve data from humidity sensor")
}

func TestPollPublishFailureIsSwallowed(t *testing.T) {
	logger, logs := bufferLogger()
	bus := &fakeBus{failOn: "enclosure/temperature"}
	sensor := &fakeSensor{reading: Reading{Temperature: 20, Humidity: 40}}

	NewPublisher(testConfig(), sensor, nil, bus, logger).Poll()

	// Humidity is still attempted after the temperature publish failed.
	require.Len(t, bus.messages, 2)
	require.Contains(t, logs.String(), "Publish failed")
	require.Contains(t, logs.String(), "Enclosure humidity published")
}

func TestPollSocTemperatureIsOptIn(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sensor := &fakeSensor{reading: Reading{Temperature: 20, Humidity: 40}}

	bus := &fakeBus{}
	NewPublisher(testConfig(), sensor, fixedThermometer(48.3), bus, logger).Poll()
	require.Len(t, bus.messages, 2)

	cfg := testConfig()
	cfg.SocTempTopic = "enclosure/soc_temperature"
	bus = &fakeBus{}
	NewPublisher(cfg, sensor, fixedThermometer(48.3), bus, logger).Poll()
	require.Len(t, bus.messages, 3)
	require.Equal(t, published{"enclosure/soc_temperature", "48.3"}, bus.messages[2])
}

func TestRunPollsImmediatelyAndStopsOnCancel(t *testing.T) {
	logger, logs := bufferLogger()
	bus := &fakeBus{}
	sensor := &fakeSensor{reading: Reading{Temperature: 20, Humidity: 40}}
	p := NewPublisher(testConfig(), sensor, nil, bus, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return bus.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.Contains(t, logs.String(), "Received shutdown signal")
}

func TestSocThermometer(t *testing.T) {
	s := NewSocThermometer("cpu_thermal")
	s.sensors = func() ([]host.TemperatureStat, error) {
		return []host.TemperatureStat{
			{SensorKey: "rp1_adc_input", Temperature: 30},
			{SensorKey: "cpu_thermal_input", Temperature: 51.2},
		}, errors.New("partial read")
	}
	temp, err := s.Temperature()
	require.NoError(t, err)
	require.Equal(t, 51.2, temp)

	s.sensors = func() ([]host.TemperatureStat, error) {
		return nil, errors.New("no thermal zones")
	}
	_, err = s.Temperature()
	require.ErrorContains(t, err, "no thermal zones")

	s.sensors = func() ([]host.TemperatureStat, error) {
		return []host.TemperatureStat{{SensorKey: "nvme_composite", Temperature: 40}}, nil
	}
	_, err = s.Temperature()
	require.ErrorContains(t, err, "cpu_thermal")
}

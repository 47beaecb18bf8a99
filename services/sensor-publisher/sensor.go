package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/d2r2/go-dht"
	dhtlog "github.com/d2r2/go-logger"
)

// ErrNoReading means the sensor gave up after its own retries.
var ErrNoReading = errors.New("no reading from sensor")

// Reading is one temperature (°C) / relative humidity (%) sample.
type Reading struct {
	Temperature float64
	Humidity    float64
}

// Sensor yields a complete reading or an error wrapping ErrNoReading.
type Sensor interface {
	Read() (Reading, error)
}

// DHT22 reads an AM2302/DHT22 on a BCM pin. The driver retries checksum and
// timing failures internally, so one Read is one atomic attempt for us.
type DHT22 struct {
	pin     int
	retries int
	logger  *slog.Logger
}

func NewDHT22(pin, retries int, logger *slog.Logger) *DHT22 {
	return &DHT22{pin: pin, retries: retries, logger: logger}
}

func (s *DHT22) Read() (Reading, error) {
	temperature, humidity, retried, err := dht.ReadDHTxxWithRetry(dht.DHT22, s.pin, false, s.retries)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: pin %d: %v", ErrNoReading, s.pin, err)
	}
	if retried > 0 {
		s.logger.Debug("Sensor read needed retries", "pin", s.pin, "retried", retried)
	}
	return Reading{Temperature: float64(temperature), Humidity: float64(humidity)}, nil
}

// dhtLogLevel maps the service log level onto go-dht's package logger,
// which prints every raw pulse train at its default debug level.
func dhtLogLevel(level slog.Level) dhtlog.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return dhtlog.DebugLevel
	case level <= slog.LevelInfo:
		return dhtlog.InfoLevel
	case level <= slog.LevelWarn:
		return dhtlog.WarnLevel
	default:
		return dhtlog.ErrorLevel
	}
}

// configureDHTLogging applies LOG_LEVEL to the driver's own output.
func configureDHTLogging(level slog.Level) error {
	return dhtlog.ChangePackageLogLevel("dht", dhtLogLevel(level))
}

package main

import (
	"fmt"
	"strconv"
	"time"

	"pi-enclosure/internal/broker"
	"pi-enclosure/internal/envconfig"
)

// Config holds everything the publisher needs, read once from the environment.
type Config struct {
	MQTT broker.Config

	TempTopic  string
	HumidTopic string

	// SocTempTopic enables the optional board temperature message when set.
	SocTempTopic string
	SocSensorKey string

	// DHTPin is the BCM number of the DHT22 data pin.
	DHTPin     int
	DHTRetries int

	// Interval between two sensor polls (e.g. "30s", "1m").
	Interval time.Duration

	LogLevel   string
	LogTopic   string
	HealthPort string
}

// LoadConfig validates the required keys first so the error names the first
// missing one, then parses the optional keys.
func LoadConfig() (Config, error) {
	req, err := envconfig.Required(
		"MQTT_HOST", "MQTT_TOPIC_TEMP_PREFIX", "MQTT_TOPIC_HUMID_PREFIX",
		"MQTT_USERNAME", "MQTT_PASSWORD", "DHT_PIN",
	)
	if err != nil {
		return Config{}, err
	}

	pin, err := strconv.Atoi(req["DHT_PIN"])
	if err != nil || pin < 0 {
		return Config{}, fmt.Errorf("DHT_PIN: invalid pin %q", req["DHT_PIN"])
	}
	port, err := envconfig.Int("MQTT_PORT", broker.DefaultPort)
	if err != nil {
		return Config{}, err
	}
	retries, err := envconfig.Int("DHT_RETRIES", 15)
	if err != nil {
		return Config{}, err
	}
	interval, err := envconfig.Duration("POLL_INTERVAL", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	return Config{
		MQTT: broker.Config{
			Host:     req["MQTT_HOST"],
			Port:     port,
			Username: req["MQTT_USERNAME"],
			Password: req["MQTT_PASSWORD"],
			ClientID: envconfig.String("MQTT_CLIENT_ID", "enclosure"),
			// An unreachable broker must not stop the poll loop.
			ConnectRetry: true,
		},
		TempTopic:    req["MQTT_TOPIC_TEMP_PREFIX"],
		HumidTopic:   req["MQTT_TOPIC_HUMID_PREFIX"],
		SocTempTopic: envconfig.String("MQTT_TOPIC_SOC_TEMP_PREFIX", ""),
		SocSensorKey: envconfig.String("SOC_SENSOR_KEY", "cpu_thermal"),
		DHTPin:       pin,
		DHTRetries:   retries,
		Interval:     interval,
		LogLevel:     envconfig.String("LOG_LEVEL", "info"),
		LogTopic:     envconfig.String("LOG_TOPIC", ""),
		HealthPort:   envconfig.String("HEALTH_PORT", ""),
	}, nil
}

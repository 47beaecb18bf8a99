package main

import (
	"fmt"
	"strconv"
	"time"

	"pi-enclosure/internal/broker"
	"pi-enclosure/internal/envconfig"
)

// Config holds the controller settings, read once from the environment.
type Config struct {
	MQTT broker.Config

	// FanTopic receives commands, StatusTopic carries "0"/"1" back.
	FanTopic    string
	StatusTopic string

	// GPIO line driving the relay.
	GPIOChip      string
	GPIOPin       int
	GPIOActiveLow bool

	// Bounded retry for the first connection only; later drops are handled
	// by the client's auto-reconnect.
	ConnectAttempts   int
	ConnectRetryDelay time.Duration

	LogLevel   string
	LogTopic   string
	HealthPort string
}

func LoadConfig() (Config, error) {
	req, err := envconfig.Required(
		"MQTT_HOST", "MQTT_USERNAME", "MQTT_PASSWORD",
		"MQTT_TOPIC_FAN_PREFIX", "MQTT_TOPIC_FAN_STATUS_PREFIX", "GPIO_PIN",
	)
	if err != nil {
		return Config{}, err
	}

	pin, err := strconv.Atoi(req["GPIO_PIN"])
	if err != nil || pin < 0 {
		return Config{}, fmt.Errorf("GPIO_PIN: invalid pin %q", req["GPIO_PIN"])
	}
	port, err := envconfig.Int("MQTT_PORT", broker.DefaultPort)
	if err != nil {
		return Config{}, err
	}
	activeLow, err := envconfig.Bool("GPIO_ACTIVE_LOW", false)
	if err != nil {
		return Config{}, err
	}
	attempts, err := envconfig.Int("CONNECT_ATTEMPTS", 5)
	if err != nil {
		return Config{}, err
	}
	if attempts < 1 {
		return Config{}, fmt.Errorf("CONNECT_ATTEMPTS: must be at least 1, got %d", attempts)
	}
	delay, err := envconfig.Duration("CONNECT_RETRY_DELAY", 5*time.Second)
	if err != nil {
		return Config{}, err
	}

	return Config{
		MQTT: broker.Config{
			Host:     req["MQTT_HOST"],
			Port:     port,
			Username: req["MQTT_USERNAME"],
			Password: req["MQTT_PASSWORD"],
			ClientID: envconfig.String("MQTT_CLIENT_ID", "fan-controller"),
		},
		FanTopic:          req["MQTT_TOPIC_FAN_PREFIX"],
		StatusTopic:       req["MQTT_TOPIC_FAN_STATUS_PREFIX"],
		GPIOChip:          envconfig.String("GPIO_CHIP", "gpiochip0"),
		GPIOPin:           pin,
		GPIOActiveLow:     activeLow,
		ConnectAttempts:   attempts,
		ConnectRetryDelay: delay,
		LogLevel:          envconfig.String("LOG_LEVEL", "info"),
		LogTopic:          envconfig.String("LOG_TOPIC", ""),
		HealthPort:        envconfig.String("HEALTH_PORT", ""),
	}, nil
}

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pi-enclosure/internal/envconfig"
)

var requiredKeys = []string{
	"MQTT_HOST", "MQTT_USERNAME", "MQTT_PASSWORD",
	"MQTT_TOPIC_FAN_PREFIX", "MQTT_TOPIC_FAN_STATUS_PREFIX", "GPIO_PIN",
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("MQTT_HOST", "homeassistant.local")
	t.Setenv("MQTT_USERNAME", "fan")
	t.Setenv("MQTT_PASSWORD", "secret")
	t.Setenv("MQTT_TOPIC_FAN_PREFIX", "home/extractor/set")
	t.Setenv("MQTT_TOPIC_FAN_STATUS_PREFIX", "home/extractor/state")
	t.Setenv("GPIO_PIN", "17")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "tcp://homeassistant.local:1883", cfg.MQTT.URL())
	require.Equal(t, "fan-controller", cfg.MQTT.ClientID)
	require.False(t, cfg.MQTT.ConnectRetry)
	require.Equal(t, "home/extractor/set", cfg.FanTopic)
	require.Equal(t, "home/extractor/state", cfg.StatusTopic)
	require.Equal(t, "gpiochip0", cfg.GPIOChip)
	require.Equal(t, 17, cfg.GPIOPin)
	require.False(t, cfg.GPIOActiveLow)
	require.Equal(t, 5, cfg.ConnectAttempts)
	require.Equal(t, 5*time.Second, cfg.ConnectRetryDelay)
}

func TestLoadConfigMissingKey(t *testing.T) {
	for _, key := range requiredKeys {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "")

			_, err := LoadConfig()
			var missing *envconfig.MissingKeyError
			require.ErrorAs(t, err, &missing)
			require.Equal(t, key, missing.Key)
		})
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"GPIO_PIN", "BCM17"},
		{"GPIO_PIN", "-1"},
		{"GPIO_ACTIVE_LOW", "sometimes"},
		{"CONNECT_ATTEMPTS", "0"},
		{"CONNECT_RETRY_DELAY", "5"},
		{"MQTT_PORT", "mqtt"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			require.ErrorContains(t, err, tt.key)
		})
	}
}

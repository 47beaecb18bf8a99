package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"pi-enclosure/internal/broker"
	"pi-enclosure/internal/envconfig"
	"pi-enclosure/internal/health"
	"pi-enclosure/internal/logging"
)

const serviceName = "fan-controller"

func main() {
	// 1. Bootstrap logger, replaced below once the level is known.
	logger := logging.New(slog.LevelInfo)

	// 2. Configuration. Anything missing is fatal before we touch the pin.
	if err := envconfig.LoadDotEnv(); err != nil {
		logger.Error("Failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := LoadConfig()
	if err != nil {
		var missing *envconfig.MissingKeyError
		if errors.As(err, &missing) {
			logger.Error("Missing required environment variable", "key", missing.Key)
		} else {
			logger.Error("Invalid configuration", "error", err)
		}
		os.Exit(1)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	out := logging.Output(serviceName)
	logger = logging.New(level, out)

	// 3. Relay. Opening it keeps whatever level the line already has.
	relay, err := OpenGPIORelay(cfg.GPIOChip, cfg.GPIOPin, cfg.GPIOActiveLow)
	if err != nil {
		logger.Error("Failed to open relay", "chip", cfg.GPIOChip, "pin", cfg.GPIOPin, "error", err)
		os.Exit(1)
	}

	// 4. Controller + MQTT client. Every (re)connect goes through
	// controller.OnConnect, which resyncs the status topic.
	controller := NewController(cfg, relay, logger)
	client := broker.New(cfg.MQTT, logger, controller.OnConnect)
	controller.Attach(client)

	if cfg.LogTopic != "" {
		logger = logging.New(level, out, logging.NewMQTTWriter(client, serviceName, cfg.LogTopic))
		client.SetLogger(logger)
		controller.logger = logger
	}
	logger.Info("Starting fan controller",
		"broker", cfg.MQTT.URL(), "command_topic", cfg.FanTopic, "status_topic", cfg.StatusTopic,
		"chip", cfg.GPIOChip, "pin", cfg.GPIOPin)

	// 5. SIGINT/SIGTERM cancel the context; Serve then cleans up.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go health.Serve(ctx, cfg.HealthPort, client.Ping, logger)

	daemon.SdNotify(false, daemon.SdNotifyReady)
	err = controller.Serve(ctx)
	daemon.SdNotify(false, daemon.SdNotifyStopping)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Fan controller stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Fan controller stopped")
}

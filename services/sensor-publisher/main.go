package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	dhtlog "github.com/d2r2/go-logger"

	"pi-enclosure/internal/broker"
	"pi-enclosure/internal/envconfig"
	"pi-enclosure/internal/health"
	"pi-enclosure/internal/logging"
)

const serviceName = "sensor-publisher"

func main() {
	// 1. Bootstrap logger, replaced below once the level is known.
	logger := logging.New(slog.LevelInfo)

	// 2. Configuration. Anything missing is fatal before the loop starts.
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

	defer dhtlog.FinalizeLogger()
	if err := configureDHTLogging(level); err != nil {
		logger.Warn("Failed to set sensor driver log level", "error", err)
	}

	// 3. MQTT client. paho keeps retrying the first connect in the background,
	// publishes before that simply fail and get logged.
	client := broker.New(cfg.MQTT, logger, nil)
	defer client.Disconnect()

	if cfg.LogTopic != "" {
		logger = logging.New(level, out, logging.NewMQTTWriter(client, serviceName, cfg.LogTopic))
		client.SetLogger(logger)
	}
	logger.Info("Starting sensor publisher", "broker", cfg.MQTT.URL(), "pin", cfg.DHTPin, "interval", cfg.Interval)

	// 4. Shutdown on SIGINT (Ctrl+C) or SIGTERM (systemctl stop).
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := client.Connect(ctx); err != nil && ctx.Err() == nil {
			logger.Error("MQTT connect failed", "error", err)
		}
	}()
	go health.Serve(ctx, cfg.HealthPort, client.Ping, logger)

	// 5. Poll loop.
	sensor := NewDHT22(cfg.DHTPin, cfg.DHTRetries, logger)
	publisher := NewPublisher(cfg, sensor, NewSocThermometer(cfg.SocSensorKey), client, logger)

	daemon.SdNotify(false, daemon.SdNotifyReady)
	publisher.Run(ctx)
	daemon.SdNotify(false, daemon.SdNotifyStopping)
}

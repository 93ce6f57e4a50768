package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/Ramdhani171024/uts-iot/internal/config"
	"github.com/Ramdhani171024/uts-iot/internal/logging"
	"github.com/Ramdhani171024/uts-iot/internal/mqtt"
	"github.com/Ramdhani171024/uts-iot/internal/simulator"
)

const appName = "uts-iot-simulator"

var version = "dev"

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	cfg.MQTTClientID = "uts-iot-sim-" + cfg.SimDeviceID

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	client, err := mqtt.NewClient(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.MQTTConnectTimeout)
	err = client.Connect(connectCtx)
	cancel()
	if err != nil {
		logger.Warn("mqtt not connected yet, publishing will retry", "error", err)
	}

	topic := mqtt.DataTopic(cfg.MQTTTopicPrefix, cfg.SimDeviceID)
	logger.Info("simulating device",
		"device_id", cfg.SimDeviceID,
		"topic", topic,
		"interval", cfg.SimInterval,
	)

	sim := simulator.New(client, simulator.Options{
		Topic:    topic,
		Interval: cfg.SimInterval,
		Seed:     uint64(time.Now().UnixNano()),
	}, logger)
	return sim.Run(ctx)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Ramdhani171024/uts-iot/internal/config"
	"github.com/Ramdhani171024/uts-iot/internal/db"
	"github.com/Ramdhani171024/uts-iot/internal/httpapi"
	"github.com/Ramdhani171024/uts-iot/internal/hub"
	"github.com/Ramdhani171024/uts-iot/internal/metrics"
	"github.com/Ramdhani171024/uts-iot/internal/migrate"
	"github.com/Ramdhani171024/uts-iot/internal/modules/command"
	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor"
	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/service"
	"github.com/Ramdhani171024/uts-iot/internal/mqtt"
	"github.com/Ramdhani171024/uts-iot/internal/serial"
)

// TransportStartupError means one inbound transport could not start. It is
// logged and the rest of the gateway keeps running.
type TransportStartupError struct {
	Transport string
	Err       error
}

func (e *TransportStartupError) Error() string {
	return fmt.Sprintf("%s transport unavailable: %v", e.Transport, e.Err)
}

func (e *TransportStartupError) Unwrap() error { return e.Err }

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopicPrefix", cfg.MQTTTopicPrefix,
		"serialPort", cfg.SerialPort,
		"serialBaud", cfg.SerialBaud,
		"serialPersist", cfg.SerialPersist,
	)

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn, logger); err != nil {
		return err
	}
	logger.Info("database ready")

	m := metrics.New()
	liveHub := hub.New(logger, m)
	socketServer, err := hub.NewSocketServer(liveHub, logger)
	if err != nil {
		return fmt.Errorf("socket.io server: %w", err)
	}

	mqttClient, err := mqtt.NewClient(cfg, logger)
	if err != nil {
		return err
	}

	deps := httpapi.Deps{
		DB:        dbConn,
		StaticDir: cfg.StaticDir,
		Socket:    socketServer,
		Metrics:   m.Handler(),
		MQTT:      mqttClient,
		Logger:    logger,
	}

	var serialListener *serial.Listener
	if cfg.SerialPort != "" {
		serialListener = serial.NewListener(cfg, nil, logger, m)
		deps.Serial = serialListener
	}

	mux := httpapi.NewMux(deps)

	// The handler must be set before Connect: the broker may deliver as soon
	// as the subscription is made.
	sensorService := sensor.RegisterFeature(mux, dbConn, liveHub, mqttClient, service.Options{
		TopicPrefix:   cfg.MQTTTopicPrefix,
		PersistSerial: cfg.SerialPersist,
	}, logger, m)
	command.RegisterFeature(mux, mqttClient, cfg.MQTTTopicPrefix, logger, m)

	go func() {
		if err := socketServer.Serve(); err != nil {
			logger.Error("socket.io serve", "error", err)
		}
	}()

	m.SetTransportUp(service.TransportMQTT, false)
	mqttClient.SetStatusHandler(func(connected bool) {
		m.SetTransportUp(service.TransportMQTT, connected)
	})

	connectCtx, connectCancel := context.WithTimeout(ctx, cfg.MQTTConnectTimeout)
	err = mqttClient.Connect(connectCtx)
	connectCancel()
	if err != nil {
		logger.Warn("continuing without mqtt, retrying in background",
			"error", &TransportStartupError{Transport: service.TransportMQTT, Err: err})
	}

	// Stops the serial loop whether shutdown comes from ctx or a server error.
	serialCtx, stopSerial := context.WithCancel(ctx)
	defer stopSerial()

	serialDone := make(chan struct{})
	if serialListener != nil {
		if err := serialListener.Open(); err != nil {
			logger.Warn("continuing without serial, retrying in background",
				"error", &TransportStartupError{Transport: service.TransportSerial, Err: err},
				"retry_every", cfg.SerialReopenInterval)
		}
		go func() {
			defer close(serialDone)
			serialListener.Run(serialCtx, sensorService.HandleFrame)
		}()
	} else {
		close(serialDone)
		logger.Info("serial listener disabled")
	}

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	stopSerial()
	<-serialDone

	logger.Info("mqtt disconnecting")
	mqttClient.Disconnect()

	if err := socketServer.Close(); err != nil {
		logger.Warn("socket.io close", "error", err)
	}

	if serveErr != nil {
		if errors.Is(serveErr, http.ErrServerClosed) {
			return nil
		}
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// Package service routes inbound readings from the transports into the store
// and out to live viewers.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Ramdhani171024/uts-iot/internal/metrics"
	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/repository"
	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/types"
	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/validator"
)

const (
	TransportMQTT   = "mqtt"
	TransportSerial = "serial"
)

// storeTimeout bounds a single insert triggered by a transport callback.
const storeTimeout = 5 * time.Second

// maxLoggedPayload caps how much of a rejected payload ends up in the log.
const maxLoggedPayload = 256

// Broadcaster is satisfied by *hub.Hub.
type Broadcaster interface {
	Broadcast(r types.LiveReading)
}

type Options struct {
	TopicPrefix string
	// PersistSerial stores serial readings before broadcasting them. The
	// broadcast happens even if the insert fails.
	PersistSerial bool
}

type Service struct {
	repository repository.SensorRepository
	hub        Broadcaster
	opts       Options
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewService(repo repository.SensorRepository, hub Broadcaster, opts Options, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repository: repo,
		hub:        hub,
		opts:       opts,
		logger:     logger,
		metrics:    m,
	}
}

// decode validates payload, counting and logging a rejection. ok is false
// when the payload was dropped.
func (s *Service) decode(transport string, payload []byte, logger *slog.Logger) (types.Reading, bool) {
	r, err := validator.Decode(payload)
	if err == nil {
		return r, true
	}

	result := metrics.ResultInvalid
	if errors.Is(err, validator.ErrMalformedPayload) {
		result = metrics.ResultDecodeError
	}
	s.record(transport, result)
	logger.Warn("dropping sensor payload",
		"error", err,
		"payload", truncate(payload),
	)
	return types.Reading{}, false
}

func (s *Service) insert(r types.Reading) (types.StoredReading, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	return s.repository.InsertReading(ctx, r)
}

func (s *Service) record(transport, result string) {
	s.metrics.IngestMessages.WithLabelValues(transport, result).Inc()
}

func truncate(payload []byte) string {
	if len(payload) <= maxLoggedPayload {
		return string(payload)
	}
	return string(payload[:maxLoggedPayload]) + "..."
}

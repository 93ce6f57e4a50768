// Package service publishes device commands on the messaging channel.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Ramdhani171024/uts-iot/internal/metrics"
	"github.com/Ramdhani171024/uts-iot/internal/mqtt"
)

var (
	ErrMissingAction   = errors.New("action required")
	ErrInvalidDeviceID = errors.New("invalid device id")
)

// DispatchError is a failed publish. There is no retry.
type DispatchError struct {
	Topic string
	Err   error
}

func (e *DispatchError) Error() string { return fmt.Sprintf("publish to %s: %v", e.Topic, e.Err) }

func (e *DispatchError) Unwrap() error { return e.Err }

// Publisher is satisfied by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

type Command struct {
	Action string `json:"action"`
}

type Dispatcher struct {
	publisher Publisher
	prefix    string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewDispatcher(publisher Publisher, topicPrefix string, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		prefix:    topicPrefix,
		logger:    logger,
		metrics:   m,
	}
}

// Dispatch publishes {"action": action} once to the device's command topic
// and returns that topic.
func (d *Dispatcher) Dispatch(ctx context.Context, deviceID, action string) (string, error) {
	if !mqtt.ValidDeviceID(deviceID) {
		d.metrics.Commands.WithLabelValues(metrics.CommandRejected).Inc()
		return "", fmt.Errorf("%w: %q", ErrInvalidDeviceID, deviceID)
	}
	if strings.TrimSpace(action) == "" {
		d.metrics.Commands.WithLabelValues(metrics.CommandRejected).Inc()
		return "", ErrMissingAction
	}

	topic := mqtt.CommandTopic(d.prefix, deviceID)
	if err := ctx.Err(); err != nil {
		d.metrics.Commands.WithLabelValues(metrics.CommandFailed).Inc()
		return topic, &DispatchError{Topic: topic, Err: err}
	}

	payload, err := json.Marshal(Command{Action: action})
	if err != nil {
		d.metrics.Commands.WithLabelValues(metrics.CommandFailed).Inc()
		return topic, &DispatchError{Topic: topic, Err: err}
	}

	if err := d.publisher.Publish(topic, payload); err != nil {
		d.metrics.Commands.WithLabelValues(metrics.CommandFailed).Inc()
		d.logger.Error("command publish failed", "topic", topic, "device_id", deviceID, "error", err)
		return topic, &DispatchError{Topic: topic, Err: err}
	}

	d.metrics.Commands.WithLabelValues(metrics.CommandSent).Inc()
	d.logger.Info("command sent", "topic", topic, "device_id", deviceID, "action", action)
	return topic, nil
}

package service

import (
	"github.com/Ramdhani171024/uts-iot/internal/metrics"
	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/types"
	"github.com/Ramdhani171024/uts-iot/internal/mqtt"
)

// MQTTSubscriber is the part of *mqtt.Client the service needs.
type MQTTSubscriber interface {
	SetMessageHandler(handler mqtt.MessageHandler)
}

func (s *Service) RegisterMQTT(subscriber MQTTSubscriber) {
	subscriber.SetMessageHandler(s.HandleMessage)
}

// HandleMessage persists one data message and broadcasts the stored row.
// Nothing is broadcast when the insert fails.
func (s *Service) HandleMessage(topic string, payload []byte) {
	logger := s.logger.With("transport", TransportMQTT, "topic", topic)

	deviceID, ok := mqtt.DeviceIDFromTopic(s.opts.TopicPrefix, topic)
	if !ok {
		s.record(TransportMQTT, metrics.ResultInvalid)
		logger.Warn("dropping message on unexpected topic")
		return
	}
	logger = logger.With("device_id", deviceID)

	reading, ok := s.decode(TransportMQTT, payload, logger)
	if !ok {
		return
	}

	stored, err := s.insert(reading)
	if err != nil {
		s.record(TransportMQTT, metrics.ResultStoreError)
		logger.Error("failed to insert reading", "error", err)
		return
	}
	s.record(TransportMQTT, metrics.ResultStored)
	logger.Debug("stored reading", "id", stored.ID, "timestamp", stored.Timestamp)

	s.hub.Broadcast(types.LiveReading{ID: stored.ID, Reading: stored.Reading})
}

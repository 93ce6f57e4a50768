package service

import (
	"github.com/Ramdhani171024/uts-iot/internal/metrics"
	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/types"
)

// HandleFrame broadcasts one serial frame, storing it first when serial
// persistence is on. A failed insert still broadcasts, without an id.
func (s *Service) HandleFrame(frame []byte) {
	logger := s.logger.With("transport", TransportSerial)

	reading, ok := s.decode(TransportSerial, frame, logger)
	if !ok {
		return
	}

	live := types.LiveReading{Reading: reading}
	result := metrics.ResultBroadcastOnly
	if s.opts.PersistSerial {
		stored, err := s.insert(reading)
		if err != nil {
			result = metrics.ResultStoreError
			logger.Error("failed to insert reading", "error", err)
		} else {
			result = metrics.ResultStored
			live.ID = stored.ID
		}
	}

	s.hub.Broadcast(live)
	s.record(TransportSerial, result)
}

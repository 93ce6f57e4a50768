package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramdhani171024/uts-iot/internal/logging"
	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/validator"
)

type recordingPublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	failures int
}

func (p *recordingPublisher) Publish(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("mqtt client not connected")
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, append([]byte(nil), payload...))
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

var fixedNow = func() time.Time { return time.Date(2025, 11, 12, 6, 0, 0, 0, time.UTC) }

func TestPublishOnce_payloadPassesValidation(t *testing.T) {
	pub := &recordingPublisher{}
	sim := New(pub, Options{Topic: "uts/iot/esp32a/data", Interval: time.Second, Seed: 1, Now: fixedNow}, logging.Discard())

	want, err := sim.PublishOnce()
	require.NoError(t, err)

	require.Equal(t, 1, pub.count())
	assert.Equal(t, "uts/iot/esp32a/data", pub.topics[0])
	got, err := validator.Decode(pub.payloads[0])
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "2025-11-12T06:00:00Z", got.Timestamp)
}

func TestNext_staysInRange(t *testing.T) {
	sim := New(&recordingPublisher{}, Options{Seed: 42, Now: fixedNow}, logging.Discard())
	for i := 0; i < 5000; i++ {
		r := sim.Next()
		require.GreaterOrEqual(t, r.Temperature, 18.0)
		require.LessOrEqual(t, r.Temperature, 40.0)
		require.GreaterOrEqual(t, r.Humidity, 30.0)
		require.LessOrEqual(t, r.Humidity, 95.0)
		require.GreaterOrEqual(t, r.Illuminance, 0.0)
		require.LessOrEqual(t, r.Illuminance, 2000.0)
	}
}

func TestNext_reproducibleWithSeed(t *testing.T) {
	a := New(&recordingPublisher{}, Options{Seed: 7, Now: fixedNow}, logging.Discard())
	b := New(&recordingPublisher{}, Options{Seed: 7, Now: fixedNow}, logging.Discard())
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestRun_keepsPublishingAfterFailures(t *testing.T) {
	pub := &recordingPublisher{failures: 2}
	sim := New(pub, Options{Topic: "t", Interval: 5 * time.Millisecond, Seed: 3, Now: fixedNow}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()

	require.Eventually(t, func() bool { return pub.count() >= 3 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	var body map[string]any
	require.NoError(t, json.Unmarshal(pub.payloads[0], &body))
	assert.Contains(t, body, "suhu")
}

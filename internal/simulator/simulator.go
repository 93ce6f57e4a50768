// Package simulator publishes synthetic readings the way a field device does,
// for exercising the gateway without hardware.
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/types"
)

// Publisher is satisfied by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

type Options struct {
	Topic    string
	Interval time.Duration
	// Seed makes the generated series reproducible.
	Seed uint64
	Now  func() time.Time
}

type Simulator struct {
	publisher Publisher
	opts      Options
	rng       *rand.Rand
	logger    *slog.Logger

	last     types.Reading
	sequence int
}

func New(publisher Publisher, opts Options, logger *slog.Logger) *Simulator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Simulator{
		publisher: publisher,
		opts:      opts,
		rng:       rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		logger:    logger,
		last:      types.Reading{Temperature: 27, Humidity: 65, Illuminance: 300},
	}
}

// Next advances a bounded random walk and stamps it with the current time.
func (s *Simulator) Next() types.Reading {
	s.last.Temperature = walk(s.rng, s.last.Temperature, 0.3, 18, 40)
	s.last.Humidity = walk(s.rng, s.last.Humidity, 1.0, 30, 95)
	s.last.Illuminance = walk(s.rng, s.last.Illuminance, 25, 0, 2000)
	s.last.Timestamp = s.opts.Now().UTC().Format(time.RFC3339)
	return s.last
}

func walk(rng *rand.Rand, v, step, lo, hi float64) float64 {
	v += (rng.Float64()*2 - 1) * step
	v = math.Max(lo, math.Min(hi, v))
	return math.Round(v*10) / 10
}

// PublishOnce sends one reading and returns it.
func (s *Simulator) PublishOnce() (types.Reading, error) {
	r := s.Next()
	payload, err := json.Marshal(r)
	if err != nil {
		return r, fmt.Errorf("marshal reading: %w", err)
	}
	if err := s.publisher.Publish(s.opts.Topic, payload); err != nil {
		return r, err
	}
	s.sequence++
	return r, nil
}

// Run publishes every Interval until ctx is done. Publish failures are
// logged and the next tick tries again.
func (s *Simulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r, err := s.PublishOnce()
			if err != nil {
				s.logger.Warn("publish reading failed", "topic", s.opts.Topic, "error", err)
				continue
			}
			s.logger.Debug("published reading",
				"topic", s.opts.Topic,
				"sequence", s.sequence,
				"suhu", r.Temperature,
				"humidity", r.Humidity,
				"lux", r.Illuminance,
			)
		}
	}
}

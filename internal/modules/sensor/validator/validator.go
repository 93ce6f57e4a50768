// Package validator turns untyped inbound payloads into Readings.
//
// Both ingestion transports and the HTTP insert endpoint go through here, so a
// Reading that exists anywhere in the system has all four fields present and
// finite numeric values.
package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/types"
)

// Wire keys of a reading payload.
const (
	FieldTemperature = "suhu"
	FieldHumidity    = "humidity"
	FieldIlluminance = "lux"
	FieldTimestamp   = "timestamp"
)

var (
	ErrMissingField     = errors.New("missing field")
	ErrInvalidType      = errors.New("invalid type")
	ErrMalformedPayload = errors.New("malformed payload")
)

// ValidationError reports the first offending field. It unwraps to
// ErrMissingField or ErrInvalidType.
type ValidationError struct {
	Field string
	Kind  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %q", e.Kind, e.Field)
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// Decode parses a JSON object and validates it. Anything that is not a single
// JSON object yields an error wrapping ErrMalformedPayload.
func Decode(payload []byte) (types.Reading, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return types.Reading{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if raw == nil {
		return types.Reading{}, fmt.Errorf("%w: not a JSON object", ErrMalformedPayload)
	}
	if _, err := dec.Token(); err != io.EOF {
		return types.Reading{}, fmt.Errorf("%w: trailing data after object", ErrMalformedPayload)
	}
	return Validate(raw)
}

// Validate builds a Reading from an already-parsed payload. It has no side
// effects; JSON null counts as missing.
func Validate(raw map[string]any) (types.Reading, error) {
	temperature, err := number(raw, FieldTemperature)
	if err != nil {
		return types.Reading{}, err
	}
	humidity, err := number(raw, FieldHumidity)
	if err != nil {
		return types.Reading{}, err
	}
	illuminance, err := number(raw, FieldIlluminance)
	if err != nil {
		return types.Reading{}, err
	}
	timestamp, err := timestamp(raw)
	if err != nil {
		return types.Reading{}, err
	}

	return types.Reading{
		Temperature: temperature,
		Humidity:    humidity,
		Illuminance: illuminance,
		Timestamp:   timestamp,
	}, nil
}

func number(raw map[string]any, field string) (float64, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return 0, &ValidationError{Field: field, Kind: ErrMissingField}
	}

	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, &ValidationError{Field: field, Kind: ErrInvalidType}
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, &ValidationError{Field: field, Kind: ErrInvalidType}
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ValidationError{Field: field, Kind: ErrInvalidType}
	}
	return f, nil
}

// timestamp accepts a non-blank string, or a JSON number which is kept in its
// literal form (devices without a clock send uptime counters).
func timestamp(raw map[string]any) (string, error) {
	v, ok := raw[FieldTimestamp]
	if !ok || v == nil {
		return "", &ValidationError{Field: FieldTimestamp, Kind: ErrMissingField}
	}

	switch ts := v.(type) {
	case string:
		if strings.TrimSpace(ts) == "" {
			return "", &ValidationError{Field: FieldTimestamp, Kind: ErrMissingField}
		}
		return ts, nil
	case json.Number:
		return ts.String(), nil
	case float64:
		if math.IsNaN(ts) || math.IsInf(ts, 0) {
			return "", &ValidationError{Field: FieldTimestamp, Kind: ErrInvalidType}
		}
		return strconv.FormatFloat(ts, 'f', -1, 64), nil
	default:
		return "", &ValidationError{Field: FieldTimestamp, Kind: ErrInvalidType}
	}
}

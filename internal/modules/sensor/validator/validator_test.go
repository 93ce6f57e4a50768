package validator

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/types"
)

func TestDecode_valid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    types.Reading
	}{
		{
			name:    "typical device payload",
			payload: `{"suhu":25.3,"humidity":60.5,"lux":120,"timestamp":"2025-11-12T06:00:00Z"}`,
			want:    types.Reading{Temperature: 25.3, Humidity: 60.5, Illuminance: 120, Timestamp: "2025-11-12T06:00:00Z"},
		},
		{
			name:    "extra fields ignored, trailing newline ok",
			payload: "{\"suhu\":-4,\"humidity\":0,\"lux\":0,\"timestamp\":\"t1\",\"rssi\":-70}\n",
			want:    types.Reading{Temperature: -4, Humidity: 0, Illuminance: 0, Timestamp: "t1"},
		},
		{
			name:    "numeric timestamp kept literally",
			payload: `{"suhu":1.5,"humidity":2,"lux":3,"timestamp":1731391200000}`,
			want:    types.Reading{Temperature: 1.5, Humidity: 2, Illuminance: 3, Timestamp: "1731391200000"},
		},
		{
			name:    "timestamp not parsed or normalized",
			payload: `{"suhu":1,"humidity":2,"lux":3,"timestamp":"12/11/2025 06:00"}`,
			want:    types.Reading{Temperature: 1, Humidity: 2, Illuminance: 3, Timestamp: "12/11/2025 06:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Decode() error = %v; want nil", err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %+v; want %+v", got, tt.want)
			}
		})
	}
}

func TestDecode_missingFields(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{name: "no suhu", payload: `{"humidity":1,"lux":1,"timestamp":"t"}`, field: FieldTemperature},
		{name: "no humidity", payload: `{"suhu":1,"lux":1,"timestamp":"t"}`, field: FieldHumidity},
		{name: "no lux", payload: `{"suhu":1,"humidity":1,"timestamp":"t"}`, field: FieldIlluminance},
		{name: "no timestamp", payload: `{"suhu":1,"humidity":1,"lux":1}`, field: FieldTimestamp},
		{name: "null lux", payload: `{"suhu":1,"humidity":1,"lux":null,"timestamp":"t"}`, field: FieldIlluminance},
		{name: "empty timestamp", payload: `{"suhu":1,"humidity":1,"lux":1,"timestamp":""}`, field: FieldTimestamp},
		{name: "blank timestamp", payload: `{"suhu":1,"humidity":1,"lux":1,"timestamp":"   "}`, field: FieldTimestamp},
		{name: "empty object", payload: `{}`, field: FieldTemperature},
		{name: "temperature under canonical name only", payload: `{"temperature":1,"humidity":1,"lux":1,"timestamp":"t"}`, field: FieldTemperature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload))
			if !errors.Is(err, ErrMissingField) {
				t.Fatalf("Decode() error = %v; want ErrMissingField", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("ValidationError field = %v; want %q", verr, tt.field)
			}
		})
	}
}

func TestDecode_invalidTypes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{name: "string suhu", payload: `{"suhu":"25.3","humidity":1,"lux":1,"timestamp":"t"}`, field: FieldTemperature},
		{name: "bool humidity", payload: `{"suhu":1,"humidity":true,"lux":1,"timestamp":"t"}`, field: FieldHumidity},
		{name: "object lux", payload: `{"suhu":1,"humidity":1,"lux":{"v":1},"timestamp":"t"}`, field: FieldIlluminance},
		{name: "array timestamp", payload: `{"suhu":1,"humidity":1,"lux":1,"timestamp":["t"]}`, field: FieldTimestamp},
		{name: "overflowing number", payload: `{"suhu":1e400,"humidity":1,"lux":1,"timestamp":"t"}`, field: FieldTemperature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload))
			if !errors.Is(err, ErrInvalidType) {
				t.Fatalf("Decode() error = %v; want ErrInvalidType", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("ValidationError field = %v; want %q", verr, tt.field)
			}
		})
	}
}

func TestDecode_malformed(t *testing.T) {
	payloads := []string{
		``,
		`not json`,
		`{"suhu":1,`,
		`null`,
		`[1,2,3]`,
		`"reading"`,
		`{"suhu":1,"humidity":1,"lux":1,"timestamp":"t"} {"suhu":2}`,
		`{"suhu":1,"humidity":1,"lux":1,"timestamp":"t"}}`,
	}

	for _, p := range payloads {
		t.Run(p, func(t *testing.T) {
			_, err := Decode([]byte(p))
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("Decode(%q) error = %v; want ErrMalformedPayload", p, err)
			}
		})
	}
}

func TestValidate_nonFinite(t *testing.T) {
	base := func() map[string]any {
		return map[string]any{"suhu": 1.0, "humidity": 2.0, "lux": 3.0, "timestamp": "t"}
	}

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		raw := base()
		raw[FieldHumidity] = v
		if _, err := Validate(raw); !errors.Is(err, ErrInvalidType) {
			t.Errorf("Validate(humidity=%v) error = %v; want ErrInvalidType", v, err)
		}
	}

	raw := base()
	raw[FieldTimestamp] = math.NaN()
	if _, err := Validate(raw); !errors.Is(err, ErrInvalidType) {
		t.Errorf("Validate(timestamp=NaN) error = %v; want ErrInvalidType", err)
	}
}

func TestValidate_goTypes(t *testing.T) {
	raw := map[string]any{
		"suhu":      float32(21.5),
		"humidity":  int(40),
		"lux":       int64(900),
		"timestamp": float64(1700000000),
	}
	got, err := Validate(raw)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	want := types.Reading{Temperature: 21.5, Humidity: 40, Illuminance: 900, Timestamp: "1700000000"}
	if got != want {
		t.Errorf("Validate() = %+v; want %+v", got, want)
	}
}

func TestValidate_doesNotMutateInput(t *testing.T) {
	raw := map[string]any{"suhu": json.Number("1"), "humidity": json.Number("2")}
	_, _ = Validate(raw)
	if len(raw) != 2 {
		t.Errorf("input map modified: %v", raw)
	}
}

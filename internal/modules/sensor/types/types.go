package types

// Reading is one sensor observation. Timestamp is kept exactly as the device
// sent it; ordering by it is a plain string comparison.
type Reading struct {
	Temperature float64 `json:"suhu"`
	Humidity    float64 `json:"humidity"`
	Illuminance float64 `json:"lux"`
	Timestamp   string  `json:"timestamp"`
}

// StoredReading is a Reading with the identifier assigned at insert time.
type StoredReading struct {
	ID int64 `json:"id"`
	Reading
}

// LiveReading is pushed to live viewers. ID is zero (and omitted) when the
// reading was not persisted before the push.
type LiveReading struct {
	ID int64 `json:"id,omitempty"`
	Reading
}

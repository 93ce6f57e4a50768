package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/types"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/list-readings.sql
var listReadingsSQL string

//go:embed sql/get-latest-reading.sql
var getLatestReadingSQL string

// StoreError wraps any persistence failure. A failed insert leaves no row behind.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// SensorRepository is the append-only reading store. Implementations must be
// safe for concurrent use; identifiers increase strictly across inserts.
type SensorRepository interface {
	InsertReading(ctx context.Context, r types.Reading) (types.StoredReading, error)
	ListReadings(ctx context.Context) ([]types.StoredReading, error)
	// GetLatestReading returns ok=false on an empty store.
	GetLatestReading(ctx context.Context) (types.StoredReading, bool, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) SensorRepository {
	return &repositoryImpl{db: db}
}

// InsertReading relies on AUTOINCREMENT for ids: SQLite serializes writers,
// so concurrent inserts never share or reuse an id.
func (r *repositoryImpl) InsertReading(ctx context.Context, reading types.Reading) (types.StoredReading, error) {
	res, err := r.db.ExecContext(ctx, insertReadingSQL,
		reading.Temperature,
		reading.Humidity,
		reading.Illuminance,
		reading.Timestamp,
	)
	if err != nil {
		return types.StoredReading{}, &StoreError{Op: "insert", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.StoredReading{}, &StoreError{Op: "insert", Err: err}
	}
	return types.StoredReading{ID: id, Reading: reading}, nil
}

func (r *repositoryImpl) ListReadings(ctx context.Context) ([]types.StoredReading, error) {
	rows, err := r.db.QueryContext(ctx, listReadingsSQL)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()

	out := make([]types.StoredReading, 0)
	for rows.Next() {
		rec, err := scanReading(rows)
		if err != nil {
			return nil, &StoreError{Op: "list", Err: err}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	return out, nil
}

func (r *repositoryImpl) GetLatestReading(ctx context.Context) (types.StoredReading, bool, error) {
	rec, err := scanReading(r.db.QueryRowContext(ctx, getLatestReadingSQL))
	if errors.Is(err, sql.ErrNoRows) {
		return types.StoredReading{}, false, nil
	}
	if err != nil {
		return types.StoredReading{}, false, &StoreError{Op: "latest", Err: err}
	}
	return rec, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReading(s scanner) (types.StoredReading, error) {
	var rec types.StoredReading
	err := s.Scan(
		&rec.ID,
		&rec.Temperature,
		&rec.Humidity,
		&rec.Illuminance,
		&rec.Timestamp,
	)
	return rec, err
}

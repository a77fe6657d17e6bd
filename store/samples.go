// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// VehicleSample is one vehicle's state inside a periodic fleet
// snapshot. Snapshots are CBOR-encoded and zstd-compressed before
// landing in the vehicle_samples BLOB column, so a year of minutely
// samples stays cheap.
type VehicleSample struct {
	URI            string `cbor:"uri"`
	Kind           int    `cbor:"kind"`
	Capacity       int    `cbor:"capacity"`
	AvailableSeats int    `cbor:"available_seats"`
	Route          string `cbor:"route"`
	Active         bool   `cbor:"active"`
}

// RecordVehicleSample snapshots the whole fleet into one
// vehicle_samples row and returns the number of vehicles captured.
// An empty fleet still records a row, so gaps in the series mean the
// sampler was down rather than the fleet was empty.
func (s *Store) RecordVehicleSample(ctx context.Context) (int, error) {
	vehicles, err := s.AllVehicles(ctx)
	if err != nil {
		return 0, err
	}

	samples := make([]VehicleSample, len(vehicles))
	for i, vehicle := range vehicles {
		samples[i] = VehicleSample{
			URI:            vehicle.URI,
			Kind:           int(vehicle.Kind),
			Capacity:       vehicle.Capacity,
			AvailableSeats: vehicle.AvailableSeats,
			Route:          vehicle.Route,
			Active:         vehicle.Active,
		}
	}

	raw, err := cbor.Marshal(samples)
	if err != nil {
		return 0, fmt.Errorf("store: encode sample: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return 0, fmt.Errorf("store: zstd encoder: %w", err)
	}
	blob := encoder.EncodeAll(raw, nil)
	encoder.Close()

	err = s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			"INSERT INTO vehicle_samples (taken_at, vehicle_count, snapshot) VALUES (?, ?, ?)",
			&sqlitex.ExecOptions{Args: []any{formatTime(s.now()), len(samples), blob}})
		if err != nil {
			return fmt.Errorf("store: insert sample: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(samples), nil
}

// LatestVehicleSample returns the newest fleet snapshot and when it
// was taken. Returns (nil, zero, nil) when no sample exists yet.
func (s *Store) LatestVehicleSample(ctx context.Context) ([]VehicleSample, time.Time, error) {
	var blob []byte
	var takenAt time.Time
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"SELECT taken_at, snapshot FROM vehicle_samples ORDER BY sample_id DESC LIMIT 1",
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					takenAt = parseTime(stmt.ColumnText(0))
					blob = make([]byte, stmt.ColumnLen(1))
					stmt.ColumnBytes(1, blob)
					return nil
				},
			})
	})
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("store: latest sample: %w", err)
	}
	if blob == nil {
		return nil, time.Time{}, nil
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("store: zstd decoder: %w", err)
	}
	defer decoder.Close()
	raw, err := decoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("store: decompress sample: %w", err)
	}

	var samples []VehicleSample
	if err := cbor.Unmarshal(raw, &samples); err != nil {
		return nil, time.Time{}, fmt.Errorf("store: decode sample: %w", err)
	}
	return samples, takenAt, nil
}

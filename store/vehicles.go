// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/metrolink-dev/metrolink/schema"
)

// RegisterVehicle inserts a new vehicle. Returns ErrVehicleExists when
// the URI is taken.
func (s *Store) RegisterVehicle(ctx context.Context, vehicle schema.Vehicle) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`INSERT INTO vehicles (uri, type, capacity, available_seats, route, active, last_update)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{
					vehicle.URI,
					int(vehicle.Kind),
					vehicle.Capacity,
					vehicle.AvailableSeats,
					vehicle.Route,
					boolInt(vehicle.Active),
					formatTime(vehicle.LastUpdate),
				},
			})
		if err != nil {
			if isConstraint(err) {
				return ErrVehicleExists
			}
			return fmt.Errorf("store: register vehicle %s: %w", vehicle.URI, err)
		}
		return nil
	})
}

// Vehicle returns the vehicle with the given URI, or
// ErrVehicleNotFound.
func (s *Store) Vehicle(ctx context.Context, uri string) (*schema.Vehicle, error) {
	var vehicle *schema.Vehicle
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		v, err := vehicleByURI(conn, uri)
		vehicle = v
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: get vehicle %s: %w", uri, err)
	}
	if vehicle == nil {
		return nil, ErrVehicleNotFound
	}
	return vehicle, nil
}

// VehicleByRouteAndKind returns the first vehicle serving route with
// the given kind, or ErrVehicleNotFound.
func (s *Store) VehicleByRouteAndKind(ctx context.Context, route string, kind schema.VehicleKind) (*schema.Vehicle, error) {
	var vehicle *schema.Vehicle
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		v, err := vehicleByRouteAndKind(conn, route, kind)
		vehicle = v
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: vehicle by route %s/%v: %w", route, kind, err)
	}
	if vehicle == nil {
		return nil, ErrVehicleNotFound
	}
	return vehicle, nil
}

// ResolveVehicle finds the vehicle a request names: by URI when given,
// else by route and requested kind, else by route under the other
// kinds in fallback order (Bus, Tram, Trolleybus). Returns
// ErrVehicleNotFound when nothing matches.
func (s *Store) ResolveVehicle(ctx context.Context, uri, route string, kind schema.VehicleKind) (*schema.Vehicle, error) {
	var vehicle *schema.Vehicle
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		v, err := resolveVehicle(conn, uri, route, kind)
		vehicle = v
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: resolve vehicle (uri=%q route=%q kind=%v): %w", uri, route, kind, err)
	}
	if vehicle == nil {
		return nil, ErrVehicleNotFound
	}
	return vehicle, nil
}

// ReserveSeats reserves n seats on the vehicle with the given URI:
// read, check, and decrement inside one IMMEDIATE transaction, retried
// under contention. Returns the remaining seat count. Fails with
// ErrVehicleNotFound or ErrNoSeats.
func (s *Store) ReserveSeats(ctx context.Context, uri string, n int) (int, error) {
	remaining := 0
	err := s.withTx(ctx, func(conn *sqlite.Conn) error {
		vehicle, err := vehicleByURI(conn, uri)
		if err != nil {
			return fmt.Errorf("store: reserve: read vehicle: %w", err)
		}
		if vehicle == nil {
			return ErrVehicleNotFound
		}
		if vehicle.AvailableSeats < n {
			return ErrNoSeats
		}
		remaining = vehicle.AvailableSeats - n
		err = sqlitex.Execute(conn,
			"UPDATE vehicles SET available_seats = ?, last_update = ? WHERE uri = ?",
			&sqlitex.ExecOptions{Args: []any{remaining, formatTime(s.now()), uri}})
		if err != nil {
			return fmt.Errorf("store: reserve: update seats: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// VehicleUpdate carries the optional fields of UpdateVehicle. Nil
// pointers leave the column untouched.
type VehicleUpdate struct {
	Active *bool
	Route  *string
	Kind   *schema.VehicleKind
}

// UpdateVehicle changes a vehicle's active flag, route, or kind.
// At least one field must be set (ErrNothingToUpdate); an unknown URI
// fails with ErrVehicleNotFound.
func (s *Store) UpdateVehicle(ctx context.Context, uri string, update VehicleUpdate) error {
	if update.Active == nil && update.Route == nil && update.Kind == nil {
		return ErrNothingToUpdate
	}
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		query := "UPDATE vehicles SET "
		var args []any
		if update.Active != nil {
			query += "active = ?, "
			args = append(args, boolInt(*update.Active))
		}
		if update.Route != nil {
			query += "route = ?, "
			args = append(args, *update.Route)
		}
		if update.Kind != nil {
			query += "type = ?, "
			args = append(args, int(*update.Kind))
		}
		query += "last_update = ? WHERE uri = ?"
		args = append(args, formatTime(s.now()), uri)

		if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
			return fmt.Errorf("store: update vehicle %s: %w", uri, err)
		}
		if conn.Changes() == 0 {
			return ErrVehicleNotFound
		}
		return nil
	})
}

// UpdateCapacity sets a vehicle's capacity and available seats after
// validating 0 <= available <= capacity.
func (s *Store) UpdateCapacity(ctx context.Context, uri string, capacity, available int) error {
	if capacity < 0 || available < 0 || available > capacity {
		return ErrInvalidCapacity
	}
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			"UPDATE vehicles SET capacity = ?, available_seats = ?, last_update = ? WHERE uri = ?",
			&sqlitex.ExecOptions{Args: []any{capacity, available, formatTime(s.now()), uri}})
		if err != nil {
			return fmt.Errorf("store: update capacity %s: %w", uri, err)
		}
		if conn.Changes() == 0 {
			return ErrVehicleNotFound
		}
		return nil
	})
}

// AllVehicles returns every vehicle, ordered by URI.
func (s *Store) AllVehicles(ctx context.Context) ([]schema.Vehicle, error) {
	var vehicles []schema.Vehicle
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT uri, type, capacity, available_seats, route, active, last_update
			 FROM vehicles ORDER BY uri`,
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					vehicles = append(vehicles, *scanVehicle(stmt))
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("store: all vehicles: %w", err)
	}
	return vehicles, nil
}

// vehicleByURI reads one vehicle row on an already-held connection.
// Returns (nil, nil) when absent so transactional callers can map the
// miss themselves.
func vehicleByURI(conn *sqlite.Conn, uri string) (*schema.Vehicle, error) {
	var vehicle *schema.Vehicle
	err := sqlitex.Execute(conn,
		`SELECT uri, type, capacity, available_seats, route, active, last_update
		 FROM vehicles WHERE uri = ? LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{uri},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				vehicle = scanVehicle(stmt)
				return nil
			},
		})
	return vehicle, err
}

// vehicleByRouteAndKind reads the first vehicle on a route with the
// given kind. Returns (nil, nil) when absent.
func vehicleByRouteAndKind(conn *sqlite.Conn, route string, kind schema.VehicleKind) (*schema.Vehicle, error) {
	var vehicle *schema.Vehicle
	err := sqlitex.Execute(conn,
		`SELECT uri, type, capacity, available_seats, route, active, last_update
		 FROM vehicles WHERE route = ? AND type = ? LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{route, int(kind)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				vehicle = scanVehicle(stmt)
				return nil
			},
		})
	return vehicle, err
}

// resolveVehicle implements the URI-then-route-then-fallback lookup on
// an already-held connection. Returns (nil, nil) when nothing matches.
func resolveVehicle(conn *sqlite.Conn, uri, route string, kind schema.VehicleKind) (*schema.Vehicle, error) {
	if uri != "" {
		vehicle, err := vehicleByURI(conn, uri)
		if vehicle != nil || err != nil {
			return vehicle, err
		}
	}
	if route == "" {
		return nil, nil
	}
	vehicle, err := vehicleByRouteAndKind(conn, route, kind)
	if vehicle != nil || err != nil {
		return vehicle, err
	}
	for _, fallback := range schema.VehicleKinds {
		if fallback == kind {
			continue
		}
		vehicle, err = vehicleByRouteAndKind(conn, route, fallback)
		if vehicle != nil || err != nil {
			return vehicle, err
		}
	}
	return nil, nil
}

// scanVehicle reads a vehicle row in the canonical column order.
func scanVehicle(stmt *sqlite.Stmt) *schema.Vehicle {
	return &schema.Vehicle{
		URI:            stmt.ColumnText(0),
		Kind:           schema.VehicleKind(stmt.ColumnInt(1)),
		Capacity:       stmt.ColumnInt(2),
		AvailableSeats: stmt.ColumnInt(3),
		Route:          stmt.ColumnText(4),
		Active:         stmt.ColumnInt(5) != 0,
		LastUpdate:     parseTime(stmt.ColumnText(6)),
	}
}

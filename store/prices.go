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

// defaultUnitPrice applies when no price_list row covers the
// (vehicle kind, ticket kind) pair.
const defaultUnitPrice = 1.0

// groupDiscountThreshold is the seat count at which the group discount
// kicks in.
const groupDiscountThreshold = 3

// discountRate is the single discount step.
const discountRate = 0.10

// DiscountRate returns the discount for a purchase: 10% for Family
// tickets or for three and more seats, otherwise none.
func DiscountRate(kind schema.TicketKind, seats int) float64 {
	if kind == schema.TicketFamily || seats >= groupDiscountThreshold {
		return discountRate
	}
	return 0
}

// UpdatePrice sets the base price for a (vehicle kind, ticket kind)
// pair: UPDATE first, and when no row matched, INSERT with default
// multipliers of 1.0.
func (s *Store) UpdatePrice(ctx context.Context, vehicleKind schema.VehicleKind, ticketKind schema.TicketKind, price float64) error {
	return s.withTx(ctx, func(conn *sqlite.Conn) error {
		now := formatTime(s.now())
		err := sqlitex.Execute(conn,
			"UPDATE price_list SET base_price = ?, last_update = ? WHERE vehicle_type = ? AND ticket_type = ?",
			&sqlitex.ExecOptions{Args: []any{price, now, int(vehicleKind), int(ticketKind)}})
		if err != nil {
			return fmt.Errorf("store: update price: %w", err)
		}
		if conn.Changes() > 0 {
			return nil
		}
		err = sqlitex.Execute(conn,
			`INSERT INTO price_list (vehicle_type, ticket_type, base_price, distance_multiplier, time_multiplier, last_update)
			 VALUES (?, ?, ?, 1.0, 1.0, ?)`,
			&sqlitex.ExecOptions{Args: []any{int(vehicleKind), int(ticketKind), price, now}})
		if err != nil {
			return fmt.Errorf("store: insert price: %w", err)
		}
		return nil
	})
}

// Price returns the price entry for a (vehicle kind, ticket kind)
// pair, or ErrPriceNotFound.
func (s *Store) Price(ctx context.Context, vehicleKind schema.VehicleKind, ticketKind schema.TicketKind) (*schema.PriceEntry, error) {
	var entry *schema.PriceEntry
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		e, err := priceEntry(conn, vehicleKind, ticketKind)
		entry = e
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: get price %v/%v: %w", vehicleKind, ticketKind, err)
	}
	if entry == nil {
		return nil, ErrPriceNotFound
	}
	return entry, nil
}

// UnitPrice returns the per-seat price for a (vehicle kind, ticket
// kind) pair: the table's base price when a row exists, else the 1.0
// default.
func (s *Store) UnitPrice(ctx context.Context, vehicleKind schema.VehicleKind, ticketKind schema.TicketKind) (float64, error) {
	entry, err := s.Price(ctx, vehicleKind, ticketKind)
	if err == ErrPriceNotFound {
		return defaultUnitPrice, nil
	}
	if err != nil {
		return 0, err
	}
	return entry.BasePrice, nil
}

// priceEntry reads one price row on an already-held connection.
// Returns (nil, nil) when absent.
func priceEntry(conn *sqlite.Conn, vehicleKind schema.VehicleKind, ticketKind schema.TicketKind) (*schema.PriceEntry, error) {
	var entry *schema.PriceEntry
	err := sqlitex.Execute(conn,
		`SELECT vehicle_type, ticket_type, base_price, distance_multiplier, time_multiplier, last_update
		 FROM price_list WHERE vehicle_type = ? AND ticket_type = ? LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{int(vehicleKind), int(ticketKind)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entry = &schema.PriceEntry{
					VehicleKind:        schema.VehicleKind(stmt.ColumnInt(0)),
					TicketKind:         schema.TicketKind(stmt.ColumnInt(1)),
					BasePrice:          stmt.ColumnFloat(2),
					DistanceMultiplier: stmt.ColumnFloat(3),
					TimeMultiplier:     stmt.ColumnFloat(4),
					LastUpdate:         parseTime(stmt.ColumnText(5)),
				}
				return nil
			},
		})
	return entry, err
}

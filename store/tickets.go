// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/metrolink-dev/metrolink/schema"
)

// PurchaseRequest names the seats a rider wants to buy. Either URI or
// Route must be set; Passengers must be at least 1.
type PurchaseRequest struct {
	URN         string
	TicketKind  schema.TicketKind
	VehicleKind schema.VehicleKind
	Route       string
	URI         string
	Passengers  int
	Method      string
}

// PurchaseResult reports a committed purchase.
type PurchaseResult struct {
	TicketIDs     []string
	TransactionID string
	Vehicle       schema.Vehicle
	UnitPrice     float64
	Discount      float64
	Total         float64
	NewAvailable  int
}

// PurchaseTickets executes the full purchase in one IMMEDIATE
// transaction, retried under contention: resolve the vehicle, check
// seats, insert one ticket row per passenger with consecutive seat
// numbers, insert the payment row referencing the first ticket, and
// decrement the seat count. Any failure rolls the whole purchase back.
func (s *Store) PurchaseTickets(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	if req.Passengers < 1 {
		req.Passengers = 1
	}
	method := req.Method
	if method == "" {
		method = "card"
	}

	var result *PurchaseResult
	err := s.withTx(ctx, func(conn *sqlite.Conn) error {
		vehicle, err := resolveVehicle(conn, req.URI, req.Route, req.VehicleKind)
		if err != nil {
			return fmt.Errorf("store: purchase: resolve vehicle: %w", err)
		}
		if vehicle == nil {
			return ErrVehicleNotFound
		}
		if vehicle.AvailableSeats < req.Passengers {
			return ErrNoSeats
		}

		entry, err := priceEntry(conn, vehicle.Kind, req.TicketKind)
		if err != nil {
			return fmt.Errorf("store: purchase: read price: %w", err)
		}
		unitPrice := defaultUnitPrice
		if entry != nil {
			unitPrice = entry.BasePrice
		}
		discount := DiscountRate(req.TicketKind, req.Passengers)
		total := unitPrice * float64(req.Passengers) * (1 - discount)

		now := s.now()
		when := formatTime(now)
		ticketIDs := make([]string, 0, req.Passengers)

		for i := 0; i < req.Passengers; i++ {
			ticketID := s.nextTicketID(now.Unix())
			seat := vehicle.Capacity - vehicle.AvailableSeats + i + 1
			err = sqlitex.Execute(conn,
				`INSERT INTO tickets (ticket_id, user_urn, type, vehicle_type, route, price, discount, purchase_date, seat_number, used)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
				&sqlitex.ExecOptions{
					Args: []any{
						ticketID,
						req.URN,
						int(req.TicketKind),
						int(vehicle.Kind),
						vehicle.Route,
						unitPrice,
						discount,
						when,
						strconv.Itoa(seat),
					},
				})
			if err != nil {
				return fmt.Errorf("store: purchase: insert ticket: %w", err)
			}
			ticketIDs = append(ticketIDs, ticketID)
		}

		transactionID := uuid.NewString()
		err = sqlitex.Execute(conn,
			`INSERT INTO payments (transaction_id, ticket_id, amount, payment_method, payment_date, successful)
			 VALUES (?, ?, ?, ?, ?, 1)`,
			&sqlitex.ExecOptions{Args: []any{transactionID, ticketIDs[0], total, method, when}})
		if err != nil {
			return fmt.Errorf("store: purchase: insert payment: %w", err)
		}

		newAvailable := vehicle.AvailableSeats - req.Passengers
		err = sqlitex.Execute(conn,
			"UPDATE vehicles SET available_seats = ?, last_update = ? WHERE uri = ?",
			&sqlitex.ExecOptions{Args: []any{newAvailable, when, vehicle.URI}})
		if err != nil {
			return fmt.Errorf("store: purchase: update seats: %w", err)
		}

		result = &PurchaseResult{
			TicketIDs:     ticketIDs,
			TransactionID: transactionID,
			Vehicle:       *vehicle,
			UnitPrice:     unitPrice,
			Discount:      discount,
			Total:         total,
			NewAvailable:  newAvailable,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// nextTicketID mints a ticket id from the process-local counter and
// the purchase time.
func (s *Store) nextTicketID(unix int64) string {
	return fmt.Sprintf("TKT_%d_%d", s.ticketCounter.Add(1), unix)
}

// Ticket returns one ticket row by id.
func (s *Store) Ticket(ctx context.Context, ticketID string) (*schema.Ticket, error) {
	var ticket *schema.Ticket
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT ticket_id, user_urn, type, vehicle_type, route, price, discount, purchase_date, seat_number, used
			 FROM tickets WHERE ticket_id = ? LIMIT 1`,
			&sqlitex.ExecOptions{
				Args: []any{ticketID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					ticket = scanTicket(stmt)
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("store: get ticket %s: %w", ticketID, err)
	}
	if ticket == nil {
		return nil, fmt.Errorf("store: get ticket %s: not found", ticketID)
	}
	return ticket, nil
}

// TicketsByUser returns every ticket a rider owns, newest first.
func (s *Store) TicketsByUser(ctx context.Context, urn string) ([]schema.Ticket, error) {
	var tickets []schema.Ticket
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT ticket_id, user_urn, type, vehicle_type, route, price, discount, purchase_date, seat_number, used
			 FROM tickets WHERE user_urn = ? ORDER BY purchase_date DESC, ticket_id DESC`,
			&sqlitex.ExecOptions{
				Args: []any{urn},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					tickets = append(tickets, *scanTicket(stmt))
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("store: tickets by user %s: %w", urn, err)
	}
	return tickets, nil
}

// Payment returns one payment row by transaction id.
func (s *Store) Payment(ctx context.Context, transactionID string) (*schema.Payment, error) {
	var payment *schema.Payment
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT transaction_id, ticket_id, amount, payment_method, payment_date, successful
			 FROM payments WHERE transaction_id = ? LIMIT 1`,
			&sqlitex.ExecOptions{
				Args: []any{transactionID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					payment = &schema.Payment{
						TransactionID: stmt.ColumnText(0),
						TicketID:      stmt.ColumnText(1),
						Amount:        stmt.ColumnFloat(2),
						Method:        stmt.ColumnText(3),
						Date:          parseTime(stmt.ColumnText(4)),
						Successful:    stmt.ColumnInt(5) != 0,
					}
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("store: get payment %s: %w", transactionID, err)
	}
	if payment == nil {
		return nil, fmt.Errorf("store: get payment %s: not found", transactionID)
	}
	return payment, nil
}

// scanTicket reads a ticket row in the canonical column order.
func scanTicket(stmt *sqlite.Stmt) *schema.Ticket {
	return &schema.Ticket{
		ID:           stmt.ColumnText(0),
		UserURN:      stmt.ColumnText(1),
		Kind:         schema.TicketKind(stmt.ColumnInt(2)),
		VehicleKind:  schema.VehicleKind(stmt.ColumnInt(3)),
		Route:        stmt.ColumnText(4),
		Price:        stmt.ColumnFloat(5),
		Discount:     stmt.ColumnFloat(6),
		PurchaseDate: parseTime(stmt.ColumnText(7)),
		SeatNumber:   stmt.ColumnText(8),
		Used:         stmt.ColumnInt(9) != 0,
	}
}

// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/metrolink-dev/metrolink/schema"
)

func TestPurchaseTicketsFullPath(t *testing.T) {
	s := openTestStore(t, nil)
	ctx := context.Background()
	registerTestUser(t, s, "1000000000001")
	registerTestVehicle(t, s, "bus://1", schema.VehicleBus, 10, "R1")

	result, err := s.PurchaseTickets(ctx, PurchaseRequest{
		URN:         "1000000000001",
		TicketKind:  schema.TicketIndividual,
		VehicleKind: schema.VehicleBus,
		Route:       "R1",
		Passengers:  2,
	})
	if err != nil {
		t.Fatalf("PurchaseTickets: %v", err)
	}

	if len(result.TicketIDs) != 2 {
		t.Fatalf("tickets = %d, want 2", len(result.TicketIDs))
	}
	if result.NewAvailable != 8 {
		t.Errorf("new available = %d, want 8", result.NewAvailable)
	}
	// Two individual seats, default unit price, no discount.
	if result.Total != 2.0 || result.Discount != 0 {
		t.Errorf("total/discount = %v/%v, want 2.0/0", result.Total, result.Discount)
	}

	// Seat numbers fill from the front: capacity 10, 10 available.
	first, err := s.Ticket(ctx, result.TicketIDs[0])
	if err != nil {
		t.Fatalf("Ticket: %v", err)
	}
	if first.SeatNumber != "1" {
		t.Errorf("first seat = %q, want %q", first.SeatNumber, "1")
	}
	second, err := s.Ticket(ctx, result.TicketIDs[1])
	if err != nil {
		t.Fatalf("Ticket: %v", err)
	}
	if second.SeatNumber != "2" {
		t.Errorf("second seat = %q, want %q", second.SeatNumber, "2")
	}

	// Payment row references the first ticket.
	payment, err := s.Payment(ctx, result.TransactionID)
	if err != nil {
		t.Fatalf("Payment: %v", err)
	}
	if payment.TicketID != result.TicketIDs[0] || !payment.Successful {
		t.Errorf("payment = %+v", payment)
	}
	if payment.Amount != result.Total {
		t.Errorf("payment amount = %v, want %v", payment.Amount, result.Total)
	}

	vehicle, _ := s.Vehicle(ctx, "bus://1")
	if vehicle.AvailableSeats != 8 {
		t.Errorf("vehicle available = %d, want 8", vehicle.AvailableSeats)
	}
}

func TestPurchaseSeatNumbersContinue(t *testing.T) {
	s := openTestStore(t, nil)
	ctx := context.Background()
	registerTestUser(t, s, "1000000000001")
	registerTestVehicle(t, s, "bus://2", schema.VehicleBus, 5, "R2")

	first, err := s.PurchaseTickets(ctx, PurchaseRequest{
		URN: "1000000000001", TicketKind: schema.TicketIndividual,
		VehicleKind: schema.VehicleBus, URI: "bus://2", Passengers: 2,
	})
	if err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	second, err := s.PurchaseTickets(ctx, PurchaseRequest{
		URN: "1000000000001", TicketKind: schema.TicketIndividual,
		VehicleKind: schema.VehicleBus, URI: "bus://2", Passengers: 1,
	})
	if err != nil {
		t.Fatalf("second purchase: %v", err)
	}
	_ = first

	ticket, err := s.Ticket(ctx, second.TicketIDs[0])
	if err != nil {
		t.Fatalf("Ticket: %v", err)
	}
	if ticket.SeatNumber != "3" {
		t.Errorf("seat = %q, want %q (capacity 5, 3 available, i=0)", ticket.SeatNumber, "3")
	}
}

func TestPurchaseDiscounts(t *testing.T) {
	s := openTestStore(t, nil)
	ctx := context.Background()
	registerTestUser(t, s, "1000000000001")
	registerTestVehicle(t, s, "bus://3", schema.VehicleBus, 50, "R3")

	// Family ticket: 10% regardless of count.
	family, err := s.PurchaseTickets(ctx, PurchaseRequest{
		URN: "1000000000001", TicketKind: schema.TicketFamily,
		VehicleKind: schema.VehicleBus, URI: "bus://3", Passengers: 2,
	})
	if err != nil {
		t.Fatalf("family purchase: %v", err)
	}
	if family.Discount != 0.10 {
		t.Errorf("family discount = %v, want 0.10", family.Discount)
	}
	if math.Abs(family.Total-2*1.0*0.9) > 1e-9 {
		t.Errorf("family total = %v, want 1.8", family.Total)
	}

	// Three individual seats: group discount.
	group, err := s.PurchaseTickets(ctx, PurchaseRequest{
		URN: "1000000000001", TicketKind: schema.TicketIndividual,
		VehicleKind: schema.VehicleBus, URI: "bus://3", Passengers: 3,
	})
	if err != nil {
		t.Fatalf("group purchase: %v", err)
	}
	if group.Discount != 0.10 {
		t.Errorf("group discount = %v, want 0.10", group.Discount)
	}
}

func TestPurchaseUsesPriceTable(t *testing.T) {
	s := openTestStore(t, nil)
	ctx := context.Background()
	registerTestUser(t, s, "1000000000001")
	registerTestVehicle(t, s, "tram://1", schema.VehicleTram, 50, "R1")

	if err := s.UpdatePrice(ctx, schema.VehicleTram, schema.TicketIndividual, 2.5); err != nil {
		t.Fatalf("UpdatePrice: %v", err)
	}

	result, err := s.PurchaseTickets(ctx, PurchaseRequest{
		URN: "1000000000001", TicketKind: schema.TicketIndividual,
		VehicleKind: schema.VehicleTram, URI: "tram://1", Passengers: 1,
	})
	if err != nil {
		t.Fatalf("PurchaseTickets: %v", err)
	}
	if result.UnitPrice != 2.5 || result.Total != 2.5 {
		t.Errorf("unit/total = %v/%v, want 2.5/2.5", result.UnitPrice, result.Total)
	}
}

func TestPurchaseFailures(t *testing.T) {
	s := openTestStore(t, nil)
	ctx := context.Background()
	registerTestUser(t, s, "1000000000001")
	registerTestVehicle(t, s, "bus://4", schema.VehicleBus, 2, "R4")

	_, err := s.PurchaseTickets(ctx, PurchaseRequest{
		URN: "1000000000001", TicketKind: schema.TicketIndividual,
		VehicleKind: schema.VehicleBus, Route: "R404", Passengers: 1,
	})
	if !errors.Is(err, ErrVehicleNotFound) {
		t.Errorf("missing vehicle err = %v, want ErrVehicleNotFound", err)
	}

	_, err = s.PurchaseTickets(ctx, PurchaseRequest{
		URN: "1000000000001", TicketKind: schema.TicketIndividual,
		VehicleKind: schema.VehicleBus, URI: "bus://4", Passengers: 5,
	})
	if !errors.Is(err, ErrNoSeats) {
		t.Errorf("insufficient seats err = %v, want ErrNoSeats", err)
	}

	// Failed purchases must not leak seat decrements or ticket rows.
	vehicle, _ := s.Vehicle(ctx, "bus://4")
	if vehicle.AvailableSeats != 2 {
		t.Errorf("available = %d after failed purchases, want 2", vehicle.AvailableSeats)
	}
	tickets, err := s.TicketsByUser(ctx, "1000000000001")
	if err != nil {
		t.Fatalf("TicketsByUser: %v", err)
	}
	if len(tickets) != 0 {
		t.Errorf("tickets = %d after failed purchases, want 0", len(tickets))
	}
}

func TestPurchaseRollsBackOnForeignKeyFailure(t *testing.T) {
	s := openTestStore(t, nil)
	ctx := context.Background()
	registerTestVehicle(t, s, "bus://5", schema.VehicleBus, 5, "R5")

	// Unregistered rider: the ticket insert violates the user_urn
	// foreign key, and the whole purchase rolls back.
	_, err := s.PurchaseTickets(ctx, PurchaseRequest{
		URN: "8880000000008", TicketKind: schema.TicketIndividual,
		VehicleKind: schema.VehicleBus, URI: "bus://5", Passengers: 1,
	})
	if err == nil {
		t.Fatal("purchase for unregistered rider succeeded")
	}

	vehicle, _ := s.Vehicle(ctx, "bus://5")
	if vehicle.AvailableSeats != 5 {
		t.Errorf("available = %d after rollback, want 5", vehicle.AvailableSeats)
	}
}

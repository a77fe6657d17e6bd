// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/metrolink-dev/metrolink/schema"
)

func TestDiscountRate(t *testing.T) {
	cases := []struct {
		kind  schema.TicketKind
		seats int
		want  float64
	}{
		{schema.TicketIndividual, 1, 0},
		{schema.TicketIndividual, 2, 0},
		{schema.TicketIndividual, 3, 0.10},
		{schema.TicketFamily, 1, 0.10},
		{schema.TicketBusiness, 2, 0},
		{schema.TicketBusiness, 4, 0.10},
		{schema.TicketTourist, 1, 0},
	}
	for _, tc := range cases {
		if got := DiscountRate(tc.kind, tc.seats); got != tc.want {
			t.Errorf("DiscountRate(%v, %d) = %v, want %v", tc.kind, tc.seats, got, tc.want)
		}
	}
}

func TestUpdatePriceInsertsThenUpdates(t *testing.T) {
	s := openTestStore(t, nil)
	ctx := context.Background()

	// No row yet: update-then-insert takes the insert path with
	// default multipliers.
	if err := s.UpdatePrice(ctx, schema.VehicleBus, schema.TicketIndividual, 1.5); err != nil {
		t.Fatalf("UpdatePrice insert: %v", err)
	}
	entry, err := s.Price(ctx, schema.VehicleBus, schema.TicketIndividual)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if entry.BasePrice != 1.5 || entry.DistanceMultiplier != 1.0 || entry.TimeMultiplier != 1.0 {
		t.Errorf("entry = %+v", entry)
	}

	// Row exists: the update path changes base price only.
	if err := s.UpdatePrice(ctx, schema.VehicleBus, schema.TicketIndividual, 2.0); err != nil {
		t.Fatalf("UpdatePrice update: %v", err)
	}
	entry, err = s.Price(ctx, schema.VehicleBus, schema.TicketIndividual)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if entry.BasePrice != 2.0 {
		t.Errorf("base price = %v, want 2.0", entry.BasePrice)
	}
}

func TestUnitPriceDefault(t *testing.T) {
	s := openTestStore(t, nil)
	ctx := context.Background()

	price, err := s.UnitPrice(ctx, schema.VehicleTram, schema.TicketTourist)
	if err != nil {
		t.Fatalf("UnitPrice: %v", err)
	}
	if price != 1.0 {
		t.Errorf("default unit price = %v, want 1.0", price)
	}

	if _, err := s.Price(ctx, schema.VehicleTram, schema.TicketTourist); !errors.Is(err, ErrPriceNotFound) {
		t.Errorf("missing price err = %v, want ErrPriceNotFound", err)
	}
}

// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"time"
)

// VehicleKind discriminates the vehicle fleet. The numeric values are
// stable wire and database constants.
type VehicleKind int

const (
	VehicleBus        VehicleKind = 1
	VehicleTram       VehicleKind = 2
	VehicleTrolleybus VehicleKind = 3
)

// VehicleKinds lists all kinds in the order used for route fallback
// scans: when a route has no vehicle of the requested kind, the
// coordinator adopts the first match in this order.
var VehicleKinds = []VehicleKind{VehicleBus, VehicleTram, VehicleTrolleybus}

// Valid reports whether the kind is one of the defined constants.
func (k VehicleKind) Valid() bool {
	return k >= VehicleBus && k <= VehicleTrolleybus
}

func (k VehicleKind) String() string {
	switch k {
	case VehicleBus:
		return "bus"
	case VehicleTram:
		return "tram"
	case VehicleTrolleybus:
		return "trolleybus"
	}
	return fmt.Sprintf("vehicle(%d)", int(k))
}

// TicketKind discriminates ticket products. The numeric values are
// stable wire and database constants.
type TicketKind int

const (
	TicketIndividual TicketKind = 1
	TicketFamily     TicketKind = 2
	TicketBusiness   TicketKind = 3
	TicketTourist    TicketKind = 4
)

// Valid reports whether the kind is one of the defined constants.
func (k TicketKind) Valid() bool {
	return k >= TicketIndividual && k <= TicketTourist
}

func (k TicketKind) String() string {
	switch k {
	case TicketIndividual:
		return "individual"
	case TicketFamily:
		return "family"
	case TicketBusiness:
		return "business"
	case TicketTourist:
		return "tourist"
	}
	return fmt.Sprintf("ticket(%d)", int(k))
}

// User is a registered rider. URN is the natural primary key: exactly
// 13 decimal digits, globally unique.
type User struct {
	URN              string
	Name             string
	Age              int
	RegistrationDate time.Time
	Active           bool

	// PINHash is the bcrypt hash of the user's PIN. Never exposed on
	// the wire.
	PINHash string
}

// Vehicle is a fleet unit. URI is the natural primary key (non-empty,
// at most 32 characters).
type Vehicle struct {
	URI            string
	Kind           VehicleKind
	Capacity       int
	AvailableSeats int
	Route          string
	Active         bool
	LastUpdate     time.Time
}

// Group is a named rider group with a single leader. The leader is
// always an active member of its own group.
type Group struct {
	ID           int64
	Name         string
	LeaderURN    string
	CreationDate time.Time
	Active       bool
}

// GroupMember is one (group, rider) membership row.
type GroupMember struct {
	GroupID   int64
	MemberURN string
	JoinDate  time.Time
	Active    bool
}

// Ticket is a purchased seat on a route.
type Ticket struct {
	ID           string
	UserURN      string
	Kind         TicketKind
	VehicleKind  VehicleKind
	Route        string
	Price        float64
	Discount     float64
	PurchaseDate time.Time
	SeatNumber   string
	Used         bool
}

// Payment records the settlement of a purchase. TicketID refers to the
// first ticket of the purchase and may be empty for standalone
// payments.
type Payment struct {
	TransactionID string
	TicketID      string
	Amount        float64
	Method        string
	Date          time.Time
	Successful    bool
}

// PriceEntry is one row of the price table, keyed by the
// (vehicle kind, ticket kind) pair.
type PriceEntry struct {
	VehicleKind        VehicleKind
	TicketKind         TicketKind
	BasePrice          float64
	DistanceMultiplier float64
	TimeMultiplier     float64
	LastUpdate         time.Time
}

// ValidURN reports whether urn is a well-formed user identifier:
// exactly 13 decimal digits.
func ValidURN(urn string) bool {
	if len(urn) != 13 {
		return false
	}
	for _, c := range urn {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// MaxURILength bounds vehicle identifiers.
const MaxURILength = 32

// ValidURI reports whether uri is a well-formed vehicle identifier:
// non-empty and at most MaxURILength bytes.
func ValidURI(uri string) bool {
	return uri != "" && len(uri) <= MaxURILength
}

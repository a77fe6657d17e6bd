// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package store

import "errors"

// Sentinel errors surfaced by store operations. Handlers map these to
// wire error codes; test with errors.Is.
var (
	ErrUserNotFound    = errors.New("store: user not found")
	ErrUserExists      = errors.New("store: user already registered")
	ErrVehicleNotFound = errors.New("store: vehicle not found")
	ErrVehicleExists   = errors.New("store: vehicle already registered")
	ErrNoSeats         = errors.New("store: not enough available seats")
	ErrGroupNotFound   = errors.New("store: group not found")
	ErrGroupExists     = errors.New("store: group name already taken")
	ErrAlreadyInGroup  = errors.New("store: user already in group")
	ErrNotInGroup      = errors.New("store: user not in group")
	ErrPriceNotFound   = errors.New("store: no price entry")
	ErrNothingToUpdate = errors.New("store: nothing to update")
	ErrInvalidCapacity = errors.New("store: invalid capacity/available_seats")
)

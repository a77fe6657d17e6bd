// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"strconv"

	"github.com/metrolink-dev/metrolink/schema"
)

// The constructors below build fully-checksummed messages for every
// request and response kind. Optional fields are omitted rather than
// sent empty, matching what existing peers put on the wire.

// NewConnectRequest opens a logical session on a fresh transport
// connection.
func NewConnectRequest(clientID string) *Message {
	m := New(TypeConnectRequest)
	m.SetString("client_id", clientID)
	m.SetString("protocol_version", "1.0")
	m.ComputeChecksum()
	return m
}

// NewConnectResponse acknowledges a connect request.
func NewConnectResponse(success bool, reason string) *Message {
	m := New(TypeConnectResponse)
	m.SetBool("success", success)
	if reason != "" {
		m.SetString("reason", reason)
	}
	m.ComputeChecksum()
	return m
}

// NewAuthRequest authenticates a rider by URN, optionally with a PIN.
func NewAuthRequest(urn, pin string) *Message {
	m := New(TypeAuthRequest)
	m.SetString("urn", urn)
	if pin != "" {
		m.SetString("pin", pin)
	}
	m.ComputeChecksum()
	return m
}

// NewAuthResponse carries the minted session token back to the client.
// The client echoes the token as the "session_id" key on subsequent
// requests.
func NewAuthResponse(success bool, token string) *Message {
	m := New(TypeAuthResponse)
	m.SetBool("success", success)
	if token != "" {
		m.SetString("token", token)
	}
	m.ComputeChecksum()
	return m
}

// NewRegisterUser registers a rider.
func NewRegisterUser(urn string) *Message {
	m := New(TypeRegisterUser)
	m.SetString("urn", urn)
	m.ComputeChecksum()
	return m
}

// NewRegisterDevice registers a vehicle.
func NewRegisterDevice(uri string, kind schema.VehicleKind) *Message {
	m := New(TypeRegisterDevice)
	m.SetString("uri", uri)
	m.SetInt("vehicle_type", int(kind))
	m.ComputeChecksum()
	return m
}

// NewReserveSeat reserves one seat on a route.
func NewReserveSeat(urn string, kind schema.VehicleKind, route string) *Message {
	m := New(TypeReserveSeat)
	m.SetString("urn", urn)
	m.SetInt("vehicle_type", int(kind))
	if route != "" {
		m.SetString("route", route)
	}
	m.ComputeChecksum()
	return m
}

// NewPurchaseTicket buys seats for the given passenger count.
func NewPurchaseTicket(ticketKind schema.TicketKind, vehicleKind schema.VehicleKind, route string, passengers int) *Message {
	m := New(TypePurchaseTicket)
	m.SetInt("ticket_type", int(ticketKind))
	m.SetInt("vehicle_type", int(vehicleKind))
	if route != "" {
		m.SetString("route", route)
	}
	m.SetInt("passengers", passengers)
	m.ComputeChecksum()
	return m
}

// NewCreateGroup creates a rider group led by leaderURN.
func NewCreateGroup(groupName, leaderURN string) *Message {
	m := New(TypeCreateGroup)
	m.SetString("group_name", groupName)
	if leaderURN != "" {
		m.SetString("leader_urn", leaderURN)
	}
	m.ComputeChecksum()
	return m
}

// NewDeleteUser requests deletion of a rider. Deletion is admin gated:
// the coordinator refuses unless adminApproved is set.
func NewDeleteUser(urn string, adminApproved bool) *Message {
	m := New(TypeDeleteUser)
	m.SetString("urn", urn)
	m.SetBool("admin_approved", adminApproved)
	m.ComputeChecksum()
	return m
}

// NewAddMemberToGroup adds a rider to a group. Requires a valid
// session token.
func NewAddMemberToGroup(groupName, memberURN, sessionToken string) *Message {
	m := New(TypeAddMemberToGroup)
	m.SetString("group_name", groupName)
	m.SetString("urn", memberURN)
	if sessionToken != "" {
		m.SetString("session_id", sessionToken)
	}
	m.ComputeChecksum()
	return m
}

// NewRemoveMemberFromGroup removes a rider from a group. Only the
// group leader's session may issue it.
func NewRemoveMemberFromGroup(groupName, memberURN, sessionToken string) *Message {
	m := New(TypeDeleteGroupMember)
	m.SetString("group_name", groupName)
	m.SetString("urn", memberURN)
	if sessionToken != "" {
		m.SetString("session_id", sessionToken)
	}
	m.ComputeChecksum()
	return m
}

// NewGetVehicleStatus queries one vehicle's current state.
func NewGetVehicleStatus(uri string) *Message {
	m := New(TypeGetVehicleStatus)
	m.SetString("uri", uri)
	m.ComputeChecksum()
	return m
}

// NewUpdatePrice sets the base price for a (vehicle kind, ticket kind)
// pair.
func NewUpdatePrice(vehicleKind schema.VehicleKind, ticketKind schema.TicketKind, price float64) *Message {
	m := New(TypeUpdatePrice)
	m.SetInt("vehicle_type", int(vehicleKind))
	m.SetInt("ticket_type", int(ticketKind))
	m.SetFloat("price", price)
	m.ComputeChecksum()
	return m
}

// VehicleUpdate carries the optional fields of an UpdateVehicle
// request; nil pointers are omitted from the wire.
type VehicleUpdate struct {
	Active *bool
	Route  *string
	Kind   *schema.VehicleKind
}

// NewUpdateVehicle changes a vehicle's active flag, route, or kind.
func NewUpdateVehicle(uri string, update VehicleUpdate) *Message {
	m := New(TypeUpdateVehicle)
	m.SetString("uri", uri)
	if update.Active != nil {
		if *update.Active {
			m.SetInt("active", 1)
		} else {
			m.SetInt("active", 0)
		}
	}
	if update.Route != nil {
		m.SetString("route", *update.Route)
	}
	if update.Kind != nil {
		m.SetInt("vehicle_type", int(*update.Kind))
	}
	m.ComputeChecksum()
	return m
}

// NewUpdateCapacity changes a vehicle's capacity and available seats.
func NewUpdateCapacity(uri string, capacity, availableSeats int) *Message {
	m := New(TypeUpdateCapacity)
	m.SetString("uri", uri)
	m.SetInt("capacity", capacity)
	m.SetInt("available_seats", availableSeats)
	m.ComputeChecksum()
	return m
}

// NewSuccessResponse builds a RESPONSE_SUCCESS with an optional
// human-readable message and extra data keys.
func NewSuccessResponse(text string, data map[string]string) *Message {
	m := New(TypeResponseSuccess)
	if text != "" {
		m.SetString("message", text)
	}
	for key, value := range data {
		m.SetString(key, value)
	}
	m.ComputeChecksum()
	return m
}

// NewErrorResponse builds a RESPONSE_ERROR with an error string and an
// HTTP-flavored numeric code.
func NewErrorResponse(text string, code int) *Message {
	m := New(TypeResponseError)
	m.SetString("error", text)
	m.SetInt("error_code", code)
	m.ComputeChecksum()
	return m
}

// NewHeartbeat builds a client liveness probe stamped with the given
// Unix time.
func NewHeartbeat(unix int64) *Message {
	m := New(TypeHeartbeat)
	m.SetString("timestamp", strconv.FormatInt(unix, 10))
	m.ComputeChecksum()
	return m
}

// NewDisconnect announces an orderly shutdown of the logical session.
func NewDisconnect(sessionToken string) *Message {
	m := New(TypeDisconnect)
	if sessionToken != "" {
		m.SetString("session_id", sessionToken)
	}
	m.ComputeChecksum()
	return m
}

// NewMulticastUpdate builds the asynchronous update frame fanned out
// to subscribers.
func NewMulticastUpdate(updateType string, data map[string]string) *Message {
	m := New(TypeMulticastUpdate)
	m.SetString("update_type", updateType)
	for key, value := range data {
		m.SetString(key, value)
	}
	m.ComputeChecksum()
	return m
}

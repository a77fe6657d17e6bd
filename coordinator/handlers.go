// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"errors"
	"strconv"

	"github.com/metrolink-dev/metrolink/protocol"
	"github.com/metrolink-dev/metrolink/schema"
	"github.com/metrolink-dev/metrolink/store"
	"github.com/metrolink-dev/metrolink/transport"
)

// dispatch routes one request to its handler and reports whether the
// connection loop should continue. Handlers never panic across this
// boundary: every failure becomes a RESPONSE_ERROR and the loop reads
// the next message.
func (c *Coordinator) dispatch(connectionID string, conn *transport.Conn, m *protocol.Message) bool {
	switch m.Type {
	case protocol.TypeConnectRequest:
		c.handleConnectRequest(conn, m)
	case protocol.TypeAuthRequest:
		c.handleAuthRequest(connectionID, conn, m)
	case protocol.TypeRegisterUser:
		c.handleRegisterUser(conn, m)
	case protocol.TypeRegisterDevice:
		c.handleRegisterDevice(conn, m)
	case protocol.TypeReserveSeat:
		c.handleReserveSeat(conn, m)
	case protocol.TypePurchaseTicket:
		c.handlePurchaseTicket(conn, m)
	case protocol.TypeCreateGroup:
		c.handleCreateGroup(conn, m)
	case protocol.TypeAddMemberToGroup:
		c.handleAddMemberToGroup(conn, m)
	case protocol.TypeDeleteGroupMember:
		c.handleRemoveMemberFromGroup(conn, m)
	case protocol.TypeDeleteUser:
		c.handleDeleteUser(conn, m)
	case protocol.TypeGetVehicleStatus:
		c.handleGetVehicleStatus(conn, m)
	case protocol.TypeUpdatePrice:
		c.handleUpdatePrice(conn, m)
	case protocol.TypeUpdateVehicle:
		c.handleUpdateVehicle(conn, m)
	case protocol.TypeUpdateCapacity:
		c.handleUpdateCapacity(conn, m)
	case protocol.TypeHeartbeat:
		c.handleHeartbeat(conn, m)
	case protocol.TypeDisconnect:
		c.handleDisconnect(conn, m)
		return false
	case protocol.TypeUpdatePriceListLegacy:
		// Reserved legacy type; never dispatched to business logic.
		c.respondError(conn, m, "Deprecated message type", 400)
	default:
		c.logger.Warn("unknown message type", "type", m.Type)
		c.respondError(conn, m, "Unknown message type", 400)
	}
	return true
}

// respond sends a reply correlated to the request's sequence id. The
// checksum is recomputed after the correlation stamp.
func (c *Coordinator) respond(conn *transport.Conn, request, reply *protocol.Message) {
	reply.SequenceID = request.SequenceID
	reply.ComputeChecksum()
	if err := conn.SendMessage(reply); err != nil {
		c.logger.Warn("response send failed", "type", reply.Type, "error", err)
	}
}

// respondSuccess sends a RESPONSE_SUCCESS with a message and optional
// data keys.
func (c *Coordinator) respondSuccess(conn *transport.Conn, request *protocol.Message, text string, data map[string]string) {
	c.respond(conn, request, protocol.NewSuccessResponse(text, data))
}

// respondError sends a RESPONSE_ERROR with an error string and code.
func (c *Coordinator) respondError(conn *transport.Conn, request *protocol.Message, text string, code int) {
	c.respond(conn, request, protocol.NewErrorResponse(text, code))
}

func (c *Coordinator) handleConnectRequest(conn *transport.Conn, m *protocol.Message) {
	clientID := m.GetString("client_id")
	c.logger.Info("connect request", "client_id", clientID)
	c.respond(conn, m, protocol.NewConnectResponse(true, "Connection established"))
}

// handleAuthRequest authenticates a rider by URN, plus PIN when one is
// supplied, mints a session, and subscribes the connection to update
// fan-out.
func (c *Coordinator) handleAuthRequest(connectionID string, conn *transport.Conn, m *protocol.Message) {
	urn := m.GetString("urn")
	if urn == "" {
		c.respond(conn, m, protocol.NewAuthResponse(false, ""))
		return
	}

	authenticated := false
	if m.Has("pin") {
		ok, err := c.store.Authenticate(c.ctx, urn, m.GetString("pin"))
		authenticated = err == nil && ok
	} else {
		exists, err := c.store.UserExists(c.ctx, urn)
		authenticated = err == nil && exists
	}

	if !authenticated {
		c.logger.Warn("authentication failed", "urn", urn)
		c.respond(conn, m, protocol.NewAuthResponse(false, ""))
		return
	}

	token := c.sessions.create(urn)
	c.registry.add(conn)
	if err := c.store.AuthenticateConnection(c.ctx, connectionID, urn); err != nil {
		c.logger.Warn("stamping connection row", "connection", connectionID, "error", err)
	}
	c.respond(conn, m, protocol.NewAuthResponse(true, token))
	c.logger.Info("user authenticated", "urn", urn, "session", token)
}

func (c *Coordinator) handleRegisterUser(conn *transport.Conn, m *protocol.Message) {
	urn := m.GetString("urn")
	if !schema.ValidURN(urn) {
		c.respondError(conn, m, "Invalid URN format", 400)
		return
	}

	user := schema.User{
		URN:              urn,
		Name:             "User_" + urn,
		Age:              25,
		RegistrationDate: c.clock.Now(),
		Active:           true,
	}
	if m.Has("name") {
		user.Name = m.GetString("name")
	}
	if m.Has("age") {
		user.Age = m.GetInt("age")
	}
	if m.Has("pin") {
		hash, err := store.HashPIN(m.GetString("pin"))
		if err != nil {
			c.respondError(conn, m, "Failed to register user", 500)
			return
		}
		user.PINHash = hash
	}

	err := c.store.RegisterUser(c.ctx, user)
	switch {
	case errors.Is(err, store.ErrUserExists):
		c.respondError(conn, m, "User already registered", 409)
	case err != nil:
		c.logger.Error("user registration failed", "urn", urn, "error", err)
		c.respondError(conn, m, "Failed to register user", 500)
	default:
		c.logger.Info("user registered", "urn", urn)
		c.respondSuccess(conn, m, "User registered successfully", nil)
	}
}

func (c *Coordinator) handleRegisterDevice(conn *transport.Conn, m *protocol.Message) {
	uri := m.GetString("uri")
	kind := schema.VehicleKind(m.GetInt("vehicle_type"))
	if !schema.ValidURI(uri) {
		c.respondError(conn, m, "Invalid URI format", 400)
		return
	}
	if !kind.Valid() {
		c.respondError(conn, m, "Invalid vehicle type", 400)
		return
	}

	vehicle := schema.Vehicle{
		URI:            uri,
		Kind:           kind,
		Capacity:       50,
		AvailableSeats: 50,
		Route:          "Route_" + uri,
		Active:         true,
		LastUpdate:     c.clock.Now(),
	}
	if m.Has("route") {
		vehicle.Route = m.GetString("route")
	}
	if m.Has("capacity") {
		capacity := m.GetInt("capacity")
		if capacity < 0 {
			c.respondError(conn, m, "Invalid capacity", 400)
			return
		}
		vehicle.Capacity = capacity
		vehicle.AvailableSeats = capacity
	}

	err := c.store.RegisterVehicle(c.ctx, vehicle)
	switch {
	case errors.Is(err, store.ErrVehicleExists):
		c.respondError(conn, m, "Device already exists", 409)
	case err != nil:
		c.logger.Error("device registration failed", "uri", uri, "error", err)
		c.respondError(conn, m, "Failed to register device", 500)
	default:
		c.logger.Info("device registered", "uri", uri, "route", vehicle.Route)
		c.respondSuccess(conn, m, "Device registered successfully", nil)
	}
}

// handleReserveSeat reserves one seat on a vehicle named by URI or by
// route with kind fallback. A committed reservation fans out a
// seat_reserved update with the new count.
func (c *Coordinator) handleReserveSeat(conn *transport.Conn, m *protocol.Message) {
	urn := m.GetString("urn")
	if urn == "" {
		c.respondError(conn, m, "Missing user URN", 400)
		return
	}
	uri := m.GetString("uri")
	route := m.GetString("route")
	kind := schema.VehicleKind(m.GetInt("vehicle_type"))

	vehicle, err := c.store.ResolveVehicle(c.ctx, uri, route, kind)
	if errors.Is(err, store.ErrVehicleNotFound) {
		c.respondError(conn, m, "Vehicle/route not found", 404)
		return
	}
	if err != nil {
		c.logger.Error("vehicle resolution failed", "error", err)
		c.respondError(conn, m, "Failed to reserve seat", 500)
		return
	}

	remaining, err := c.store.ReserveSeats(c.ctx, vehicle.URI, 1)
	switch {
	case errors.Is(err, store.ErrNoSeats):
		c.respondError(conn, m, "No available seats for this route/vehicle", 409)
		return
	case errors.Is(err, store.ErrVehicleNotFound):
		c.respondError(conn, m, "Vehicle/route not found", 404)
		return
	case err != nil:
		c.logger.Error("seat reservation failed", "uri", vehicle.URI, "error", err)
		c.respondError(conn, m, "Failed to reserve seat", 500)
		return
	}

	c.logger.Info("seat reserved",
		"urn", urn,
		"uri", vehicle.URI,
		"route", vehicle.Route,
		"remaining", remaining,
	)

	data := map[string]string{
		"route":           vehicle.Route,
		"vehicle_uri":     vehicle.URI,
		"available_seats": strconv.Itoa(remaining),
	}
	c.respondSuccess(conn, m, "Seat reserved successfully", data)
	c.registry.broadcast("seat_reserved", data)
}

// handlePurchaseTicket runs the transactional multi-step purchase. The
// caller identifies itself by session token or bare URN.
func (c *Coordinator) handlePurchaseTicket(conn *transport.Conn, m *protocol.Message) {
	var urn string
	if m.Has("session_id") {
		resolved, ok := c.sessions.resolve(m.GetString("session_id"))
		if !ok {
			c.respondError(conn, m, "Invalid or expired session", 401)
			return
		}
		urn = resolved
	} else if m.Has("urn") {
		urn = m.GetString("urn")
	}
	if urn == "" {
		c.respondError(conn, m, "Missing user identity (session_id or urn)", 400)
		return
	}

	passengers := m.GetInt("passengers")
	if passengers < 1 {
		passengers = 1
	}

	result, err := c.store.PurchaseTickets(c.ctx, store.PurchaseRequest{
		URN:         urn,
		TicketKind:  schema.TicketKind(m.GetInt("ticket_type")),
		VehicleKind: schema.VehicleKind(m.GetInt("vehicle_type")),
		Route:       m.GetString("route"),
		URI:         m.GetString("uri"),
		Passengers:  passengers,
	})
	switch {
	case errors.Is(err, store.ErrVehicleNotFound):
		c.respondError(conn, m, "Vehicle/route not found", 404)
		return
	case errors.Is(err, store.ErrNoSeats):
		c.respondError(conn, m, "Insufficient seats available", 409)
		return
	case err != nil:
		c.logger.Error("ticket purchase failed", "urn", urn, "error", err)
		c.respondError(conn, m, "Failed to purchase ticket", 500)
		return
	}

	c.logger.Info("ticket purchased",
		"urn", urn,
		"uri", result.Vehicle.URI,
		"route", result.Vehicle.Route,
		"passengers", passengers,
		"total", result.Total,
		"remaining", result.NewAvailable,
	)

	c.respondSuccess(conn, m, "Ticket purchased successfully", map[string]string{
		"total_amount":    strconv.FormatFloat(result.Total, 'f', -1, 64),
		"route":           result.Vehicle.Route,
		"vehicle_uri":     result.Vehicle.URI,
		"available_seats": strconv.Itoa(result.NewAvailable),
		"passengers":      strconv.Itoa(passengers),
		"user_urn":        urn,
	})
	c.registry.broadcast("ticket_purchased", map[string]string{
		"route":           result.Vehicle.Route,
		"vehicle_uri":     result.Vehicle.URI,
		"passengers":      strconv.Itoa(passengers),
		"available_seats": strconv.Itoa(result.NewAvailable),
	})
}

func (c *Coordinator) handleCreateGroup(conn *transport.Conn, m *protocol.Message) {
	groupName := m.GetString("group_name")
	leaderURN := m.GetString("leader_urn")
	if groupName == "" || leaderURN == "" {
		c.respondError(conn, m, "Missing group_name or leader_urn", 400)
		return
	}

	exists, err := c.store.UserExists(c.ctx, leaderURN)
	if err != nil {
		c.logger.Error("leader lookup failed", "urn", leaderURN, "error", err)
		c.respondError(conn, m, "Failed to create group", 500)
		return
	}
	if !exists {
		c.respondError(conn, m, "Leader not registered", 404)
		return
	}

	_, err = c.store.CreateGroup(c.ctx, groupName, leaderURN)
	switch {
	case errors.Is(err, store.ErrGroupExists):
		c.respondError(conn, m, "Group name already taken", 409)
	case err != nil:
		c.logger.Error("group creation failed", "group", groupName, "error", err)
		c.respondError(conn, m, "Failed to create group", 500)
	default:
		c.logger.Info("group created", "group", groupName, "leader", leaderURN)
		c.respondSuccess(conn, m, "Group created successfully", nil)
	}
}

func (c *Coordinator) handleAddMemberToGroup(conn *transport.Conn, m *protocol.Message) {
	token := m.GetString("session_id")
	urn := m.GetString("urn")
	groupName := m.GetString("group_name")
	if token == "" || urn == "" || groupName == "" {
		c.respondError(conn, m, "Missing required fields (session_id, group_name, urn)", 400)
		return
	}
	if !c.sessions.touch(token) {
		c.respondError(conn, m, "Invalid or expired session", 401)
		return
	}

	err := c.store.AddMember(c.ctx, urn, groupName)
	switch {
	case errors.Is(err, store.ErrAlreadyInGroup):
		c.respondError(conn, m, "User already in group", 500)
	case err != nil:
		c.logger.Error("group member add failed", "group", groupName, "urn", urn, "error", err)
		c.respondError(conn, m, "Failed to add user to group", 500)
	default:
		c.logger.Info("group member added", "group", groupName, "urn", urn)
		c.respondSuccess(conn, m, "User added to group", nil)
	}
}

// requireGroupLeader resolves the caller through its session and
// rejects the request unless the caller leads the group. Sends the
// error response itself; callers just stop on false.
func (c *Coordinator) requireGroupLeader(conn *transport.Conn, m *protocol.Message, token, groupName string) bool {
	callerURN, ok := c.sessions.resolve(token)
	if !ok {
		c.respondError(conn, m, "Invalid or expired session", 401)
		return false
	}

	leader, err := c.store.GroupLeader(c.ctx, groupName)
	if errors.Is(err, store.ErrGroupNotFound) {
		c.respondError(conn, m, "Group not found or no leader set", 404)
		return false
	}
	if err != nil {
		c.logger.Error("leader lookup failed", "group", groupName, "error", err)
		c.respondError(conn, m, "Failed to verify group leader", 500)
		return false
	}
	if leader != callerURN {
		c.logger.Warn("leader-only operation rejected",
			"group", groupName,
			"caller", callerURN,
		)
		c.respondError(conn, m, "Admin (group leader) privileges required", 403)
		return false
	}
	return true
}

func (c *Coordinator) handleRemoveMemberFromGroup(conn *transport.Conn, m *protocol.Message) {
	token := m.GetString("session_id")
	urn := m.GetString("urn")
	groupName := m.GetString("group_name")
	if token == "" || urn == "" || groupName == "" {
		c.respondError(conn, m, "Missing required fields (session_id, group_name, urn)", 400)
		return
	}
	if !c.requireGroupLeader(conn, m, token, groupName) {
		return
	}

	err := c.store.RemoveMember(c.ctx, urn, groupName)
	switch {
	case errors.Is(err, store.ErrNotInGroup):
		c.respondError(conn, m, "User not in group", 500)
	case err != nil:
		c.logger.Error("group member removal failed", "group", groupName, "urn", urn, "error", err)
		c.respondError(conn, m, "Failed to remove user from group", 500)
	default:
		c.logger.Info("group member removed", "group", groupName, "urn", urn)
		c.respondSuccess(conn, m, "User removed from group", nil)
	}
}

// handleDeleteUser enforces the admin gate: without admin approval the
// rider is never deleted.
func (c *Coordinator) handleDeleteUser(conn *transport.Conn, m *protocol.Message) {
	urn := m.GetString("urn")
	if urn == "" {
		c.respondError(conn, m, "Missing urn", 400)
		return
	}
	if !m.GetBool("admin_approved") {
		c.logger.Info("user deletion refused without admin approval", "urn", urn)
		c.respondError(conn, m, "Admin approval required", 403)
		return
	}

	err := c.store.DeleteUser(c.ctx, urn)
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		c.respondError(conn, m, "User not found", 404)
	case err != nil:
		c.logger.Error("user deletion failed", "urn", urn, "error", err)
		c.respondError(conn, m, "Failed to delete user", 500)
	default:
		c.logger.Info("user deleted with admin approval", "urn", urn)
		c.respondSuccess(conn, m, "User deleted", nil)
	}
}

func (c *Coordinator) handleGetVehicleStatus(conn *transport.Conn, m *protocol.Message) {
	uri := m.GetString("uri")
	if uri == "" {
		c.respondError(conn, m, "Missing uri", 400)
		return
	}
	vehicle, err := c.store.Vehicle(c.ctx, uri)
	if errors.Is(err, store.ErrVehicleNotFound) {
		c.respondError(conn, m, "Vehicle not found", 404)
		return
	}
	if err != nil {
		c.logger.Error("vehicle status lookup failed", "uri", uri, "error", err)
		c.respondError(conn, m, "Failed to read vehicle status", 500)
		return
	}

	active := "0"
	if vehicle.Active {
		active = "1"
	}
	c.respondSuccess(conn, m, "", map[string]string{
		"uri":             vehicle.URI,
		"vehicle_type":    strconv.Itoa(int(vehicle.Kind)),
		"capacity":        strconv.Itoa(vehicle.Capacity),
		"available_seats": strconv.Itoa(vehicle.AvailableSeats),
		"route":           vehicle.Route,
		"active":          active,
	})
}

func (c *Coordinator) handleUpdatePrice(conn *transport.Conn, m *protocol.Message) {
	if !m.Has("vehicle_type") || !m.Has("ticket_type") || !m.Has("price") {
		c.respondError(conn, m, "Missing vehicle_type/ticket_type/price", 400)
		return
	}
	vehicleKind := schema.VehicleKind(m.GetInt("vehicle_type"))
	ticketKind := schema.TicketKind(m.GetInt("ticket_type"))
	if !vehicleKind.Valid() || !ticketKind.Valid() {
		c.respondError(conn, m, "Invalid vehicle_type/ticket_type", 400)
		return
	}
	priceText := m.GetString("price")
	price, err := strconv.ParseFloat(priceText, 64)
	if err != nil || price < 0 {
		c.respondError(conn, m, "Invalid price format", 400)
		return
	}

	if err := c.store.UpdatePrice(c.ctx, vehicleKind, ticketKind, price); err != nil {
		c.logger.Error("price update failed", "error", err)
		c.respondError(conn, m, "Failed to update price", 500)
		return
	}

	c.logger.Info("price updated",
		"vehicle_type", vehicleKind,
		"ticket_type", ticketKind,
		"price", price,
	)
	c.respondSuccess(conn, m, "Price updated", nil)
	c.registry.broadcast("price_updated", map[string]string{
		"vehicle_type": strconv.Itoa(int(vehicleKind)),
		"ticket_type":  strconv.Itoa(int(ticketKind)),
		"price":        priceText,
	})
}

func (c *Coordinator) handleUpdateVehicle(conn *transport.Conn, m *protocol.Message) {
	uri := m.GetString("uri")
	if uri == "" {
		c.respondError(conn, m, "Missing uri", 400)
		return
	}

	var update store.VehicleUpdate
	if m.Has("active") {
		active := m.GetInt("active") != 0
		update.Active = &active
	}
	if m.Has("route") {
		route := m.GetString("route")
		update.Route = &route
	}
	if m.Has("vehicle_type") {
		kind := schema.VehicleKind(m.GetInt("vehicle_type"))
		if !kind.Valid() {
			c.respondError(conn, m, "Invalid vehicle_type", 400)
			return
		}
		update.Kind = &kind
	}

	err := c.store.UpdateVehicle(c.ctx, uri, update)
	switch {
	case errors.Is(err, store.ErrNothingToUpdate):
		c.respondError(conn, m, "Nothing to update", 400)
	case errors.Is(err, store.ErrVehicleNotFound):
		c.respondError(conn, m, "Vehicle not found", 404)
	case err != nil:
		c.logger.Error("vehicle update failed", "uri", uri, "error", err)
		c.respondError(conn, m, "Failed to update vehicle", 500)
	default:
		c.logger.Info("vehicle updated", "uri", uri)
		c.respondSuccess(conn, m, "Vehicle updated", nil)
		c.registry.broadcast("vehicle_updated", map[string]string{"uri": uri})
	}
}

func (c *Coordinator) handleUpdateCapacity(conn *transport.Conn, m *protocol.Message) {
	uri := m.GetString("uri")
	if uri == "" || !m.Has("capacity") {
		c.respondError(conn, m, "Missing uri/capacity", 400)
		return
	}
	capacity := m.GetInt("capacity")
	available := capacity
	if m.Has("available_seats") {
		available = m.GetInt("available_seats")
	}

	err := c.store.UpdateCapacity(c.ctx, uri, capacity, available)
	switch {
	case errors.Is(err, store.ErrInvalidCapacity):
		c.respondError(conn, m, "Invalid capacity/available_seats", 400)
	case errors.Is(err, store.ErrVehicleNotFound):
		c.respondError(conn, m, "Vehicle not found", 404)
	case err != nil:
		c.logger.Error("capacity update failed", "uri", uri, "error", err)
		c.respondError(conn, m, "Failed to update capacity", 500)
	default:
		c.logger.Info("capacity updated", "uri", uri, "capacity", capacity, "available", available)
		data := map[string]string{
			"uri":             uri,
			"capacity":        strconv.Itoa(capacity),
			"available_seats": strconv.Itoa(available),
		}
		c.respondSuccess(conn, m, "Capacity updated", nil)
		c.registry.broadcast("capacity_updated", data)
	}
}

// handleHeartbeat refreshes session activity when the probe names a
// session, and answers with the server time so every request keeps
// its one-response contract.
func (c *Coordinator) handleHeartbeat(conn *transport.Conn, m *protocol.Message) {
	if m.Has("session_id") {
		c.sessions.touch(m.GetString("session_id"))
	}
	c.respondSuccess(conn, m, "", map[string]string{
		"timestamp": strconv.FormatInt(c.clock.Now().Unix(), 10),
	})
}

// handleDisconnect removes the named session and acknowledges; the
// dispatcher ends the connection loop afterwards.
func (c *Coordinator) handleDisconnect(conn *transport.Conn, m *protocol.Message) {
	if m.Has("session_id") {
		c.sessions.remove(m.GetString("session_id"))
	}
	c.respondSuccess(conn, m, "Goodbye", nil)
}

// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "fmt"

// MessageType identifies the payload schema of a frame. The numeric
// values are fixed wire constants shared with every peer
// implementation; never renumber them.
type MessageType uint16

const (
	TypeConnectRequest        MessageType = 1
	TypeConnectResponse       MessageType = 2
	TypeAuthRequest           MessageType = 3
	TypeAuthResponse          MessageType = 4
	TypeRegisterUser          MessageType = 5
	TypeRegisterDevice        MessageType = 6
	TypeReserveSeat           MessageType = 7
	TypePurchaseTicket        MessageType = 8
	TypeCreateGroup           MessageType = 9
	TypeDeleteUser            MessageType = 10
	TypeDeleteGroupMember     MessageType = 11
	TypeUpdatePriceListLegacy MessageType = 12
	TypeGetVehicleStatus      MessageType = 13
	TypeMulticastUpdate       MessageType = 14
	TypeResponseSuccess       MessageType = 15
	TypeResponseError         MessageType = 16
	TypeHeartbeat             MessageType = 17
	TypeDisconnect            MessageType = 18
	TypeUpdatePrice           MessageType = 19
	TypeUpdateVehicle         MessageType = 20
	TypeUpdateCapacity        MessageType = 21
	TypeAddMemberToGroup      MessageType = 1001
)

func (t MessageType) String() string {
	switch t {
	case TypeConnectRequest:
		return "CONNECT_REQUEST"
	case TypeConnectResponse:
		return "CONNECT_RESPONSE"
	case TypeAuthRequest:
		return "AUTH_REQUEST"
	case TypeAuthResponse:
		return "AUTH_RESPONSE"
	case TypeRegisterUser:
		return "REGISTER_USER"
	case TypeRegisterDevice:
		return "REGISTER_DEVICE"
	case TypeReserveSeat:
		return "RESERVE_SEAT"
	case TypePurchaseTicket:
		return "PURCHASE_TICKET"
	case TypeCreateGroup:
		return "CREATE_GROUP"
	case TypeDeleteUser:
		return "DELETE_USER"
	case TypeDeleteGroupMember:
		return "DELETE_GROUP_MEMBER"
	case TypeUpdatePriceListLegacy:
		return "UPDATE_PRICE_LIST_LEGACY"
	case TypeGetVehicleStatus:
		return "GET_VEHICLE_STATUS"
	case TypeMulticastUpdate:
		return "MULTICAST_UPDATE"
	case TypeResponseSuccess:
		return "RESPONSE_SUCCESS"
	case TypeResponseError:
		return "RESPONSE_ERROR"
	case TypeHeartbeat:
		return "HEARTBEAT"
	case TypeDisconnect:
		return "DISCONNECT"
	case TypeUpdatePrice:
		return "UPDATE_PRICE"
	case TypeUpdateVehicle:
		return "UPDATE_VEHICLE"
	case TypeUpdateCapacity:
		return "UPDATE_CAPACITY"
	case TypeAddMemberToGroup:
		return "ADD_MEMBER_TO_GROUP"
	}
	return fmt.Sprintf("MessageType(%d)", uint16(t))
}

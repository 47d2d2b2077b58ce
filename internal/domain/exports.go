package domain

import (
	interfaces "ringchat/internal/domain/interfaces"
	types "ringchat/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Address         = types.Address
	ConnectionState = types.ConnectionState
	ReadStatus      = types.ReadStatus
	ClientStatus    = types.ClientStatus
	Message         = types.Message
	Inbound         = types.Inbound
	Peer            = types.Peer
	PeerInfo        = types.PeerInfo
	ChatSession     = types.ChatSession
	RoomEntry       = types.RoomEntry
	Settings        = types.Settings
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Signer          = interfaces.Signer
	InboundHandler  = interfaces.InboundHandler
	ClientParams    = interfaces.ClientParams
	NetworkClient   = interfaces.NetworkClient
	ClientFactory   = interfaces.ClientFactory
	Wallet          = interfaces.Wallet
	IdentityService = interfaces.IdentityService
	NameService     = interfaces.NameService
	WalletStore     = interfaces.WalletStore
	SettingsStore   = interfaces.SettingsStore
)

// Re-exported constants.
const (
	AddressTypeEIP191 = types.AddressTypeEIP191

	StateAbsent       = types.StateAbsent
	StateConnecting   = types.StateConnecting
	StateConnected    = types.StateConnected
	StateDisconnected = types.StateDisconnected

	Read   = types.Read
	Unread = types.Unread

	ClientDisconnected = types.ClientDisconnected
	ClientConnecting   = types.ClientConnecting
	ClientConnected    = types.ClientConnected
	ClientFailed       = types.ClientFailed
)

// Re-exported helpers.
var (
	NormalizeAddress     = types.NormalizeAddress
	ValidAddress         = types.ValidAddress
	ParseConnectionState = types.ParseConnectionState
)

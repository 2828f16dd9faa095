package netif

import "errors"

var (
	// ErrNotConnected is returned by LinkOutput when the BNEP channel
	// is not in the Connected state.
	ErrNotConnected = errors.New("netif: bnep channel not connected")

	// ErrBadArgument is returned when an outbound frame is too short to
	// contain an Ethernet header.
	ErrBadArgument = errors.New("netif: frame too short to be ethernet")

	// ErrOutOfMemory is returned when the TX queue is full and a frame
	// must be dropped.
	ErrOutOfMemory = errors.New("netif: tx queue full")

	// ErrBufferTooSmall is returned when a frame exceeds the fixed
	// capacity of a TxSlot.
	ErrBufferTooSmall = errors.New("netif: frame exceeds tx slot capacity")
)

// Package config holds TinyPAN's compile-time-equivalent tunables: the
// per-connection Config a caller supplies, and the fixed protocol
// timeouts and buffer sizes that would be #define's in an embedded C
// build.
package config

import "github.com/Akhil-Chaturvedi/TinyPAN/pkg/bnep"

// Config is the set of parameters a caller supplies to start a TinyPAN
// client connection.
type Config struct {
	RemoteAddr bnep.BDAddr

	// ReconnectIntervalMs is the delay before the first reconnect
	// attempt after a failure.
	ReconnectIntervalMs uint16
	// ReconnectMaxMs caps the exponential backoff delay.
	ReconnectMaxMs uint16

	// HeartbeatIntervalMs and HeartbeatRetries are reserved for future
	// link-monitoring support; the supervisor accepts and stores them
	// but does not yet act on them.
	HeartbeatIntervalMs uint16
	HeartbeatRetries    uint8

	// MaxReconnectAttempts caps the number of reconnect attempts before
	// the supervisor gives up and enters Error. Zero means unlimited.
	MaxReconnectAttempts uint8

	// ForceUncompressedTX disables BNEP header compression on the TX
	// path even when both addresses are compressible, matching
	// TINYPAN_ENABLE_COMPRESSION=0 in the original firmware build.
	ForceUncompressedTX bool
}

// DefaultConfig returns a Config with the same defaults the original
// firmware ships: a 1s initial reconnect delay capped at 30s, a 15s
// heartbeat interval (reserved), 3 heartbeat retries (reserved), and
// unlimited reconnect attempts.
func DefaultConfig(remote bnep.BDAddr) Config {
	return Config{
		RemoteAddr:           remote,
		ReconnectIntervalMs:  1000,
		ReconnectMaxMs:       30000,
		HeartbeatIntervalMs:  15000,
		HeartbeatRetries:     3,
		MaxReconnectAttempts: 0,
	}
}

// Protocol-level sizes and timing constants that are fixed at build
// time rather than configured per connection.
const (
	// MaxFrameSize is the largest Ethernet payload TinyPAN will bridge.
	MaxFrameSize = 1500

	// L2CAPMTU is the L2CAP MTU BNEP requires at minimum.
	L2CAPMTU = 1691

	// RxBufferSize is the capacity of the SLIP-mode RX byte ring that
	// holds inbound serial bytes until they are handed to the IP stack.
	RxBufferSize = 1700

	// BNEPPSM is the well-known L2CAP PSM for BNEP.
	BNEPPSM = 0x000F

	// L2CAPConnectTimeoutMs bounds how long the supervisor waits for an
	// L2CAP CONNECTED/CONNECT_FAILED event.
	L2CAPConnectTimeoutMs = 10000

	// BNEPSetupTimeoutMs bounds how long the supervisor waits for a
	// setup response before retrying.
	BNEPSetupTimeoutMs = 5000

	// BNEPSetupRetries is the number of setup request retries allowed
	// before the supervisor gives up and reconnects.
	BNEPSetupRetries = 3

	// DHCPTimeoutMs is observational only: the supervisor does not
	// abort DHCP on expiry, the IP stack keeps retrying on its own.
	DHCPTimeoutMs = 30000

	// DefaultTxQueueLen is the TX queue depth a Facade uses when
	// Params.QueueCapacity is left zero. The original firmware's ring
	// holds 16 slots with one held back to disambiguate full from
	// empty; netif.TxQueue tracks its count explicitly instead, so all
	// 16 slots here are usable.
	DefaultTxQueueLen = 16
)

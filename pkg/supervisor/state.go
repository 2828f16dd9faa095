// Package supervisor drives the top-level connection state machine: it
// owns the L2CAP connect/reconnect lifecycle, the BNEP handshake retry
// policy, and the handoff into and out of the DHCP/Online states.
package supervisor

// State is the top-level connection state, mirroring tinypan_state_t.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateBnepSetup
	StateDhcp
	StateOnline
	StateStalled
	StateReconnecting
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateBnepSetup:
		return "BnepSetup"
	case StateDhcp:
		return "Dhcp"
	case StateOnline:
		return "Online"
	case StateStalled:
		return "Stalled"
	case StateReconnecting:
		return "Reconnecting"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// L2CAPEvent is a transport-level event the HAL reports to the
// supervisor.
type L2CAPEvent int

const (
	L2CAPConnected L2CAPEvent = iota
	L2CAPDisconnected
	L2CAPConnectFailed
	L2CAPCanSendNow
)

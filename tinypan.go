// Package tinypan bridges an Ethernet-speaking BNEP PAN profile over a
// Bluetooth Classic L2CAP channel, onto either a real IP stack (via the
// netif.Stack interface) or a serial SLIP link. It is the top-level
// import for callers who do not need the subpackages directly.
//
// The actual implementation lives in pkg/facade, pkg/bnep, pkg/supervisor,
// pkg/netif, and pkg/hal; this file re-exports the handful of types and
// constants a typical caller needs without walking the package tree.
package tinypan

import (
	"github.com/Akhil-Chaturvedi/TinyPAN/internal/config"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/bnep"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/facade"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/hal"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/netif"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/supervisor"
)

// Re-export the types a caller constructs or stores.
type (
	Facade = facade.Facade
	Params = facade.Params
	Event  = facade.Event
	IPInfo = facade.IPInfo

	Config = config.Config

	BDAddr = bnep.BDAddr

	Mode = netif.Mode

	BluetoothHAL = hal.BluetoothHAL

	State = supervisor.State
)

// New constructs an uninitialized Facade. Call Init before Start.
var New = facade.New

// DefaultConfig returns the original firmware's default tunables for a
// connection to remote.
var DefaultConfig = config.DefaultConfig

// Event values.
const (
	EventStateChanged = facade.EventStateChanged
	EventConnected    = facade.EventConnected
	EventDisconnected = facade.EventDisconnected
	EventIPAcquired   = facade.EventIPAcquired
	EventIPLost       = facade.EventIPLost
)

// Link mode values.
const (
	ModeEthernet = netif.ModeEthernet
	ModeSLIP     = netif.ModeSLIP
)

// Supervisor state values, exposed for callers inspecting Facade.State().
const (
	StateIdle         = supervisor.StateIdle
	StateConnecting   = supervisor.StateConnecting
	StateBnepSetup    = supervisor.StateBnepSetup
	StateDhcp         = supervisor.StateDhcp
	StateOnline       = supervisor.StateOnline
	StateStalled      = supervisor.StateStalled
	StateReconnecting = supervisor.StateReconnecting
	StateError        = supervisor.StateError
)

// Error values exposed in the public API.
var (
	ErrNotInitialized     = facade.ErrNotInitialized
	ErrAlreadyInitialized = facade.ErrAlreadyInitialized
	ErrNoIP               = facade.ErrNoIP
)

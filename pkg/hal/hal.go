// Package hal defines the hardware abstraction the supervisor and BNEP
// channel are driven through: a non-blocking L2CAP connection with
// event and receive callbacks, matching the capability boundary the
// original firmware HAL exposed to its portable core.
package hal

import "github.com/Akhil-Chaturvedi/TinyPAN/pkg/bnep"

// Event is an asynchronous L2CAP connection lifecycle notification
// delivered through a registered EventCallback.
type Event int

const (
	EventConnected Event = iota
	EventDisconnected
	EventConnectFailed
	EventCanSendNow
)

func (e Event) String() string {
	switch e {
	case EventConnected:
		return "Connected"
	case EventDisconnected:
		return "Disconnected"
	case EventConnectFailed:
		return "ConnectFailed"
	case EventCanSendNow:
		return "CanSendNow"
	default:
		return "Unknown"
	}
}

// RecvCallback is invoked with each inbound L2CAP payload as it
// arrives. The slice is only valid for the duration of the call.
type RecvCallback func(data []byte)

// EventCallback is invoked for each connection lifecycle event; status
// carries an implementation-defined error code for ConnectFailed and
// Disconnected, zero otherwise.
type EventCallback func(event Event, status int)

// BluetoothHAL is the capability boundary a transport implementation
// (mock, BlueZ, or any other backend) exposes to the supervisor and
// BNEP channel. It is never called from more than one goroutine at a
// time: the pump that owns the supervisor drives it exclusively.
type BluetoothHAL interface {
	// Init brings the adapter up and discovers the local address.
	Init() error
	// Deinit tears down any open connection and releases adapter state.
	Deinit()

	// Connect initiates an L2CAP connection to remote on psm. It
	// returns once the attempt has been initiated, not once it
	// completes; completion is reported through the EventCallback.
	Connect(remote bnep.BDAddr, psm uint16) error
	// Disconnect closes any open or in-progress L2CAP connection.
	Disconnect()

	// Send attempts a non-blocking write of data. It returns
	// busy=true, err=nil if the transport cannot accept the write right
	// now; the caller is expected to wait for EventCanSendNow.
	Send(data []byte) (busy bool, err error)
	// RequestCanSendNow asks to be notified via EventCanSendNow once
	// the transport can accept a write again.
	RequestCanSendNow()

	// LocalAddr returns the adapter's own Bluetooth address.
	LocalAddr() bnep.BDAddr

	// RegisterRecvCallback sets the callback invoked for each inbound
	// payload. Passing nil disables delivery.
	RegisterRecvCallback(cb RecvCallback)
	// RegisterEventCallback sets the callback invoked for connection
	// lifecycle events. Passing nil disables delivery.
	RegisterEventCallback(cb EventCallback)

	// Poll drives any I/O multiplexing the implementation needs (socket
	// readiness, simulated ticks) and delivers any callbacks that
	// became due. Implementations that deliver callbacks synchronously
	// from Connect/Send may leave this a no-op.
	Poll() error
}

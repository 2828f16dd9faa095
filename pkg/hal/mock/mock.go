// Package mock implements hal.BluetoothHAL entirely in memory, for
// exercising the supervisor and facade without real Bluetooth hardware.
// Test code drives it directly through its Simulate* methods rather
// than through a real radio.
package mock

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/bnep"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/hal"
)

// ErrNotInitialized is returned by calls made before Init.
var ErrNotInitialized = errors.New("mock: hal not initialized")

// HAL is an in-memory hal.BluetoothHAL. Its zero value is not usable;
// construct with New.
type HAL struct {
	initialized bool
	connected   bool
	canSend     bool

	local bnep.BDAddr

	recvCB  hal.RecvCallback
	eventCB hal.EventCallback

	lastTX []byte

	log *zap.Logger
}

// New creates a mock HAL with local address addr. canSend starts true,
// matching a freshly connected, idle transport.
func New(addr bnep.BDAddr, log *zap.Logger) *HAL {
	if log == nil {
		log = zap.NewNop()
	}
	return &HAL{local: addr, canSend: true, log: log}
}

// Init implements hal.BluetoothHAL.
func (h *HAL) Init() error {
	h.log.Info("mock hal initializing")
	h.initialized = true
	h.connected = false
	h.canSend = true
	return nil
}

// Deinit implements hal.BluetoothHAL.
func (h *HAL) Deinit() {
	h.log.Info("mock hal de-initializing")
	h.initialized = false
	h.connected = false
	h.recvCB = nil
	h.eventCB = nil
}

// Connect implements hal.BluetoothHAL. It does not connect
// automatically: test code must call SimulateConnectSuccess or
// SimulateConnectFailure.
func (h *HAL) Connect(remote bnep.BDAddr, psm uint16) error {
	if !h.initialized {
		return ErrNotInitialized
	}
	h.log.Info("mock hal l2cap connect", zap.Stringer("remote", remote), zap.Uint16("psm", psm))
	return nil
}

// Disconnect implements hal.BluetoothHAL.
func (h *HAL) Disconnect() {
	if !h.initialized {
		return
	}
	h.log.Info("mock hal l2cap disconnect")
	h.connected = false
}

// Send implements hal.BluetoothHAL.
func (h *HAL) Send(data []byte) (bool, error) {
	if !h.initialized {
		return false, ErrNotInitialized
	}
	if !h.connected {
		h.log.Warn("mock hal send while not connected")
		return false, errors.New("mock: not connected")
	}
	if !h.canSend {
		return true, nil
	}
	h.lastTX = append(h.lastTX[:0], data...)
	return false, nil
}

// RequestCanSendNow implements hal.BluetoothHAL. In the mock, if
// sending is already allowed, the event fires immediately.
func (h *HAL) RequestCanSendNow() {
	if h.canSend && h.eventCB != nil {
		h.eventCB(hal.EventCanSendNow, 0)
	}
}

// LocalAddr implements hal.BluetoothHAL.
func (h *HAL) LocalAddr() bnep.BDAddr {
	return h.local
}

// RegisterRecvCallback implements hal.BluetoothHAL.
func (h *HAL) RegisterRecvCallback(cb hal.RecvCallback) {
	h.recvCB = cb
}

// RegisterEventCallback implements hal.BluetoothHAL.
func (h *HAL) RegisterEventCallback(cb hal.EventCallback) {
	h.eventCB = cb
}

// Poll implements hal.BluetoothHAL. The mock delivers every callback
// synchronously, so Poll is a no-op.
func (h *HAL) Poll() error {
	return nil
}

// SimulateConnectSuccess fires EventConnected as if the remote device
// accepted the L2CAP connection.
func (h *HAL) SimulateConnectSuccess() {
	if !h.initialized {
		return
	}
	h.connected = true
	h.log.Debug("mock hal simulating connect success")
	if h.eventCB != nil {
		h.eventCB(hal.EventConnected, 0)
	}
}

// SimulateConnectFailure fires EventConnectFailed with status.
func (h *HAL) SimulateConnectFailure(status int) {
	if !h.initialized {
		return
	}
	h.connected = false
	h.log.Debug("mock hal simulating connect failure", zap.Int("status", status))
	if h.eventCB != nil {
		h.eventCB(hal.EventConnectFailed, status)
	}
}

// SimulateDisconnect fires EventDisconnected as if the remote device
// dropped the connection.
func (h *HAL) SimulateDisconnect() {
	if !h.initialized {
		return
	}
	h.connected = false
	h.log.Debug("mock hal simulating disconnect")
	if h.eventCB != nil {
		h.eventCB(hal.EventDisconnected, 0)
	}
}

// SimulateReceive delivers data to the registered RecvCallback as if
// it arrived from the remote device.
func (h *HAL) SimulateReceive(data []byte) {
	if !h.initialized || !h.connected {
		return
	}
	if len(data) == 0 {
		return
	}
	h.log.Debug("mock hal simulating receive", zap.Int("len", len(data)))
	if h.recvCB != nil {
		h.recvCB(data)
	}
}

// SimulateBnepSetupSuccess delivers a canned BNEP setup-response
// success packet, a convenience for supervisor-level tests.
func (h *HAL) SimulateBnepSetupSuccess() {
	h.SimulateReceive([]byte{0x01, 0x02, 0x00, 0x00})
}

// SetCanSend toggles whether Send reports busy. Setting it true fires
// EventCanSendNow if an event callback is registered.
func (h *HAL) SetCanSend(canSend bool) {
	h.canSend = canSend
	if canSend && h.eventCB != nil {
		h.eventCB(hal.EventCanSendNow, 0)
	}
}

// IsConnected reports whether the mock currently considers itself
// connected.
func (h *HAL) IsConnected() bool {
	return h.connected
}

// LastTX returns the most recently accepted send payload.
func (h *HAL) LastTX() []byte {
	return h.lastTX
}

package hal

import "github.com/Akhil-Chaturvedi/TinyPAN/pkg/bnep"

// Adapter wraps a BluetoothHAL to satisfy the narrower bnep.Sender and
// supervisor.Radio capability interfaces, so the same backend can be
// handed to both without either package importing this one.
type Adapter struct {
	HAL BluetoothHAL
}

// Send implements bnep.Sender.
func (a Adapter) Send(data []byte) (bool, error) {
	return a.HAL.Send(data)
}

// RequestCanSendNow implements bnep.Sender.
func (a Adapter) RequestCanSendNow() {
	a.HAL.RequestCanSendNow()
}

// Connect implements supervisor.Radio. mtu is accepted for interface
// compatibility; the L2CAP MTU is negotiated by the BNEP setup
// handshake itself, not the socket connect call.
func (a Adapter) Connect(remote bnep.BDAddr, psm, _ uint16) error {
	return a.HAL.Connect(remote, psm)
}

// Disconnect implements supervisor.Radio.
func (a Adapter) Disconnect() {
	a.HAL.Disconnect()
}

// Package stub provides a minimal Stack implementation that tracks link
// state and address acquisition without driving a real IP stack. It
// exists for callers that need netif.Bridge wired up before a full
// TCP/IP backend is integrated, and for facade-level tests.
package stub

import (
	"go.uber.org/zap"

	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/bnep"
)

// IPInfo holds the addresses a DHCP lease (or static assignment) would
// populate; all fields are zero until SetIPInfo is called.
type IPInfo struct {
	Address net4
	Gateway net4
	Netmask net4
}

// net4 is a dotted IPv4 address stored in network byte order.
type net4 [4]byte

// HasIP reports whether a non-zero address has been assigned.
func (i IPInfo) HasIP() bool {
	return i.Address != net4{}
}

// Stack is a no-op netif.Stack: it records the last inbound frame and
// the current link/IP state for inspection, and logs everything else.
type Stack struct {
	Up   bool
	Info IPInfo

	LastEthernet []byte
	LastSerial   []byte

	log *zap.Logger
}

// New creates a stub stack. A nil logger defaults to zap.NewNop().
func New(log *zap.Logger) *Stack {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stack{log: log}
}

// EthernetInput records the inbound frame for inspection.
func (s *Stack) EthernetInput(dst, src bnep.EtherAddr, ethertype bnep.EtherType, payload []byte) {
	s.LastEthernet = append(s.LastEthernet[:0], payload...)
	s.log.Debug("ethernet input",
		zap.Stringer("dst", dst), zap.Stringer("src", src),
		zap.Uint16("ethertype", uint16(ethertype)), zap.Int("len", len(payload)))
}

// SerialInput records the drained SLIP payload for inspection.
func (s *Stack) SerialInput(data []byte) {
	s.LastSerial = append(s.LastSerial[:0], data...)
	s.log.Debug("serial input", zap.Int("len", len(data)))
}

// LinkSetUp records the link carrier state.
func (s *Stack) LinkSetUp(up bool) {
	s.Up = up
	if !up {
		s.Info = IPInfo{}
	}
	s.log.Debug("link set up", zap.Bool("up", up))
}

// SetIPInfo simulates a completed DHCP lease (or static address push)
// for tests driving the supervisor's OnIPAcquired path.
func (s *Stack) SetIPInfo(addr, gateway, netmask [4]byte) {
	s.Info = IPInfo{Address: addr, Gateway: gateway, Netmask: netmask}
}

// ClearIPInfo simulates lease loss.
func (s *Stack) ClearIPInfo() {
	s.Info = IPInfo{}
}

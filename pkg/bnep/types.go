// Package bnep implements the Bluetooth Network Encapsulation Protocol
// codec and the client-side (PANU) connection state machine that rides
// on top of an L2CAP channel.
package bnep

import "fmt"

// BDAddr is a Bluetooth device address; equality only, no ordering.
type BDAddr [6]byte

// String renders the address in colon-separated hex, most-significant
// byte first.
func (a BDAddr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// EtherAddr is a 6-byte MAC address as seen on the BNEP Ethernet bridge.
type EtherAddr [6]byte

// String renders the address in colon-separated hex, most-significant
// byte first.
func (a EtherAddr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// LocalEtherAddr derives the bridge's own MAC from the radio's BDAddr by
// setting the locally-administered bit and clearing the multicast bit,
// per the IEEE 802 addressing rules BNEP borrows for its PANU side.
func LocalEtherAddr(addr BDAddr) EtherAddr {
	var e EtherAddr
	copy(e[:], addr[:])
	e[0] |= 0x02
	e[0] &^= 0x01
	return e
}

// PacketType identifies the BNEP wire packet variants, carried in the low
// 7 bits of the first header byte.
type PacketType uint8

const (
	PacketGeneralEthernet    PacketType = 0x00
	PacketControl            PacketType = 0x01
	PacketCompressedEthernet PacketType = 0x02
	PacketCompressedSrcOnly  PacketType = 0x03
	PacketCompressedDstOnly  PacketType = 0x04
)

const (
	typeMask    = 0x7F
	extHdrFlag  = 0x80
)

// ControlType identifies a BNEP control message.
type ControlType uint8

const (
	ControlCommandNotUnderstood  ControlType = 0x00
	ControlSetupRequest          ControlType = 0x01
	ControlSetupResponse         ControlType = 0x02
	ControlFilterNetTypeSet      ControlType = 0x03
	ControlFilterNetTypeResponse ControlType = 0x04
	ControlFilterMultiAddrSet    ControlType = 0x05
	ControlFilterMultiAddrResp   ControlType = 0x06
)

// SetupResponseCode is the status code carried in a BNEP setup response or
// filter response control message.
type SetupResponseCode uint16

const (
	SetupSuccess     SetupResponseCode = 0x0000
	SetupInvalidDst  SetupResponseCode = 0x0001
	SetupInvalidSrc  SetupResponseCode = 0x0002
	SetupInvalidSvc  SetupResponseCode = 0x0003
	SetupNotAllowed  SetupResponseCode = 0x0004
	FilterUnsupported SetupResponseCode = 0x0001
)

// ServiceUUID is a 16-bit PAN profile service class UUID.
type ServiceUUID uint16

const (
	ServicePANU ServiceUUID = 0x1115
	ServiceNAP  ServiceUUID = 0x1116
	ServiceGN   ServiceUUID = 0x1117
)

// EtherType identifies the network-layer protocol carried in an Ethernet
// frame bridged over BNEP.
type EtherType uint16

const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeARP  EtherType = 0x0806
	EtherTypeIPv6 EtherType = 0x86DD
)

// EthernetFrame is a parsed BNEP data packet, a zero-copy view over the
// buffer it was parsed from.
type EthernetFrame struct {
	Dst       EtherAddr
	Src       EtherAddr
	EtherType EtherType
	Payload   []byte
}

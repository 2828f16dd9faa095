// Package dhcpsim builds and recognizes minimal DHCP packets, with an
// optional bare IPv4/UDP wrapping (BNEP framing is left to the caller),
// standing in for a real DHCP server in
// scenario S6 end-to-end tests: the facade's DHCP handoff can be
// exercised without a real network stack or server.
package dhcpsim

import (
	"encoding/binary"
)

const (
	opRequest      = 1
	opReply        = 2
	htypeEthernet  = 1
	optMessageType = 53
	optServerID    = 54
	optLeaseTime   = 51
	optSubnetMask  = 1
	optRouter      = 3
	optDNS         = 6
	optRequestedIP = 50
	optEnd         = 255

	serverPort = 67
	clientPort = 68
)

var magicCookie = [4]byte{0x63, 0x82, 0x53, 0x63}

// Config is the simulated network a test server hands out.
type Config struct {
	ClientIP   [4]byte
	ServerIP   [4]byte
	GatewayIP  [4]byte
	Netmask    [4]byte
	DNSIP      [4]byte
	LeaseTimeS uint32
	ServerMAC  [6]byte
}

// DefaultConfig mirrors the original test harness's 192.168.44.0/24
// network.
func DefaultConfig() Config {
	return Config{
		ClientIP:   [4]byte{192, 168, 44, 2},
		ServerIP:   [4]byte{192, 168, 44, 1},
		GatewayIP:  [4]byte{192, 168, 44, 1},
		Netmask:    [4]byte{255, 255, 255, 0},
		DNSIP:      [4]byte{8, 8, 8, 8},
		LeaseTimeS: 86400,
		ServerMAC:  [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
	}
}

func buildMessage(cfg Config, xid uint32, clientMAC [6]byte, msgType byte) []byte {
	buf := make([]byte, 240)

	buf[0] = opReply
	buf[1] = htypeEthernet
	buf[2] = 6

	binary.BigEndian.PutUint32(buf[4:8], xid)
	copy(buf[16:20], cfg.ClientIP[:])
	copy(buf[20:24], cfg.ServerIP[:])
	copy(buf[28:44], clientMAC[:])

	copy(buf[236:240], magicCookie[:])

	buf = append(buf, optMessageType, 1, msgType)
	buf = append(buf, optServerID, 4)
	buf = append(buf, cfg.ServerIP[:]...)
	buf = append(buf, optLeaseTime, 4)
	var leaseBytes [4]byte
	binary.BigEndian.PutUint32(leaseBytes[:], cfg.LeaseTimeS)
	buf = append(buf, leaseBytes[:]...)
	buf = append(buf, optSubnetMask, 4)
	buf = append(buf, cfg.Netmask[:]...)
	buf = append(buf, optRouter, 4)
	buf = append(buf, cfg.GatewayIP[:]...)
	buf = append(buf, optDNS, 4)
	buf = append(buf, cfg.DNSIP[:]...)
	buf = append(buf, optEnd)

	return buf
}

// BuildOffer builds a minimal DHCPOFFER message body (no IP/UDP/BNEP
// framing) in reply to xid for the given client MAC.
func BuildOffer(cfg Config, xid uint32, clientMAC [6]byte) []byte {
	return buildMessage(cfg, xid, clientMAC, byte(Offer))
}

// BuildAck builds a minimal DHCPACK message body.
func BuildAck(cfg Config, xid uint32, clientMAC [6]byte) []byte {
	return buildMessage(cfg, xid, clientMAC, byte(Ack))
}

// BuildDiscover builds a minimal DHCPDISCOVER message body, standing in
// for the client-side message a real IP stack's DHCP client would send
// to open the DORA exchange.
func BuildDiscover(xid uint32, clientMAC [6]byte) []byte {
	buf := make([]byte, 240)

	buf[0] = opRequest
	buf[1] = htypeEthernet
	buf[2] = 6

	binary.BigEndian.PutUint32(buf[4:8], xid)
	copy(buf[28:34], clientMAC[:])

	copy(buf[236:240], magicCookie[:])

	buf = append(buf, optMessageType, 1, byte(Discover))
	buf = append(buf, optEnd)

	return buf
}

// BuildRequest builds a minimal DHCPREQUEST message body, accepting the
// offer by echoing the requested IP and server identifier back to the
// server.
func BuildRequest(cfg Config, xid uint32, clientMAC [6]byte) []byte {
	buf := make([]byte, 240)

	buf[0] = opRequest
	buf[1] = htypeEthernet
	buf[2] = 6

	binary.BigEndian.PutUint32(buf[4:8], xid)
	copy(buf[28:34], clientMAC[:])

	copy(buf[236:240], magicCookie[:])

	buf = append(buf, optMessageType, 1, byte(Request))
	buf = append(buf, optRequestedIP, 4)
	buf = append(buf, cfg.ClientIP[:]...)
	buf = append(buf, optServerID, 4)
	buf = append(buf, cfg.ServerIP[:]...)
	buf = append(buf, optEnd)

	return buf
}

// BuildIPv4UDP wraps a DHCP message body in a bare IPv4/UDP header
// pair (20+8 bytes), matching the minimal framing a BNEP Ethernet
// frame's payload carries; srcIP/dstIP are in the byte order of Config
// fields (i.e. dotted-quad order, not network-word order).
func BuildIPv4UDP(srcIP, dstIP [4]byte, dhcp []byte) []byte {
	out := make([]byte, 28+len(dhcp))

	out[0] = 0x45
	binary.BigEndian.PutUint16(out[2:4], uint16(20+8+len(dhcp)))
	out[8] = 64
	out[9] = 17 // UDP
	copy(out[12:16], srcIP[:])
	copy(out[16:20], dstIP[:])
	binary.BigEndian.PutUint16(out[10:12], ipv4Checksum(out[0:20]))

	binary.BigEndian.PutUint16(out[20:22], serverPort)
	binary.BigEndian.PutUint16(out[22:24], clientPort)
	binary.BigEndian.PutUint16(out[24:26], uint16(8+len(dhcp)))
	copy(out[28:], dhcp)

	return out
}

func ipv4Checksum(hdr []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(hdr); i += 2 {
		sum += uint32(hdr[i])<<8 | uint32(hdr[i+1])
	}
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return ^uint16(sum)
}

// MessageType is a DHCP option 53 value recognized by IsMessageType.
type MessageType byte

const (
	Discover MessageType = 1
	Offer    MessageType = 2
	Request  MessageType = 3
	Ack      MessageType = 5
)

// IsMessageType inspects a bare DHCP message body (as produced by
// stripping BNEP/IP/UDP framing) and reports whether its option 53
// matches want, along with the transaction ID and client MAC.
func IsMessageType(dhcp []byte, want MessageType) (xid uint32, clientMAC [6]byte, ok bool) {
	if len(dhcp) < 240 {
		return 0, clientMAC, false
	}
	if [4]byte(dhcp[236:240]) != magicCookie {
		return 0, clientMAC, false
	}
	xid = binary.BigEndian.Uint32(dhcp[4:8])
	copy(clientMAC[:], dhcp[28:34])

	opts := dhcp[240:]
	for i := 0; i+1 < len(opts); {
		optType := opts[i]
		if optType == optEnd {
			break
		}
		if optType == 0 {
			i++
			continue
		}
		optLen := int(opts[i+1])
		if optType == optMessageType && optLen >= 1 && i+2 < len(opts) {
			return xid, clientMAC, MessageType(opts[i+2]) == want
		}
		i += 2 + optLen
	}
	return xid, clientMAC, false
}

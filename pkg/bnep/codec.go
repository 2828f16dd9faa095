package bnep

import "encoding/binary"

// Header is the outcome of parsing just the fixed portion of a BNEP
// packet: its type, whether an extension header chain follows, and the
// length of the fixed header that precedes it.
type Header struct {
	Type      PacketType
	HasExt    bool
	HeaderLen int
}

// BuildSetupRequest encodes a BNEP setup connection request:
//
//	byte 0:   PacketControl, no extension
//	byte 1:   ControlSetupRequest
//	byte 2:   UUID size, always 2 (16-bit UUIDs)
//	byte 3-4: destination service UUID, big-endian
//	byte 5-6: source service UUID, big-endian
func BuildSetupRequest(buf []byte, srcUUID, dstUUID ServiceUUID) (int, error) {
	const size = 7
	if len(buf) < size {
		return 0, ErrBufferTooSmall
	}
	buf[0] = byte(PacketControl)
	buf[1] = byte(ControlSetupRequest)
	buf[2] = 0x02
	binary.BigEndian.PutUint16(buf[3:], uint16(dstUUID))
	binary.BigEndian.PutUint16(buf[5:], uint16(srcUUID))
	return size, nil
}

// BuildSetupResponse encodes a BNEP setup connection response:
//
//	byte 0:   PacketControl, no extension
//	byte 1:   ControlSetupResponse
//	byte 2-3: response code, big-endian
func BuildSetupResponse(buf []byte, code SetupResponseCode) (int, error) {
	const size = 4
	if len(buf) < size {
		return 0, ErrBufferTooSmall
	}
	buf[0] = byte(PacketControl)
	buf[1] = byte(ControlSetupResponse)
	binary.BigEndian.PutUint16(buf[2:], uint16(code))
	return size, nil
}

// BuildFilterResponse encodes a filter-set response control message of
// the given control type (FilterNetTypeResponse or FilterMultiAddrResp)
// carrying the given status code.
func BuildFilterResponse(buf []byte, respType ControlType, code SetupResponseCode) (int, error) {
	const size = 4
	if len(buf) < size {
		return 0, ErrBufferTooSmall
	}
	buf[0] = byte(PacketControl)
	buf[1] = byte(respType)
	binary.BigEndian.PutUint16(buf[2:], uint16(code))
	return size, nil
}

// BuildCommandNotUnderstood encodes a reply to an unrecognized control
// message, echoing the offending control tag.
func BuildCommandNotUnderstood(buf []byte, offendingTag ControlType) (int, error) {
	const size = 3
	if len(buf) < size {
		return 0, ErrBufferTooSmall
	}
	buf[0] = byte(PacketControl)
	buf[1] = byte(ControlCommandNotUnderstood)
	buf[2] = byte(offendingTag)
	return size, nil
}

// BuildGeneralEthernet encodes a general Ethernet data packet carrying
// both addresses in full:
//
//	byte 0:     PacketGeneralEthernet, no extension
//	byte 1-6:   destination address
//	byte 7-12:  source address
//	byte 13-14: ethertype, big-endian
//	byte 15+:   payload
func BuildGeneralEthernet(buf []byte, dst, src EtherAddr, ethertype EtherType, payload []byte) (int, error) {
	const headerLen = 15
	size := headerLen + len(payload)
	if len(buf) < size {
		return 0, ErrBufferTooSmall
	}
	buf[0] = byte(PacketGeneralEthernet)
	copy(buf[1:7], dst[:])
	copy(buf[7:13], src[:])
	binary.BigEndian.PutUint16(buf[13:15], uint16(ethertype))
	copy(buf[headerLen:size], payload)
	return size, nil
}

// BuildCompressedEthernet encodes a compressed Ethernet data packet that
// omits both addresses, relying on the channel's known local/remote pair:
//
//	byte 0:   PacketCompressedEthernet, no extension
//	byte 1-2: ethertype, big-endian
//	byte 3+:  payload
func BuildCompressedEthernet(buf []byte, ethertype EtherType, payload []byte) (int, error) {
	const headerLen = 3
	size := headerLen + len(payload)
	if len(buf) < size {
		return 0, ErrBufferTooSmall
	}
	buf[0] = byte(PacketCompressedEthernet)
	binary.BigEndian.PutUint16(buf[1:3], uint16(ethertype))
	copy(buf[headerLen:size], payload)
	return size, nil
}

// HeaderLenFor returns the BNEP header size a data packet type uses
// before any extension header chain, or 0 if typ is not a recognized
// packet type.
func HeaderLenFor(typ PacketType) int {
	switch typ {
	case PacketGeneralEthernet:
		return 15
	case PacketControl:
		return 2
	case PacketCompressedEthernet:
		return 3
	case PacketCompressedSrcOnly, PacketCompressedDstOnly:
		return 9
	default:
		return 0
	}
}

// ParseHeader inspects the first byte of data and reports the packet
// type, whether an extension header chain follows, and the length of
// the fixed header preceding any such chain.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < 1 {
		return Header{}, ErrTooShort
	}
	first := data[0]
	typ := PacketType(first & typeMask)
	headerLen := HeaderLenFor(typ)
	if headerLen == 0 {
		return Header{}, ErrUnknownType
	}
	if len(data) < headerLen {
		return Header{}, ErrTooShort
	}
	return Header{
		Type:      typ,
		HasExt:    first&extHdrFlag != 0,
		HeaderLen: headerLen,
	}, nil
}

// skipExtensions walks the chain of (tag, len) extension headers that
// may follow a BNEP fixed header, returning the offset of the first
// byte after the chain. Each tag's MSB indicates another extension
// follows.
func skipExtensions(data []byte, offset int, hasExt bool) (int, error) {
	for hasExt {
		if offset+2 > len(data) {
			return 0, ErrExtensionOverrun
		}
		tag := data[offset]
		extLen := int(data[offset+1])
		hasExt = tag&extHdrFlag != 0
		offset += 2 + extLen
	}
	if offset > len(data) {
		return 0, ErrExtensionOverrun
	}
	return offset, nil
}

// ParseEthernetFrame parses a BNEP data packet into an EthernetFrame.
// The payload field is a zero-copy view into data. local and remote
// supply the addresses a compressed packet variant omits from the
// wire.
func ParseEthernetFrame(data []byte, local, remote EtherAddr) (EthernetFrame, error) {
	hdr, err := ParseHeader(data)
	if err != nil {
		return EthernetFrame{}, err
	}

	offset, err := skipExtensions(data, hdr.HeaderLen, hdr.HasExt)
	if err != nil {
		return EthernetFrame{}, err
	}

	var frame EthernetFrame
	switch hdr.Type {
	case PacketGeneralEthernet:
		copy(frame.Dst[:], data[1:7])
		copy(frame.Src[:], data[7:13])
		frame.EtherType = EtherType(binary.BigEndian.Uint16(data[13:15]))
	case PacketCompressedEthernet:
		frame.Dst = local
		frame.Src = remote
		frame.EtherType = EtherType(binary.BigEndian.Uint16(data[1:3]))
	case PacketCompressedSrcOnly:
		frame.Dst = local
		copy(frame.Src[:], data[1:7])
		frame.EtherType = EtherType(binary.BigEndian.Uint16(data[7:9]))
	case PacketCompressedDstOnly:
		copy(frame.Dst[:], data[1:7])
		frame.Src = remote
		frame.EtherType = EtherType(binary.BigEndian.Uint16(data[7:9]))
	default:
		return EthernetFrame{}, ErrUnknownType
	}

	frame.Payload = data[offset:]
	return frame, nil
}

// ParseSetupResponse parses a setup response control message body,
// starting at the control type byte (i.e. data[0] must be
// ControlSetupResponse).
func ParseSetupResponse(data []byte) (SetupResponseCode, error) {
	if len(data) < 3 {
		return 0, ErrTooShort
	}
	if ControlType(data[0]) != ControlSetupResponse {
		return 0, ErrBadControlTag
	}
	return SetupResponseCode(binary.BigEndian.Uint16(data[1:3])), nil
}

package bnep

import "errors"

var (
	// ErrBufferTooSmall is returned by a builder when the destination
	// buffer cannot hold the packet being constructed.
	ErrBufferTooSmall = errors.New("bnep: destination buffer too small")

	// ErrTooShort is returned by a parser when the source buffer is
	// truncated relative to the header it claims to carry.
	ErrTooShort = errors.New("bnep: packet too short")

	// ErrUnknownType is returned when the low 7 bits of the first byte
	// do not match a known packet type.
	ErrUnknownType = errors.New("bnep: unknown packet type")

	// ErrBadControlTag is returned when a control packet's tag byte
	// does not match what the caller expected to parse.
	ErrBadControlTag = errors.New("bnep: unexpected control tag")

	// ErrExtensionOverrun is returned when an extension header chain
	// claims more bytes than the packet actually carries.
	ErrExtensionOverrun = errors.New("bnep: extension header chain overruns packet")
)

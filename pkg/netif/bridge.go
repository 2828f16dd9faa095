// Package netif bridges the BNEP/Ethernet and SLIP transports to an IP
// stack collaborator: it owns the outbound TX queue, the BNEP header
// fast/slow paths, and the inbound frame delivery that feeds the
// stack's Ethernet or serial input.
package netif

import (
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/Akhil-Chaturvedi/TinyPAN/internal/config"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/bnep"
)

// Mode selects the bridge's transport. The two modes are a tagged
// variant rather than separate polymorphic implementations, so the hot
// Ethernet fast path stays allocation-free and inlinable.
type Mode int

const (
	ModeEthernet Mode = iota
	ModeSLIP
)

// HeaderReserve is the headroom an outbound buffer passed to LinkOutput
// must reserve before its 14-byte Ethernet header, sized for the
// largest BNEP header the bridge can write in place.
const HeaderReserve = 15

const ethernetHeaderLen = 14

// Stack is the IP-stack collaborator the bridge delivers inbound data
// and link state changes to.
type Stack interface {
	EthernetInput(dst, src bnep.EtherAddr, ethertype bnep.EtherType, payload []byte)
	SerialInput(data []byte)
	LinkSetUp(up bool)
}

// Bridge owns the TX queue and dispatches outbound/inbound traffic
// according to Mode. It holds no locks: it is driven exclusively by
// the single-threaded pump that owns it.
type Bridge struct {
	mode   Mode
	sender bnep.Sender
	ch  *bnep.Channel
	stack  Stack

	local, remote     bnep.EtherAddr
	forceUncompressed bool

	queue *TxQueue
	// busy tracks whether the last send attempt reported backpressure;
	// it gates the Ethernet fast path until a can-send-now event or a
	// successful drain clears it.
	busy bool

	rx *RxByteRing

	log *zap.Logger
}

// NewBridge creates a Bridge in the given Mode with a queue able to
// hold queueCap frames.
func NewBridge(mode Mode, channel *bnep.Channel, sender bnep.Sender, stack Stack, local, remote bnep.EtherAddr, forceUncompressed bool, queueCap int, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		mode:              mode,
		sender:            sender,
		ch:             channel,
		stack:             stack,
		local:             local,
		remote:            remote,
		forceUncompressed: forceUncompressed,
		queue:             NewTxQueue(queueCap),
		rx:                NewRxByteRing(config.RxBufferSize),
		log:               log,
	}
}

func (b *Bridge) headerLenFor(dst, src bnep.EtherAddr) int {
	if !b.forceUncompressed && dst == b.remote && src == b.local {
		return 3
	}
	return 15
}

// LinkOutput sends an outbound Ethernet-shaped frame. buf must be laid
// out as HeaderReserve bytes of reserved headroom, followed by a
// 14-byte Ethernet header, followed by the payload; LinkOutput may
// write into the headroom and the header region in place.
func (b *Bridge) LinkOutput(buf []byte) error {
	if b.mode != ModeEthernet {
		return ErrNotConnected
	}
	if b.ch.State() != bnep.ChannelConnected {
		return ErrNotConnected
	}
	if len(buf) < HeaderReserve+ethernetHeaderLen {
		return ErrBadArgument
	}

	ethHdr := buf[HeaderReserve : HeaderReserve+ethernetHeaderLen]
	var dst, src bnep.EtherAddr
	copy(dst[:], ethHdr[0:6])
	copy(src[:], ethHdr[6:12])
	ethertype := bnep.EtherType(binary.BigEndian.Uint16(ethHdr[12:14]))

	headerLen := b.headerLenFor(dst, src)

	fastPathEligible := !b.busy && b.queue.Empty()
	if fastPathEligible {
		return b.sendFastPath(buf, dst, src, ethertype, headerLen)
	}
	return b.sendSlowPath(buf[HeaderReserve+ethernetHeaderLen:], dst, src, ethertype, headerLen)
}

// sendFastPath writes the BNEP header directly into the caller's
// buffer, reusing the space vacated by stripping the 14-byte Ethernet
// header, and submits the result with zero extra copies. If the HAL
// reports busy exactly at send time, the in-place buffer is cloned
// into a queued TxSlot instead of being lost.
func (b *Bridge) sendFastPath(buf []byte, dst, src bnep.EtherAddr, ethertype bnep.EtherType, headerLen int) error {
	frameStart := HeaderReserve + ethernetHeaderLen - headerLen
	var err error
	if headerLen == 3 {
		_, err = bnep.BuildCompressedEthernet(buf[frameStart:], ethertype, nil)
	} else {
		_, err = bnep.BuildGeneralEthernet(buf[frameStart:frameStart+15], dst, src, ethertype, nil)
	}
	if err != nil {
		return err
	}
	frame := buf[frameStart:]

	busy, sendErr := b.sender.Send(frame)
	if sendErr != nil {
		b.log.Error("failed to send ethernet frame", zap.Error(sendErr))
		return sendErr
	}
	if busy {
		b.busy = true
		b.sender.RequestCanSendNow()
		if err := b.queue.Push(frame); err != nil {
			b.log.Warn("tx queue full, dropping frame on fast-path race")
			return err
		}
	}
	return nil
}

// sendSlowPath copies payload into a fresh TxSlot with the chosen BNEP
// header and enqueues it.
func (b *Bridge) sendSlowPath(payload []byte, dst, src bnep.EtherAddr, ethertype bnep.EtherType, headerLen int) error {
	var hdr [15]byte
	var n int
	var err error
	if headerLen == 3 {
		n, err = bnep.BuildCompressedEthernet(hdr[:], ethertype, nil)
	} else {
		n, err = bnep.BuildGeneralEthernet(hdr[:], dst, src, ethertype, nil)
	}
	if err != nil {
		return err
	}

	frame := make([]byte, n+len(payload))
	copy(frame, hdr[:n])
	copy(frame[n:], payload)

	if err := b.queue.Push(frame); err != nil {
		b.log.Warn("tx queue full, dropping frame")
		return err
	}
	return nil
}

// SendSLIP enqueues a fully SLIP-encoded byte sequence for transmission
// exactly as produced by the IP stack's serial emitter.
func (b *Bridge) SendSLIP(encoded []byte) error {
	if b.mode != ModeSLIP {
		return ErrNotConnected
	}
	if b.busy || !b.queue.Empty() {
		return b.queue.Push(encoded)
	}
	busy, err := b.sender.Send(encoded)
	if err != nil {
		return err
	}
	if busy {
		b.busy = true
		b.sender.RequestCanSendNow()
		return b.queue.Push(encoded)
	}
	return nil
}

// DrainTxQueue flushes queued frames in FIFO order after the BNEP
// channel's own pending control slot (drained separately by the
// supervisor) has already been cleared. It stops on the first busy
// result, re-arming a can-send-now request, or drops one slot and
// continues past a hard error.
func (b *Bridge) DrainTxQueue() {
	for !b.queue.Empty() {
		slot := b.queue.Peek()
		busy, err := b.sender.Send(slot.Bytes())
		if err != nil {
			b.log.Error("failed to drain tx slot, dropping", zap.Error(err))
			b.queue.Pop()
			continue
		}
		if busy {
			b.sender.RequestCanSendNow()
			return
		}
		b.queue.Pop()
	}
	b.busy = false
}

// HandleInboundEthernet delivers a BNEP data packet, already parsed by
// the channel, to the IP stack as an Ethernet-shaped view.
func (b *Bridge) HandleInboundEthernet(frame bnep.EthernetFrame) {
	b.stack.EthernetInput(frame.Dst, frame.Src, frame.EtherType, frame.Payload)
}

// HandleInboundSerial enqueues raw bytes received in SLIP mode into the
// RX ring, then drains the ring and hands its bytes to the IP stack's
// SerialInput.
func (b *Bridge) HandleInboundSerial(data []byte) {
	if b.mode != ModeSLIP {
		return
	}
	b.rx.Write(data)
	b.stack.SerialInput(b.rx.Drain())
}

// LinkSetUp propagates a link carrier change to the IP stack.
func (b *Bridge) LinkSetUp(up bool) {
	if !up {
		b.queue.Reset()
		b.busy = false
	}
	b.stack.LinkSetUp(up)
}

// Reset flushes the TX queue and RX ring, releasing every slot, as
// part of the supervisor's stop/cancellation path.
func (b *Bridge) Reset() {
	b.queue.Reset()
	b.rx.Reset()
	b.busy = false
}

// QueueLen reports the number of frames currently queued for
// transmission; exposed for the invariant that the queue is empty
// after stop.
func (b *Bridge) QueueLen() int {
	return b.queue.Len()
}

package bnep

import "go.uber.org/zap"

// ChannelState is the BNEP connection state as seen from the PANU side.
type ChannelState int

const (
	ChannelClosed ChannelState = iota
	ChannelWaitForConnectionResponse
	ChannelConnected
)

func (s ChannelState) String() string {
	switch s {
	case ChannelClosed:
		return "Closed"
	case ChannelWaitForConnectionResponse:
		return "WaitForConnectionResponse"
	case ChannelConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// Sender is the minimal capability the channel needs from its transport
// to emit control traffic: try to send, and if busy, ask to be notified
// once the transport can accept more.
type Sender interface {
	Send(data []byte) (busy bool, err error)
	RequestCanSendNow()
}

const pendingControlCap = 16

// Channel drives the BNEP setup handshake and dispatches inbound control
// and data packets. It holds no locks: it is driven exclusively by the
// single-threaded pump that owns it.
type Channel struct {
	state  ChannelState
	local  EtherAddr
	remote EtherAddr

	pendingControl    [pendingControlCap]byte
	pendingControlLen int

	// OnSetupResponse is invoked once a setup response control frame is
	// parsed, with the response code it carried.
	OnSetupResponse func(code SetupResponseCode)
	// OnInboundFrame is invoked for a data frame once the channel is
	// Connected. The frame is a zero-copy view into the buffer passed
	// to HandleIncoming, valid only for the duration of that call.
	OnInboundFrame func(frame EthernetFrame)
	// OnStateChange is invoked whenever the channel's state changes.
	OnStateChange func(new ChannelState)

	log *zap.Logger
}

// NewChannel creates a Channel for the given local/remote Ethernet
// addresses. log may be nil, in which case the channel is silent.
func NewChannel(local, remote EtherAddr, log *zap.Logger) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	return &Channel{
		state:  ChannelClosed,
		local:  local,
		remote: remote,
		log:    log,
	}
}

// State returns the channel's current state.
func (c *Channel) State() ChannelState {
	return c.state
}

func (c *Channel) setState(s ChannelState) {
	if c.state == s {
		return
	}
	c.log.Debug("bnep state change", zap.Stringer("from", c.state), zap.Stringer("to", s))
	c.state = s
	if c.OnStateChange != nil {
		c.OnStateChange(s)
	}
}

// Reset returns the channel to Closed without emitting a setup request.
func (c *Channel) Reset() {
	c.pendingControlLen = 0
	c.setState(ChannelClosed)
}

// OnL2CAPConnected transitions the channel to WaitForConnectionResponse
// and emits a setup request (PANU source, NAP destination).
func (c *Channel) OnL2CAPConnected(sender Sender) {
	c.setState(ChannelWaitForConnectionResponse)
	c.SendSetupRequest(sender)
}

// OnL2CAPDisconnected resets the channel to Closed.
func (c *Channel) OnL2CAPDisconnected() {
	c.setState(ChannelClosed)
}

// SendSetupRequest builds and attempts to send a setup request. The
// setup request is never queued in PendingControlSlot: the supervisor
// is responsible for re-sending it on timeout, so a lost request simply
// lets the retry timer fire again.
func (c *Channel) SendSetupRequest(sender Sender) error {
	var buf [7]byte
	n, err := BuildSetupRequest(buf[:], ServicePANU, ServiceNAP)
	if err != nil {
		return err
	}
	c.log.Debug("sending bnep setup request")
	busy, err := sender.Send(buf[:n])
	if err != nil {
		return err
	}
	if busy {
		sender.RequestCanSendNow()
	}
	return nil
}

// sendOrQueueControl attempts to send a control packet; on backpressure
// it arms PendingControlSlot and asks for a can-send-now notification.
func (c *Channel) sendOrQueueControl(sender Sender, packet []byte) error {
	busy, err := sender.Send(packet)
	if err != nil {
		return err
	}
	if busy {
		c.log.Debug("l2cap busy, queuing bnep control packet")
		if len(packet) <= len(c.pendingControl) {
			copy(c.pendingControl[:], packet)
			c.pendingControlLen = len(packet)
		}
		sender.RequestCanSendNow()
	}
	return nil
}

// DrainPendingControl attempts to flush PendingControlSlot. It has
// strictly higher priority than the data TX queue: callers must drain
// this first and skip data draining entirely if it remains non-empty.
func (c *Channel) DrainPendingControl(sender Sender) (drained bool) {
	if c.pendingControlLen == 0 {
		return true
	}
	busy, err := sender.Send(c.pendingControl[:c.pendingControlLen])
	if err != nil {
		c.log.Warn("failed to drain pending bnep control packet", zap.Error(err))
		c.pendingControlLen = 0
		return true
	}
	if busy {
		sender.RequestCanSendNow()
		return false
	}
	c.pendingControlLen = 0
	return true
}

// HandleIncoming parses a raw BNEP packet and dispatches it: control
// packets are handled inline (including any reply), data packets are
// handed to OnInboundFrame once the channel is Connected.
func (c *Channel) HandleIncoming(data []byte, sender Sender) {
	hdr, err := ParseHeader(data)
	if err != nil {
		c.log.Warn("failed to parse bnep header", zap.Error(err))
		return
	}

	if hdr.Type == PacketControl {
		c.handleControl(data, sender)
		return
	}

	c.handleEthernetFrame(data, sender)
}

func (c *Channel) handleControl(data []byte, sender Sender) {
	if len(data) < 2 {
		c.log.Warn("bnep control packet too short")
		return
	}
	controlType := ControlType(data[1])

	switch controlType {
	case ControlSetupRequest:
		c.log.Debug("received bnep setup request, replying not allowed")
		var buf [4]byte
		n, _ := BuildSetupResponse(buf[:], SetupNotAllowed)
		_ = c.sendOrQueueControl(sender, buf[:n])

	case ControlSetupResponse:
		if c.state != ChannelWaitForConnectionResponse {
			c.log.Warn("unexpected bnep setup response", zap.Stringer("state", c.state))
			return
		}
		code, err := ParseSetupResponse(data[1:])
		if err != nil {
			c.log.Error("failed to parse bnep setup response", zap.Error(err))
			return
		}
		c.log.Info("bnep setup response", zap.Uint16("code", uint16(code)))
		if code == SetupSuccess {
			c.setState(ChannelConnected)
		}
		if c.OnSetupResponse != nil {
			c.OnSetupResponse(code)
		}

	case ControlFilterNetTypeSet, ControlFilterMultiAddrSet:
		c.log.Debug("received filter set request, responding unsupported")
		respType := ControlFilterNetTypeResponse
		if controlType == ControlFilterMultiAddrSet {
			respType = ControlFilterMultiAddrResp
		}
		var buf [4]byte
		n, _ := BuildFilterResponse(buf[:], respType, FilterUnsupported)
		_ = c.sendOrQueueControl(sender, buf[:n])

	case ControlCommandNotUnderstood:
		c.log.Warn("remote did not understand our command")

	default:
		c.log.Warn("unknown bnep control type", zap.Uint8("type", uint8(controlType)))
		var buf [3]byte
		n, _ := BuildCommandNotUnderstood(buf[:], controlType)
		_ = c.sendOrQueueControl(sender, buf[:n])
	}
}

func (c *Channel) handleEthernetFrame(data []byte, _ Sender) {
	if c.state != ChannelConnected {
		c.log.Warn("received data frame while not connected")
		return
	}
	frame, err := ParseEthernetFrame(data, c.local, c.remote)
	if err != nil {
		c.log.Warn("failed to parse bnep ethernet frame", zap.Error(err))
		return
	}
	c.log.Debug("received bnep frame",
		zap.Uint16("ethertype", uint16(frame.EtherType)),
		zap.Int("len", len(frame.Payload)))
	if c.OnInboundFrame != nil {
		c.OnInboundFrame(frame)
	}
}

// HeaderLenFor returns the header length BNEP would use to send a frame
// between dst and src, given the channel's local/remote pair: 3 bytes
// if both addresses can be compressed away, 15 otherwise.
func (c *Channel) HeaderLenFor(dst, src EtherAddr) int {
	if dst == c.remote && src == c.local {
		return 3
	}
	return 15
}

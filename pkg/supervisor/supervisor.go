package supervisor

import (
	"go.uber.org/zap"

	"github.com/Akhil-Chaturvedi/TinyPAN/internal/config"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/bnep"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/tick"
)

// Radio is the L2CAP connection-management capability the supervisor
// needs from the HAL: everything else (sending data) flows through the
// bnep.Sender the channel already holds.
type Radio interface {
	Connect(remote bnep.BDAddr, psm, mtu uint16) error
	Disconnect()
}

const maxUint32 = ^uint32(0)

// Supervisor drives the connection lifecycle described by State: L2CAP
// connect, BNEP handshake, DHCP handoff, and reconnect-with-backoff. It
// holds no locks and must be driven exclusively from the single-threaded
// pump that also drives Channel and the netif bridge.
type Supervisor struct {
	state State
	cfg   config.Config
	hasIP bool

	channel *bnep.Channel
	radio   Radio
	sender  bnep.Sender

	stateEnterTime   uint32
	lastActionTime   uint32
	reconnectDelayMs uint32
	reconnectAttempts uint8
	setupRetries      uint8

	lastReportedState State

	// OnStateChange fires once per observed state transition (edge
	// triggered), matching the original's StateChanged dispatch.
	OnStateChange func(State)
	// LinkSetUp notifies the netif bridge that the link carrier state
	// changed, so it can bring the bridge up or down.
	LinkSetUp func(up bool)
	// StartDHCP is invoked whenever the supervisor enters Dhcp, whether
	// from a fresh handshake or after losing an IP while Online.
	StartDHCP func() error
	// DrainTxQueue is invoked when the HAL reports it can send again,
	// after the channel's own pending control slot has been drained.
	DrainTxQueue func()

	log *zap.Logger
}

// New creates a Supervisor in Idle state.
func New(cfg config.Config, channel *bnep.Channel, radio Radio, sender bnep.Sender, log *zap.Logger) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{
		cfg:     cfg,
		channel: channel,
		radio:   radio,
		sender:  sender,
		log:     log,
	}
}

func (s *Supervisor) setState(now uint32, ns State) {
	if s.state == ns {
		return
	}
	s.log.Info("supervisor state change", zap.Stringer("from", s.state), zap.Stringer("to", ns))
	s.state = ns
	s.stateEnterTime = now
}

// dispatchStateChanged fires OnStateChange if the state observed now
// differs from the last one reported, per the edge-triggered contract.
func (s *Supervisor) dispatchStateChanged() {
	if s.state == s.lastReportedState {
		return
	}
	s.lastReportedState = s.state
	if s.OnStateChange != nil {
		s.OnStateChange(s.state)
	}
}

func (s *Supervisor) timeoutElapsed(now uint32, timeoutMs uint32) bool {
	return tick.HasElapsed(now, s.stateEnterTime, timeoutMs)
}

func (s *Supervisor) startL2CAPConnect() error {
	s.log.Info("connecting", zap.Binary("remote", s.cfg.RemoteAddr[:]))
	return s.radio.Connect(s.cfg.RemoteAddr, config.BNEPPSM, config.L2CAPMTU)
}

// scheduleReconnect advances the exponential backoff delay and records
// the anchor the Reconnecting timeout is measured from.
func (s *Supervisor) scheduleReconnect(now uint32) {
	if s.reconnectDelayMs == 0 {
		s.reconnectDelayMs = uint32(s.cfg.ReconnectIntervalMs)
	} else {
		s.reconnectDelayMs *= 2
		if max := uint32(s.cfg.ReconnectMaxMs); s.reconnectDelayMs > max {
			s.reconnectDelayMs = max
		}
	}
	s.log.Info("reconnect scheduled", zap.Uint32("delay_ms", s.reconnectDelayMs),
		zap.Uint8("attempt", s.reconnectAttempts+1))
	s.lastActionTime = now
}

// State returns the current top-level state.
func (s *Supervisor) State() State {
	return s.state
}

// IsOnline reports whether the connection is online: a function of
// state and hasIP only, never of transient substate.
func (s *Supervisor) IsOnline() bool {
	return s.state == StateOnline && s.hasIP
}

// Start begins connecting from Idle or Error, resetting reconnect and
// setup retry counters.
func (s *Supervisor) Start(now uint32) error {
	if s.state != StateIdle && s.state != StateError {
		return ErrAlreadyStarted
	}
	s.reconnectDelayMs = 0
	s.reconnectAttempts = 0
	s.setupRetries = 0

	s.setState(now, StateConnecting)
	if err := s.startL2CAPConnect(); err != nil {
		s.log.Error("failed to start l2cap connect", zap.Error(err))
		s.setState(now, StateError)
		s.dispatchStateChanged()
		return err
	}
	s.dispatchStateChanged()
	return nil
}

// Stop tears the connection down and returns to Idle unconditionally.
func (s *Supervisor) Stop(now uint32) {
	s.log.Info("supervisor stopping")
	if s.state != StateIdle {
		s.radio.Disconnect()
		s.channel.Reset()
	}
	s.hasIP = false
	s.setState(now, StateIdle)
	s.reconnectDelayMs = 0
	s.reconnectAttempts = 0
	s.dispatchStateChanged()
}

// Process advances timeout-driven transitions for the current state. It
// must be called at least as often as NextTimeoutMs indicates.
func (s *Supervisor) Process(now uint32) {
	switch s.state {
	case StateConnecting:
		if s.timeoutElapsed(now, config.L2CAPConnectTimeoutMs) {
			s.log.Warn("l2cap connect timeout")
			s.radio.Disconnect()
			s.setState(now, StateReconnecting)
			s.scheduleReconnect(now)
		}

	case StateBnepSetup:
		if s.timeoutElapsed(now, config.BNEPSetupTimeoutMs) {
			s.log.Warn("bnep setup timeout")
			if s.setupRetries < config.BNEPSetupRetries {
				s.setupRetries++
				s.log.Info("retrying bnep setup", zap.Uint8("attempt", s.setupRetries+1))
				s.stateEnterTime = now
				_ = s.channel.SendSetupRequest(s.sender)
			} else {
				s.log.Error("bnep setup failed after retries", zap.Uint8("retries", config.BNEPSetupRetries))
				s.radio.Disconnect()
				s.setState(now, StateReconnecting)
				s.scheduleReconnect(now)
			}
		}

	case StateDhcp:
		if s.timeoutElapsed(now, config.DHCPTimeoutMs) {
			s.log.Warn("dhcp timeout, ip stack keeps retrying on its own")
		}

	case StateReconnecting:
		if tick.HasElapsed(now, s.lastActionTime, s.reconnectDelayMs) {
			if s.cfg.MaxReconnectAttempts > 0 && s.reconnectAttempts >= s.cfg.MaxReconnectAttempts {
				s.log.Error("max reconnect attempts reached")
				s.setState(now, StateError)
			} else {
				s.reconnectAttempts++
				s.log.Info("reconnecting", zap.Uint8("attempt", s.reconnectAttempts))
				s.setState(now, StateConnecting)
				s.setupRetries = 0
				if err := s.startL2CAPConnect(); err != nil {
					s.log.Error("reconnect failed", zap.Error(err))
					s.setState(now, StateReconnecting)
					s.scheduleReconnect(now)
				}
			}
		}

	case StateIdle, StateOnline, StateStalled, StateError:
		// no timeout-driven work
	}

	s.dispatchStateChanged()
}

// OnL2CAPEvent handles a transport-level event reported by the HAL.
func (s *Supervisor) OnL2CAPEvent(now uint32, event L2CAPEvent) {
	switch event {
	case L2CAPConnected:
		s.log.Info("l2cap connected")
		if s.state == StateConnecting {
			s.setState(now, StateBnepSetup)
			s.setupRetries = 0
			s.channel.OnL2CAPConnected(s.sender)
		}

	case L2CAPDisconnected:
		s.log.Info("l2cap disconnected")
		s.channel.OnL2CAPDisconnected()
		switch s.state {
		case StateOnline, StateDhcp, StateBnepSetup:
			s.hasIP = false
			s.setState(now, StateReconnecting)
			s.scheduleReconnect(now)
		case StateConnecting:
			s.setState(now, StateReconnecting)
			s.scheduleReconnect(now)
		}

	case L2CAPConnectFailed:
		s.log.Error("l2cap connect failed")
		s.setState(now, StateReconnecting)
		s.scheduleReconnect(now)

	case L2CAPCanSendNow:
		s.log.Debug("l2cap can send now")
		if drained := s.channel.DrainPendingControl(s.sender); drained && s.DrainTxQueue != nil {
			s.DrainTxQueue()
		}
	}

	s.dispatchStateChanged()
}

// OnBnepSetupResponse reacts to the BNEP channel's setup handshake
// outcome: success moves to Dhcp and brings the link/DHCP client up,
// anything else schedules a reconnect.
func (s *Supervisor) OnBnepSetupResponse(now uint32, code bnep.SetupResponseCode) {
	if code == bnep.SetupSuccess {
		s.log.Info("bnep setup successful")
		s.setState(now, StateDhcp)
		s.reconnectDelayMs = 0
		s.reconnectAttempts = 0

		if s.LinkSetUp != nil {
			s.LinkSetUp(true)
		}
		if s.StartDHCP != nil {
			if err := s.StartDHCP(); err != nil {
				s.log.Error("failed to start dhcp", zap.Error(err))
				s.radio.Disconnect()
				s.setState(now, StateReconnecting)
				s.scheduleReconnect(now)
			}
		}
	} else {
		s.log.Error("bnep setup rejected", zap.Uint16("code", uint16(code)))
		s.radio.Disconnect()
		s.setState(now, StateReconnecting)
		s.scheduleReconnect(now)
	}
	s.dispatchStateChanged()
}

// OnIPAcquired moves the supervisor to Online once the netif bridge
// reports a lease.
func (s *Supervisor) OnIPAcquired(now uint32) {
	s.log.Info("ip acquired, online")
	s.hasIP = true
	s.setState(now, StateOnline)
	s.dispatchStateChanged()
}

// OnIPLost drops back to Dhcp and restarts the lease if the connection
// was previously Online.
func (s *Supervisor) OnIPLost(now uint32) {
	s.log.Warn("ip lost")
	s.hasIP = false
	if s.state == StateOnline {
		s.setState(now, StateDhcp)
		if s.StartDHCP != nil {
			if err := s.StartDHCP(); err != nil {
				s.log.Warn("failed to restart dhcp", zap.Error(err))
			}
		}
	}
	s.dispatchStateChanged()
}

// NextTimeoutMs returns how many milliseconds may elapse before Process
// must run again to observe the current state's timeout, or
// ^uint32(0) in states with no active timeout.
func (s *Supervisor) NextTimeoutMs(now uint32) uint32 {
	var targetTimeout, baseTime uint32
	baseTime = s.stateEnterTime

	switch s.state {
	case StateConnecting:
		targetTimeout = config.L2CAPConnectTimeoutMs
	case StateBnepSetup:
		targetTimeout = config.BNEPSetupTimeoutMs
	case StateDhcp:
		targetTimeout = config.DHCPTimeoutMs
	case StateReconnecting:
		targetTimeout = s.reconnectDelayMs
		baseTime = s.lastActionTime
	default:
		return maxUint32
	}

	elapsed := tick.Elapsed(now, baseTime)
	if elapsed >= targetTimeout {
		return 0
	}
	return targetTimeout - elapsed
}

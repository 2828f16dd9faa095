// Package facade wires a hal.BluetoothHAL, the BNEP channel, the
// connection supervisor, and the netif bridge into the single
// top-level object an application drives: Init once, Start/Stop the
// connection, and Process on a timer sized by NextTimeoutMs.
package facade

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Akhil-Chaturvedi/TinyPAN/internal/config"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/bnep"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/hal"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/netif"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/supervisor"
)

// Event is a top-level notification an application subscribes to via
// OnEvent, mirroring the original library's tinypan_event_t.
type Event int

const (
	EventStateChanged Event = iota
	EventConnected
	EventDisconnected
	EventIPAcquired
	EventIPLost
)

func (e Event) String() string {
	switch e {
	case EventStateChanged:
		return "StateChanged"
	case EventConnected:
		return "Connected"
	case EventDisconnected:
		return "Disconnected"
	case EventIPAcquired:
		return "IPAcquired"
	case EventIPLost:
		return "IPLost"
	default:
		return "Unknown"
	}
}

// ErrNotInitialized is returned by Start before Init; Stop and Process
// do nothing before Init.
var ErrNotInitialized = errors.New("facade: not initialized")

// ErrAlreadyInitialized is returned by a second Init call.
var ErrAlreadyInitialized = errors.New("facade: already initialized")

// IPInfo mirrors a completed DHCP lease (or a statically pushed
// address in SLIP mode): all-zero until SetIPInfo is called.
type IPInfo struct {
	Address [4]byte
	Netmask [4]byte
	Gateway [4]byte
	DNS     [4]byte
}

// Facade is the single entry point an application holds. It owns no
// goroutines: every method must be called from the same thread, and
// Process must be called at least as often as NextTimeoutMs reports.
type Facade struct {
	cfg  config.Config
	mode netif.Mode

	hal     hal.BluetoothHAL
	channel *bnep.Channel
	sv      *supervisor.Supervisor
	bridge  *netif.Bridge
	stack   netif.Stack

	initialized bool
	now         uint32

	hasIP  bool
	ipInfo IPInfo

	lastReportedState supervisor.State

	// sessionID tags every log line the facade itself emits during one
	// Start/Stop connection cycle, so a grep across overlapping reconnect
	// attempts in the same process's log stream can separate them. The
	// channel, supervisor, and bridge keep the logger they were given at
	// Init and are not tagged.
	sessionID string

	// OnEvent is invoked for every top-level event; it may be nil.
	OnEvent func(Event)
	// StartDHCP is invoked whenever the connection reaches the point a
	// DHCP lease should be (re-)acquired. The default is a no-op,
	// matching a build with no IP stack wired in; a caller integrating
	// a real DHCP client overrides it and drives SetIPInfo/ClearIPInfo
	// from its lease callback.
	StartDHCP func() error

	// baseLog is the logger passed to New, kept untagged so each Start
	// can derive a fresh session-scoped logger from it.
	baseLog *zap.Logger
	log     *zap.Logger
}

// Params collects the collaborators Init needs beyond Config.
type Params struct {
	HAL   hal.BluetoothHAL
	Stack netif.Stack
	Mode  netif.Mode
	// QueueCapacity sizes the netif bridge's TX queue; zero defaults to
	// config.DefaultTxQueueLen.
	QueueCapacity int
	Log           *zap.Logger
}

// New creates an uninitialized Facade. Call Init before Start.
func New(log *zap.Logger) *Facade {
	if log == nil {
		log = zap.NewNop()
	}
	return &Facade{log: log, baseLog: log, lastReportedState: supervisor.StateIdle}
}

func (f *Facade) dispatch(e Event) {
	if f.OnEvent != nil {
		f.OnEvent(e)
	}
}

func (f *Facade) dispatchStateChangedIfNeeded() {
	cur := f.sv.State()
	if cur == f.lastReportedState {
		return
	}
	f.lastReportedState = cur
	f.dispatch(EventStateChanged)
}

// Init brings the HAL up and wires the channel, supervisor, and netif
// bridge together. It must be called exactly once before Start.
func (f *Facade) Init(cfg config.Config, p Params) error {
	if f.initialized {
		return ErrAlreadyInitialized
	}
	if p.HAL == nil || p.Stack == nil {
		return errors.New("facade: HAL and Stack are required")
	}

	f.log.Info("facade initializing")

	if err := p.HAL.Init(); err != nil {
		f.log.Error("hal init failed", zap.Error(err))
		return err
	}

	f.cfg = cfg
	f.mode = p.Mode
	f.hal = p.HAL
	f.stack = p.Stack

	local := bnep.LocalEtherAddr(p.HAL.LocalAddr())
	remote := bnep.LocalEtherAddr(cfg.RemoteAddr)

	f.channel = bnep.NewChannel(local, remote, f.log)
	adapter := hal.Adapter{HAL: p.HAL}

	queueCap := p.QueueCapacity
	if queueCap == 0 {
		queueCap = config.DefaultTxQueueLen
	}
	f.bridge = netif.NewBridge(p.Mode, f.channel, adapter, p.Stack, local, remote, cfg.ForceUncompressedTX, queueCap, f.log)

	f.sv = supervisor.New(cfg, f.channel, adapter, adapter, f.log)
	f.sv.LinkSetUp = f.bridge.LinkSetUp
	f.sv.DrainTxQueue = f.bridge.DrainTxQueue
	f.sv.StartDHCP = func() error {
		if f.StartDHCP != nil {
			return f.StartDHCP()
		}
		return nil
	}

	f.channel.OnInboundFrame = f.bridge.HandleInboundEthernet
	f.channel.OnSetupResponse = func(code bnep.SetupResponseCode) {
		f.sv.OnBnepSetupResponse(f.now, code)
	}

	p.HAL.RegisterRecvCallback(func(data []byte) {
		if p.Mode == netif.ModeSLIP {
			f.bridge.HandleInboundSerial(data)
			return
		}
		f.channel.HandleIncoming(data, adapter)
		f.dispatchStateChangedIfNeeded()
	})
	p.HAL.RegisterEventCallback(func(e hal.Event, status int) {
		switch e {
		case hal.EventConnected:
			f.sv.OnL2CAPEvent(f.now, supervisor.L2CAPConnected)
			f.dispatch(EventConnected)
		case hal.EventDisconnected:
			f.sv.OnL2CAPEvent(f.now, supervisor.L2CAPDisconnected)
		case hal.EventConnectFailed:
			f.sv.OnL2CAPEvent(f.now, supervisor.L2CAPConnectFailed)
		case hal.EventCanSendNow:
			f.sv.OnL2CAPEvent(f.now, supervisor.L2CAPCanSendNow)
		}
		f.dispatchStateChangedIfNeeded()
	})

	f.lastReportedState = f.sv.State()
	f.initialized = true
	f.log.Info("facade initialized")
	return nil
}

// Start begins the connection sequence.
func (f *Facade) Start(now uint32) error {
	if !f.initialized {
		return ErrNotInitialized
	}
	f.now = now
	f.sessionID = uuid.NewString()
	f.log = f.baseLog.With(zap.String("session", f.sessionID))
	f.log.Info("facade starting")
	if err := f.sv.Start(now); err != nil {
		return err
	}
	f.dispatchStateChangedIfNeeded()
	return nil
}

// Stop disconnects and returns to Idle unconditionally. It is safe to
// call even if Start was never called.
func (f *Facade) Stop(now uint32) {
	if !f.initialized {
		return
	}
	f.now = now
	f.log.Info("facade stopping")

	previouslyIdle := f.sv.State() == supervisor.StateIdle
	f.sv.Stop(now)
	f.bridge.LinkSetUp(false)
	f.bridge.Reset()

	f.hasIP = false
	f.ipInfo = IPInfo{}

	f.dispatchStateChangedIfNeeded()
	if !previouslyIdle {
		f.dispatch(EventDisconnected)
	}
}

// Process drives timeout-based state transitions and any HAL I/O
// multiplexing. It must be called at least as often as NextTimeoutMs
// reports.
func (f *Facade) Process(now uint32) {
	if !f.initialized {
		return
	}
	f.now = now
	if err := f.hal.Poll(); err != nil {
		f.log.Warn("hal poll error", zap.Error(err))
	}
	f.sv.Process(now)
	f.dispatchStateChangedIfNeeded()
}

// NextTimeoutMs reports how long the caller may sleep before Process
// must run again to observe a pending state-machine timeout.
func (f *Facade) NextTimeoutMs(now uint32) uint32 {
	if !f.initialized {
		return ^uint32(0)
	}
	return f.sv.NextTimeoutMs(now)
}

// State returns the current top-level connection state.
func (f *Facade) State() supervisor.State {
	if !f.initialized {
		return supervisor.StateIdle
	}
	return f.sv.State()
}

// IsOnline reports whether the connection is fully up: BNEP connected
// and an IP address acquired.
func (f *Facade) IsOnline() bool {
	return f.initialized && f.sv.IsOnline() && f.hasIP
}

// ErrNoIP is returned by GetIPInfo before an address has been
// acquired.
var ErrNoIP = errors.New("facade: no ip address")

// GetIPInfo returns the currently held IP lease, or ErrNoIP if none.
func (f *Facade) GetIPInfo() (IPInfo, error) {
	if !f.hasIP {
		return IPInfo{}, ErrNoIP
	}
	return f.ipInfo, nil
}

// SetIPInfo records a completed DHCP lease (or pushed static address)
// and moves the supervisor to Online. Call from the IP stack's lease
// callback.
func (f *Facade) SetIPInfo(info IPInfo) {
	if !f.initialized {
		return
	}
	f.ipInfo = info
	f.hasIP = true
	f.sv.OnIPAcquired(f.now)
	f.dispatchStateChangedIfNeeded()
	f.dispatch(EventIPAcquired)
}

// ClearIPInfo drops the current lease. Call from the IP stack's lease
// expiry/loss callback.
func (f *Facade) ClearIPInfo() {
	if !f.initialized {
		return
	}
	f.hasIP = false
	f.ipInfo = IPInfo{}
	f.sv.OnIPLost(f.now)
	f.dispatchStateChangedIfNeeded()
	f.dispatch(EventIPLost)
}

// Bridge returns the netif bridge, for callers that need LinkOutput or
// SendSLIP on the outbound path.
func (f *Facade) Bridge() *netif.Bridge {
	return f.bridge
}

// Deinit stops the connection and releases the HAL.
func (f *Facade) Deinit() {
	if !f.initialized {
		return
	}
	f.log.Info("facade de-initializing")
	f.Stop(f.now)
	f.hal.Deinit()
	f.initialized = false
	f.OnEvent = nil
	f.lastReportedState = supervisor.StateIdle
}

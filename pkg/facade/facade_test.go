package facade

import (
	"encoding/binary"
	"testing"

	"github.com/Akhil-Chaturvedi/TinyPAN/internal/config"
	"github.com/Akhil-Chaturvedi/TinyPAN/internal/dhcpsim"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/bnep"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/hal/mock"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/netif"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/netif/stub"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/supervisor"
)

// buildGeneralEthernetFrame lays out a BNEP general-Ethernet packet
// (type 0x00, uncompressed addresses) as the mock HAL would deliver it
// from the remote peer.
func buildGeneralEthernetFrame(dst, src bnep.EtherAddr, ethertype uint16, payload []byte) []byte {
	buf := make([]byte, 1+6+6+2+len(payload))
	buf[0] = byte(bnep.PacketGeneralEthernet)
	copy(buf[1:7], dst[:])
	copy(buf[7:13], src[:])
	binary.BigEndian.PutUint16(buf[13:15], ethertype)
	copy(buf[15:], payload)
	return buf
}

// buildOutboundBuf lays out a LinkOutput-ready buffer: HeaderReserve
// bytes of headroom, a 14-byte Ethernet header, then payload.
func buildOutboundBuf(dst, src bnep.EtherAddr, ethertype uint16, payload []byte) []byte {
	const ethernetHeaderLen = 14
	buf := make([]byte, netif.HeaderReserve+ethernetHeaderLen+len(payload))
	hdr := buf[netif.HeaderReserve : netif.HeaderReserve+ethernetHeaderLen]
	copy(hdr[0:6], dst[:])
	copy(hdr[6:12], src[:])
	binary.BigEndian.PutUint16(hdr[12:14], ethertype)
	copy(buf[netif.HeaderReserve+ethernetHeaderLen:], payload)
	return buf
}

func newTestFacade(t *testing.T, cfg config.Config) (*Facade, *mock.HAL, *stub.Stack) {
	t.Helper()
	h := mock.New(bnep.BDAddr{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}, nil)
	stk := stub.New(nil)
	f := New(nil)
	if err := f.Init(cfg, Params{HAL: h, Stack: stk, Mode: netif.ModeEthernet}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return f, h, stk
}

func TestFacadeHappyPathToOnline_S1(t *testing.T) {
	cfg := config.DefaultConfig(bnep.BDAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF})
	f, h, _ := newTestFacade(t, cfg)

	var events []Event
	f.OnEvent = func(e Event) { events = append(events, e) }

	if err := f.Start(0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if f.State() != supervisor.StateConnecting {
		t.Fatalf("state = %v, want Connecting", f.State())
	}

	h.SimulateConnectSuccess()
	if f.State() != supervisor.StateBnepSetup {
		t.Fatalf("state = %v, want BnepSetup", f.State())
	}

	h.SimulateBnepSetupSuccess()
	if f.State() != supervisor.StateDhcp {
		t.Fatalf("state = %v, want Dhcp", f.State())
	}

	f.SetIPInfo(IPInfo{Address: [4]byte{192, 168, 1, 50}})
	if f.State() != supervisor.StateOnline || !f.IsOnline() {
		t.Fatalf("state = %v, IsOnline=%v, want Online/true", f.State(), f.IsOnline())
	}

	info, err := f.GetIPInfo()
	if err != nil || info.Address != [4]byte{192, 168, 1, 50} {
		t.Fatalf("GetIPInfo() = %v, %v", info, err)
	}

	wantEvents := []Event{EventStateChanged, EventConnected, EventStateChanged, EventStateChanged, EventStateChanged, EventIPAcquired}
	if len(events) != len(wantEvents) {
		t.Fatalf("events = %v, want %v", events, wantEvents)
	}
}

func TestFacadeStopIsUnconditional(t *testing.T) {
	cfg := config.DefaultConfig(bnep.BDAddr{})
	f, h, stk := newTestFacade(t, cfg)

	_ = f.Start(0)
	h.SimulateConnectSuccess()
	h.SimulateBnepSetupSuccess()
	f.SetIPInfo(IPInfo{Address: [4]byte{10, 0, 0, 1}})

	var disconnected bool
	f.OnEvent = func(e Event) {
		if e == EventDisconnected {
			disconnected = true
		}
	}

	f.Stop(0)
	if f.State() != supervisor.StateIdle {
		t.Fatalf("state after Stop = %v, want Idle", f.State())
	}
	if f.IsOnline() {
		t.Error("IsOnline() true after Stop")
	}
	if !disconnected {
		t.Error("EventDisconnected not fired on Stop")
	}
	if _, err := f.GetIPInfo(); err != ErrNoIP {
		t.Errorf("GetIPInfo() error = %v, want ErrNoIP", err)
	}
	if stk.Up {
		t.Error("stub stack still Up after Stop")
	}
	if stk.Info.HasIP() {
		t.Errorf("stub stack still holds a lease after Stop: %+v", stk.Info)
	}
}

func TestFacadeBoundedBackoff_S3(t *testing.T) {
	cfg := config.Config{
		RemoteAddr:          bnep.BDAddr{},
		ReconnectIntervalMs: 100,
		ReconnectMaxMs:      250,
	}
	f, h, _ := newTestFacade(t, cfg)

	if err := f.Start(0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	now := uint32(0)
	h.SimulateConnectFailure(1)
	if f.State() != supervisor.StateReconnecting {
		t.Fatalf("state = %v, want Reconnecting", f.State())
	}

	now += 100
	f.Process(now)
	if f.State() != supervisor.StateConnecting {
		t.Fatalf("state after first backoff elapsed = %v, want Connecting", f.State())
	}

	h.SimulateConnectFailure(1)
	now += 200
	f.Process(now)
	if f.State() != supervisor.StateConnecting {
		t.Fatalf("state after second backoff elapsed = %v, want Connecting", f.State())
	}
}

func TestFacadeMaxAttemptsTerminal_S4(t *testing.T) {
	cfg := config.Config{
		RemoteAddr:           bnep.BDAddr{},
		ReconnectIntervalMs:  10,
		ReconnectMaxMs:       100,
		MaxReconnectAttempts: 1,
	}
	f, h, _ := newTestFacade(t, cfg)

	_ = f.Start(0)
	h.SimulateConnectFailure(1)
	if f.State() != supervisor.StateReconnecting {
		t.Fatalf("state = %v, want Reconnecting", f.State())
	}

	f.Process(10)
	if f.State() != supervisor.StateConnecting {
		t.Fatalf("state after delay = %v, want Connecting (one retry allowed)", f.State())
	}

	h.SimulateConnectFailure(1)
	f.Process(30)
	if f.State() != supervisor.StateError {
		t.Fatalf("state after exhausting attempts = %v, want Error", f.State())
	}
}

func TestFacadeEthernetDataPathAfterBnepSetup(t *testing.T) {
	cfg := config.DefaultConfig(bnep.BDAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF})
	f, h, stk := newTestFacade(t, cfg)

	_ = f.Start(0)
	h.SimulateConnectSuccess()
	h.SimulateBnepSetupSuccess()

	var hdr [3]byte
	hdr[0] = byte(bnep.PacketCompressedEthernet)
	hdr[1] = 0x08
	hdr[2] = 0x00
	packet := append(hdr[:], []byte{0xDE, 0xAD, 0xBE, 0xEF}...)
	h.SimulateReceive(packet)

	if len(stk.LastEthernet) != 4 {
		t.Fatalf("stack saw %d bytes, want 4", len(stk.LastEthernet))
	}
}

// TestFacadeFullDhcpDora_S6 drives a full DISCOVER/OFFER/REQUEST/ACK
// exchange over the mock radio: the test stands in for the IP stack's
// own DHCP client, sending DISCOVER/REQUEST through Bridge().LinkOutput
// and reacting to OFFER/ACK delivered via the mock HAL's
// SimulateReceive, finishing with SetIPInfo driving the facade Online.
func TestFacadeFullDhcpDora_S6(t *testing.T) {
	remoteBD := bnep.BDAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	localBD := bnep.BDAddr{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	cfg := config.DefaultConfig(remoteBD)
	f, h, stk := newTestFacade(t, cfg)

	local := bnep.LocalEtherAddr(localBD)
	remote := bnep.LocalEtherAddr(remoteBD)
	clientMAC := [6]byte(local)
	dhcpCfg := dhcpsim.DefaultConfig()

	_ = f.Start(0)
	h.SimulateConnectSuccess()
	h.SimulateBnepSetupSuccess()
	if f.State() != supervisor.StateDhcp {
		t.Fatalf("state = %v, want Dhcp", f.State())
	}

	const xid = 0xC0FFEE

	discover := dhcpsim.BuildDiscover(xid, clientMAC)
	discoverWire := dhcpsim.BuildIPv4UDP([4]byte{}, [4]byte{255, 255, 255, 255}, discover)
	if err := f.Bridge().LinkOutput(buildOutboundBuf(remote, local, 0x0800, discoverWire)); err != nil {
		t.Fatalf("LinkOutput(discover) error = %v", err)
	}
	if len(h.LastTX()) == 0 {
		t.Fatal("discover was not transmitted to the radio")
	}

	offer := dhcpsim.BuildOffer(dhcpCfg, xid, clientMAC)
	offerWire := dhcpsim.BuildIPv4UDP(dhcpCfg.ServerIP, [4]byte{255, 255, 255, 255}, offer)
	h.SimulateReceive(buildGeneralEthernetFrame(local, remote, 0x0800, offerWire))

	if len(stk.LastEthernet) == 0 {
		t.Fatal("offer did not reach the netif stack")
	}
	if _, _, ok := dhcpsim.IsMessageType(stk.LastEthernet[28:], dhcpsim.Offer); !ok {
		t.Fatal("delivered frame did not parse as a DHCP offer")
	}

	request := dhcpsim.BuildRequest(dhcpCfg, xid, clientMAC)
	requestWire := dhcpsim.BuildIPv4UDP([4]byte{}, [4]byte{255, 255, 255, 255}, request)
	if err := f.Bridge().LinkOutput(buildOutboundBuf(remote, local, 0x0800, requestWire)); err != nil {
		t.Fatalf("LinkOutput(request) error = %v", err)
	}

	ack := dhcpsim.BuildAck(dhcpCfg, xid, clientMAC)
	ackWire := dhcpsim.BuildIPv4UDP(dhcpCfg.ServerIP, [4]byte{255, 255, 255, 255}, ack)
	h.SimulateReceive(buildGeneralEthernetFrame(local, remote, 0x0800, ackWire))

	if _, _, ok := dhcpsim.IsMessageType(stk.LastEthernet[28:], dhcpsim.Ack); !ok {
		t.Fatal("delivered frame did not parse as a DHCP ack")
	}

	f.SetIPInfo(IPInfo{Address: dhcpCfg.ClientIP, Gateway: dhcpCfg.GatewayIP, Netmask: dhcpCfg.Netmask, DNS: dhcpCfg.DNSIP})

	if f.State() != supervisor.StateOnline || !f.IsOnline() {
		t.Fatalf("state = %v, IsOnline=%v, want Online/true", f.State(), f.IsOnline())
	}
	info, err := f.GetIPInfo()
	if err != nil || info.Address != dhcpCfg.ClientIP {
		t.Fatalf("GetIPInfo() = %v, %v, want %v", info, err, dhcpCfg.ClientIP)
	}
}

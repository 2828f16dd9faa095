package mock

import (
	"testing"

	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/bnep"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/hal"
)

func TestMockConnectRequiresSimulation(t *testing.T) {
	h := New(bnep.BDAddr{1, 2, 3, 4, 5, 6}, nil)
	_ = h.Init()

	var events []hal.Event
	h.RegisterEventCallback(func(e hal.Event, status int) { events = append(events, e) })

	if err := h.Connect(bnep.BDAddr{0xAA}, 0x0F); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if h.IsConnected() {
		t.Fatal("IsConnected() true before SimulateConnectSuccess")
	}
	if len(events) != 0 {
		t.Fatalf("events fired before simulation: %v", events)
	}

	h.SimulateConnectSuccess()
	if !h.IsConnected() {
		t.Fatal("IsConnected() false after SimulateConnectSuccess")
	}
	if len(events) != 1 || events[0] != hal.EventConnected {
		t.Fatalf("events = %v, want [Connected]", events)
	}
}

func TestMockSendBusyThenCanSendNow(t *testing.T) {
	h := New(bnep.BDAddr{}, nil)
	_ = h.Init()

	var events []hal.Event
	h.RegisterEventCallback(func(e hal.Event, status int) { events = append(events, e) })
	h.Connect(bnep.BDAddr{}, 0x0F)
	h.SimulateConnectSuccess()
	events = nil

	h.SetCanSend(false)
	busy, err := h.Send([]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !busy {
		t.Fatal("Send() busy = false, want true")
	}

	h.RequestCanSendNow()
	if len(events) != 0 {
		t.Fatalf("CanSendNow fired while still busy: %v", events)
	}

	h.SetCanSend(true)
	if len(events) != 1 || events[0] != hal.EventCanSendNow {
		t.Fatalf("events after SetCanSend(true) = %v, want [CanSendNow]", events)
	}

	busy, err = h.Send([]byte{1, 2, 3})
	if err != nil || busy {
		t.Fatalf("Send() after unblocking = busy=%v err=%v, want false,nil", busy, err)
	}
	if string(h.LastTX()) != "\x01\x02\x03" {
		t.Errorf("LastTX() = %v, want [1 2 3]", h.LastTX())
	}
}

func TestMockSimulateBnepSetupSuccess(t *testing.T) {
	h := New(bnep.BDAddr{}, nil)
	_ = h.Init()
	h.Connect(bnep.BDAddr{}, 0x0F)
	h.SimulateConnectSuccess()

	var received []byte
	h.RegisterRecvCallback(func(data []byte) { received = append([]byte(nil), data...) })

	h.SimulateBnepSetupSuccess()
	want := []byte{0x01, 0x02, 0x00, 0x00}
	if string(received) != string(want) {
		t.Errorf("received = %v, want %v", received, want)
	}
}

func TestMockDisconnectStopsReceive(t *testing.T) {
	h := New(bnep.BDAddr{}, nil)
	_ = h.Init()
	h.Connect(bnep.BDAddr{}, 0x0F)
	h.SimulateConnectSuccess()
	h.Disconnect()

	var received bool
	h.RegisterRecvCallback(func(data []byte) { received = true })
	h.SimulateReceive([]byte{0x01})
	if received {
		t.Error("SimulateReceive delivered data after Disconnect")
	}
}

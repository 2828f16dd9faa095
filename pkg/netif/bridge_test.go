package netif

import (
	"testing"

	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/bnep"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/netif/stub"
)

type testSender struct {
	sent        [][]byte
	busyNext    bool
	canSendReqs int
}

func (s *testSender) Send(data []byte) (bool, error) {
	if s.busyNext {
		s.busyNext = false
		return true, nil
	}
	s.sent = append(s.sent, append([]byte(nil), data...))
	return false, nil
}

func (s *testSender) RequestCanSendNow() { s.canSendReqs++ }

var (
	localAddr  = bnep.EtherAddr{0x02, 0, 0, 0, 0, 0x01}
	remoteAddr = bnep.EtherAddr{0x02, 0, 0, 0, 0, 0x02}
)

func connectedChannel() *bnep.Channel {
	ch := bnep.NewChannel(localAddr, remoteAddr, nil)
	sender := &testSender{}
	ch.OnL2CAPConnected(sender)
	_ = ch.SendSetupRequest(sender)
	var buf [4]byte
	buf[0] = byte(bnep.PacketControl)
	buf[1] = byte(bnep.ControlSetupResponse)
	buf[2] = 0x00
	buf[3] = 0x00
	ch.HandleIncoming(buf[:], sender)
	return ch
}

func makeOutboundBuf(payload []byte) []byte {
	buf := make([]byte, HeaderReserve+ethernetHeaderLen+len(payload))
	hdr := buf[HeaderReserve : HeaderReserve+ethernetHeaderLen]
	copy(hdr[0:6], remoteAddr[:])
	copy(hdr[6:12], localAddr[:])
	hdr[12] = 0x08
	hdr[13] = 0x00
	copy(buf[HeaderReserve+ethernetHeaderLen:], payload)
	return buf
}

func TestBridgeLinkOutputFastPathCompressed(t *testing.T) {
	ch := connectedChannel()
	sender := &testSender{}
	stk := stub.New(nil)
	b := NewBridge(ModeEthernet, ch, sender, stk, localAddr, remoteAddr, false, 4, nil)

	payload := []byte{0xAA, 0xBB, 0xCC}
	buf := makeOutboundBuf(payload)

	if err := b.LinkOutput(buf); err != nil {
		t.Fatalf("LinkOutput() error = %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d frames, want 1", len(sender.sent))
	}
	frame := sender.sent[0]
	if bnep.PacketType(frame[0]) != bnep.PacketCompressedEthernet {
		t.Errorf("packet type = %#x, want CompressedEthernet", frame[0])
	}
	if len(frame) != 3+len(payload) {
		t.Errorf("frame len = %d, want %d", len(frame), 3+len(payload))
	}
	if b.QueueLen() != 0 {
		t.Errorf("queue len = %d, want 0", b.QueueLen())
	}
}

func TestBridgeLinkOutputFastPathGeneral(t *testing.T) {
	ch := connectedChannel()
	sender := &testSender{}
	stk := stub.New(nil)
	b := NewBridge(ModeEthernet, ch, sender, stk, localAddr, remoteAddr, true, 4, nil)

	buf := makeOutboundBuf([]byte{0x01, 0x02})
	if err := b.LinkOutput(buf); err != nil {
		t.Fatalf("LinkOutput() error = %v", err)
	}
	frame := sender.sent[0]
	if bnep.PacketType(frame[0]) != bnep.PacketGeneralEthernet {
		t.Errorf("packet type = %#x, want GeneralEthernet (force-uncompressed)", frame[0])
	}
}

func TestBridgeLinkOutputNotConnected(t *testing.T) {
	ch := bnep.NewChannel(localAddr, remoteAddr, nil)
	sender := &testSender{}
	stk := stub.New(nil)
	b := NewBridge(ModeEthernet, ch, sender, stk, localAddr, remoteAddr, false, 4, nil)

	buf := makeOutboundBuf([]byte{0x01})
	if err := b.LinkOutput(buf); err != ErrNotConnected {
		t.Fatalf("LinkOutput() error = %v, want ErrNotConnected", err)
	}
}

func TestBridgeLinkOutputBadArgument(t *testing.T) {
	ch := connectedChannel()
	sender := &testSender{}
	stk := stub.New(nil)
	b := NewBridge(ModeEthernet, ch, sender, stk, localAddr, remoteAddr, false, 4, nil)

	if err := b.LinkOutput(make([]byte, 5)); err != ErrBadArgument {
		t.Fatalf("LinkOutput() error = %v, want ErrBadArgument", err)
	}
}

func TestBridgeBusyQueuesAndDrains(t *testing.T) {
	ch := connectedChannel()
	sender := &testSender{busyNext: true}
	stk := stub.New(nil)
	b := NewBridge(ModeEthernet, ch, sender, stk, localAddr, remoteAddr, false, 4, nil)

	buf := makeOutboundBuf([]byte{0xAA})
	if err := b.LinkOutput(buf); err != nil {
		t.Fatalf("LinkOutput() error = %v", err)
	}
	if b.QueueLen() != 1 {
		t.Fatalf("queue len = %d, want 1 (fast-path race queued it)", b.QueueLen())
	}
	if sender.canSendReqs != 1 {
		t.Errorf("RequestCanSendNow calls = %d, want 1", sender.canSendReqs)
	}

	b.DrainTxQueue()
	if b.QueueLen() != 0 {
		t.Errorf("queue len after drain = %d, want 0", b.QueueLen())
	}
	if len(sender.sent) != 1 {
		t.Errorf("sent after drain = %d, want 1", len(sender.sent))
	}
}

func TestBridgeQueueFullDropsFrame(t *testing.T) {
	ch := connectedChannel()
	sender := &testSender{busyNext: true}
	stk := stub.New(nil)
	b := NewBridge(ModeEthernet, ch, sender, stk, localAddr, remoteAddr, false, 1, nil)

	buf1 := makeOutboundBuf([]byte{0x01})
	if err := b.LinkOutput(buf1); err != nil {
		t.Fatalf("first LinkOutput() error = %v", err)
	}
	if b.QueueLen() != 1 {
		t.Fatalf("queue len = %d, want 1", b.QueueLen())
	}

	buf2 := makeOutboundBuf([]byte{0x02})
	if err := b.LinkOutput(buf2); err != ErrOutOfMemory {
		t.Fatalf("second LinkOutput() error = %v, want ErrOutOfMemory", err)
	}
}

func TestBridgeInboundEthernetReachesStack(t *testing.T) {
	ch := connectedChannel()
	sender := &testSender{}
	stk := stub.New(nil)
	b := NewBridge(ModeEthernet, ch, sender, stk, localAddr, remoteAddr, false, 4, nil)

	b.HandleInboundEthernet(bnep.EthernetFrame{
		Dst: localAddr, Src: remoteAddr, EtherType: bnep.EtherTypeIPv4,
		Payload: []byte{0x01, 0x02, 0x03},
	})
	if len(stk.LastEthernet) != 3 {
		t.Fatalf("stack saw %d bytes, want 3", len(stk.LastEthernet))
	}
}

func TestBridgeSLIPRoundTrip(t *testing.T) {
	ch := bnep.NewChannel(localAddr, remoteAddr, nil)
	sender := &testSender{}
	stk := stub.New(nil)
	b := NewBridge(ModeSLIP, ch, sender, stk, localAddr, remoteAddr, false, 4, nil)

	payload := []byte{0x45, 0x00, 0xC0, 0xDB}
	encoded := EncodeSLIP(payload)
	if err := b.SendSLIP(encoded); err != nil {
		t.Fatalf("SendSLIP() error = %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d frames, want 1", len(sender.sent))
	}
	if got := DecodeSLIP(sender.sent[0]); string(got) != string(payload) {
		t.Errorf("decoded = %v, want %v", got, payload)
	}

	b.HandleInboundSerial(encoded)
	if string(stk.LastSerial) != string(encoded) {
		t.Errorf("stack serial input = %v, want %v", stk.LastSerial, encoded)
	}
}

func TestBridgeLinkSetUpResetsQueueOnDown(t *testing.T) {
	ch := connectedChannel()
	sender := &testSender{busyNext: true}
	stk := stub.New(nil)
	b := NewBridge(ModeEthernet, ch, sender, stk, localAddr, remoteAddr, false, 4, nil)

	buf := makeOutboundBuf([]byte{0x01})
	_ = b.LinkOutput(buf)
	if b.QueueLen() == 0 {
		t.Fatal("expected queued frame before link down")
	}

	b.LinkSetUp(false)
	if b.QueueLen() != 0 {
		t.Errorf("queue len after link down = %d, want 0", b.QueueLen())
	}
	if stk.Up {
		t.Error("stack Up after LinkSetUp(false)")
	}
}

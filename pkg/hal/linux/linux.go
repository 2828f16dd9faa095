// Package linux implements hal.BluetoothHAL over a BlueZ L2CAP socket:
// a non-blocking AF_BLUETOOTH/SOCK_SEQPACKET/BTPROTO_L2CAP connection
// polled from Poll, mirroring the original firmware's BlueZ backend.
// x/sys/unix has no typed sockaddr for AF_BLUETOOTH/BTPROTO_L2CAP, so
// the wire struct is built and parsed by hand, the same way the raw
// HCI ioctls are, rather than through a typed Sockaddr.
package linux

import (
	"errors"
	"fmt"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/bnep"
	"github.com/Akhil-Chaturvedi/TinyPAN/pkg/hal"
)

// rxBufferSize is the read buffer size for a single L2CAP poll.
const rxBufferSize = 2048

const (
	afBluetooth   = 31 // AF_BLUETOOTH
	btProtoL2CAP  = 0
	btProtoHCI    = 1
	sockSeqpacket = 5
)

func ioR(t, nr, size uintptr) uintptr { return (2 << 30) | (t << 8) | nr | (size << 16) }
func ioW(t, nr, size uintptr) uintptr { return (1 << 30) | (t << 8) | nr | (size << 16) }

func ioctl(fd, op, arg uintptr) error {
	if _, _, ep := unix.Syscall(unix.SYS_IOCTL, fd, op, arg); ep != 0 {
		return ep
	}
	return nil
}

const (
	typHCI         = 72 // 'H'
	hciGetDevInfo  = 211
	devInfoArgSize = 512 // generous upper bound on struct hci_dev_info
)

var hciGetDeviceInfo = ioR(typHCI, hciGetDevInfo, 4)

// sockaddrL2 is struct sockaddr_l2 from <bluetooth/l2cap.h>: family(2),
// psm(2), bdaddr(6, reversed from bnep.BDAddr's order), cid(2),
// bdaddr_type(1), padded to 14 bytes.
type sockaddrL2 struct {
	family     uint16
	psm        uint16
	bdaddr     [6]byte
	cid        uint16
	bdaddrType uint8
	_          uint8
}

func newSockaddrL2(psm uint16, addr bnep.BDAddr) sockaddrL2 {
	return sockaddrL2{family: afBluetooth, psm: psm, bdaddr: bdaddrBytes(addr)}
}

func rawConnect(fd int, sa sockaddrL2) error {
	_, _, errno := unix.Syscall(unix.SYS_CONNECT, uintptr(fd), uintptr(unsafe.Pointer(&sa)), unsafe.Sizeof(sa))
	if errno != 0 {
		return errno
	}
	return nil
}

func rawBind(fd int, sa sockaddrL2) error {
	_, _, errno := unix.Syscall(unix.SYS_BIND, uintptr(fd), uintptr(unsafe.Pointer(&sa)), unsafe.Sizeof(sa))
	if errno != 0 {
		return errno
	}
	return nil
}

// HAL is a hal.BluetoothHAL backed by a BlueZ L2CAP socket on a
// specific HCI adapter.
type HAL struct {
	devID int

	hciFd   int
	l2capFd int

	local bnep.BDAddr

	connecting bool
	connected  bool

	recvCB  hal.RecvCallback
	eventCB hal.EventCallback

	rxBuf [rxBufferSize]byte

	log *zap.Logger
}

// New creates a HAL bound to the given HCI adapter index. Pass 0 to
// use the first adapter, hci0.
func New(devID int, log *zap.Logger) *HAL {
	if log == nil {
		log = zap.NewNop()
	}
	return &HAL{devID: devID, hciFd: -1, l2capFd: -1, log: log}
}

// Init implements hal.BluetoothHAL.
func (h *HAL) Init() error {
	fd, err := unix.Socket(afBluetooth, unix.SOCK_RAW, btProtoHCI)
	if err != nil {
		return fmt.Errorf("linux hal: open hci socket: %w", err)
	}
	h.hciFd = fd

	addr, err := localAdapterAddr(fd, h.devID)
	if err != nil {
		unix.Close(fd)
		h.hciFd = -1
		return fmt.Errorf("linux hal: get local address: %w", err)
	}
	h.local = addr
	h.log.Info("linux hal initialized", zap.Stringer("local", addr))
	return nil
}

// Deinit implements hal.BluetoothHAL.
func (h *HAL) Deinit() {
	h.closeL2CAP()
	if h.hciFd >= 0 {
		unix.Close(h.hciFd)
		h.hciFd = -1
	}
}

func (h *HAL) closeL2CAP() {
	if h.l2capFd >= 0 {
		unix.Close(h.l2capFd)
		h.l2capFd = -1
	}
	h.connected = false
	h.connecting = false
}

// Connect implements hal.BluetoothHAL: it opens a non-blocking L2CAP
// socket and issues connect(2), returning immediately whether the
// kernel completed the handshake synchronously or reported
// EINPROGRESS. A synchronous completion fires EventConnected from
// Connect itself; an in-progress one is reported through Poll.
func (h *HAL) Connect(remote bnep.BDAddr, psm uint16) error {
	h.closeL2CAP()

	fd, err := unix.Socket(afBluetooth, sockSeqpacket, btProtoL2CAP)
	if err != nil {
		return fmt.Errorf("linux hal: open l2cap socket: %w", err)
	}

	if err := rawBind(fd, newSockaddrL2(0, h.local)); err != nil {
		unix.Close(fd)
		return fmt.Errorf("linux hal: bind: %w", err)
	}

	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("linux hal: fcntl getfl: %w", err)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags|unix.O_NONBLOCK); err != nil {
		unix.Close(fd)
		return fmt.Errorf("linux hal: fcntl setfl: %w", err)
	}

	h.l2capFd = fd
	h.connecting = true

	err = rawConnect(fd, newSockaddrL2(psm, remote))
	if err == nil {
		h.connecting = false
		h.connected = true
		h.log.Info("linux hal l2cap connected synchronously", zap.Stringer("remote", remote))
		if h.eventCB != nil {
			h.eventCB(hal.EventConnected, 0)
		}
		return nil
	}
	if errors.Is(err, unix.EINPROGRESS) {
		h.log.Debug("linux hal l2cap connect in progress", zap.Stringer("remote", remote))
		return nil
	}

	h.log.Error("linux hal l2cap connect failed", zap.Error(err))
	h.closeL2CAP()
	return err
}

// Disconnect implements hal.BluetoothHAL.
func (h *HAL) Disconnect() {
	h.log.Info("linux hal l2cap disconnect")
	h.closeL2CAP()
}

// Send implements hal.BluetoothHAL.
func (h *HAL) Send(data []byte) (bool, error) {
	if h.l2capFd < 0 || !h.connected {
		return false, errors.New("linux hal: not connected")
	}
	_, err := unix.Write(h.l2capFd, data)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return true, nil
		}
		h.log.Error("linux hal send failed", zap.Error(err))
		return false, err
	}
	return false, nil
}

// RequestCanSendNow implements hal.BluetoothHAL. The real socket's
// writability is discovered through the next Poll call; this exists
// for interface symmetry with backends that need an explicit nudge.
func (h *HAL) RequestCanSendNow() {}

// LocalAddr implements hal.BluetoothHAL.
func (h *HAL) LocalAddr() bnep.BDAddr {
	return h.local
}

// RegisterRecvCallback implements hal.BluetoothHAL.
func (h *HAL) RegisterRecvCallback(cb hal.RecvCallback) {
	h.recvCB = cb
}

// RegisterEventCallback implements hal.BluetoothHAL.
func (h *HAL) RegisterEventCallback(cb hal.EventCallback) {
	h.eventCB = cb
}

// Poll implements hal.BluetoothHAL: a single non-blocking poll(2) on
// the L2CAP socket, dispatching connect completion, inbound data, and
// hangup/error as the corresponding callback.
func (h *HAL) Poll() error {
	if h.l2capFd < 0 {
		return nil
	}

	pfd := []unix.PollFd{{Fd: int32(h.l2capFd), Events: unix.POLLIN | unix.POLLOUT | unix.POLLERR | unix.POLLHUP}}
	n, err := unix.Poll(pfd, 0)
	if err != nil || n <= 0 {
		return err
	}
	revents := pfd[0].Revents

	if revents&(unix.POLLERR|unix.POLLHUP) != 0 {
		sockErr := socketError(h.l2capFd)
		h.log.Warn("linux hal l2cap socket error/hangup", zap.Error(sockErr))
		wasConnecting := h.connecting
		h.closeL2CAP()
		if h.eventCB != nil {
			if wasConnecting {
				h.eventCB(hal.EventConnectFailed, errnoOf(sockErr))
			} else {
				h.eventCB(hal.EventDisconnected, errnoOf(sockErr))
			}
		}
		return nil
	}

	if h.connecting && revents&unix.POLLOUT != 0 {
		sockErr := socketError(h.l2capFd)
		if sockErr == nil {
			h.connecting = false
			h.connected = true
			h.log.Info("linux hal l2cap connected")
			if h.eventCB != nil {
				h.eventCB(hal.EventConnected, 0)
			}
		} else {
			h.log.Error("linux hal l2cap connect failed", zap.Error(sockErr))
			h.connecting = false
			h.closeL2CAP()
			if h.eventCB != nil {
				h.eventCB(hal.EventConnectFailed, errnoOf(sockErr))
			}
		}
	}

	if h.connected && revents&unix.POLLIN != 0 {
		nread, rerr := unix.Read(h.l2capFd, h.rxBuf[:])
		switch {
		case nread > 0:
			if h.recvCB != nil {
				h.recvCB(h.rxBuf[:nread])
			}
		case nread == 0:
			h.log.Info("linux hal l2cap peer closed connection")
			h.closeL2CAP()
			if h.eventCB != nil {
				h.eventCB(hal.EventDisconnected, 0)
			}
		case rerr != nil && !errors.Is(rerr, unix.EAGAIN):
			return rerr
		}
	}

	if h.connected && h.eventCB != nil && revents&unix.POLLOUT != 0 {
		h.eventCB(hal.EventCanSendNow, 0)
	}

	return nil
}

func socketError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno == 0 {
		return nil
	}
	return unix.Errno(errno)
}

func errnoOf(err error) int {
	var e unix.Errno
	if errors.As(err, &e) {
		return int(e)
	}
	return -1
}

func bdaddrBytes(addr bnep.BDAddr) [6]uint8 {
	var b [6]uint8
	for i := 0; i < 6; i++ {
		b[i] = addr[5-i]
	}
	return b
}

// localAdapterAddr issues HCIGETDEVINFO to recover the adapter's own
// address; the bdaddr field sits 10 bytes into struct hci_dev_info
// (dev_id uint16 + name[8]), which is stable across kernel versions
// even though the struct's tail has grown over time.
func localAdapterAddr(hciFd, devID int) (bnep.BDAddr, error) {
	var buf [devInfoArgSize]byte
	*(*uint16)(unsafe.Pointer(&buf[0])) = uint16(devID)

	if err := ioctl(uintptr(hciFd), hciGetDeviceInfo, uintptr(unsafe.Pointer(&buf[0]))); err != nil {
		return bnep.BDAddr{}, err
	}

	var addr bnep.BDAddr
	const bdaddrOffset = 10
	for i := 0; i < 6; i++ {
		addr[i] = buf[bdaddrOffset+5-i]
	}
	return addr, nil
}

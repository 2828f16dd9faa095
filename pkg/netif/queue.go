package netif

import "github.com/Akhil-Chaturvedi/TinyPAN/internal/config"

// slotCapacity is the largest frame a TxSlot can hold: the full BNEP
// header plus a maximum-size Ethernet payload.
const slotCapacity = 15 + config.MaxFrameSize

// TxSlot is a single fixed-capacity outbound buffer. Slots are reused
// in place by TxQueue rather than allocated per frame.
type TxSlot struct {
	buf [slotCapacity]byte
	n   int
}

// Bytes returns the slot's populated contents.
func (s *TxSlot) Bytes() []byte {
	return s.buf[:s.n]
}

// TxQueue is a fixed-capacity ring buffer of TxSlots. It never grows:
// once full, enqueue fails and the caller must drop the frame.
type TxQueue struct {
	slots []TxSlot
	head  int
	tail  int
	count int
}

// NewTxQueue creates a queue that can hold up to capacity frames.
func NewTxQueue(capacity int) *TxQueue {
	return &TxQueue{slots: make([]TxSlot, capacity)}
}

// Len reports how many frames are currently queued.
func (q *TxQueue) Len() int {
	return q.count
}

// Empty reports whether the queue holds no frames.
func (q *TxQueue) Empty() bool {
	return q.count == 0
}

// Full reports whether the queue has no room for another frame.
func (q *TxQueue) Full() bool {
	return q.count == len(q.slots)
}

// Push copies data into the next free slot. It returns ErrOutOfMemory
// without mutating head/tail if the queue is full.
func (q *TxQueue) Push(data []byte) error {
	if q.Full() {
		return ErrOutOfMemory
	}
	if len(data) > slotCapacity {
		return ErrBufferTooSmall
	}
	slot := &q.slots[q.tail]
	slot.n = copy(slot.buf[:], data)
	q.tail = (q.tail + 1) % len(q.slots)
	q.count++
	return nil
}

// Peek returns the slot at the head of the queue without removing it,
// or nil if the queue is empty.
func (q *TxQueue) Peek() *TxSlot {
	if q.Empty() {
		return nil
	}
	return &q.slots[q.head]
}

// Pop removes the slot at the head of the queue.
func (q *TxQueue) Pop() {
	if q.Empty() {
		return
	}
	q.head = (q.head + 1) % len(q.slots)
	q.count--
}

// Reset drops every queued frame, releasing all slots.
func (q *TxQueue) Reset() {
	q.head = 0
	q.tail = 0
	q.count = 0
}

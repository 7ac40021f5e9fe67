package playback

import "sync"

// BlockSize is the cursor cadence at which positions are reported. It counts interleaved samples, not
// frames: a stereo file reports every 2048 frames.
const BlockSize = 4096

// Position is a cursor report. Generation identifies the file the cursor indexes into. Epoch is the
// one carried by the last Seek or TogglePlay the engine applied before reporting, so a consumer can
// tell positions issued before its own command from the ones issued after.
type Position struct {
	Generation uint64
	Epoch      uint64
	Cursor     int
}

// PositionQueue is an unbounded FIFO of positions. Push never blocks and never drops.
type PositionQueue struct {
	mu     sync.Mutex
	items  []Position
	notify chan struct{}
	closed bool
}

func NewPositionQueue() *PositionQueue {
	return &PositionQueue{notify: make(chan struct{}, 1)}
}

// Push appends a position. Pushes after Close are ignored.
func (q *PositionQueue) Push(position Position) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()

		return
	}

	q.items = append(q.items, position)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Drain removes and returns every queued position in order. open is false once the queue is closed
// and empty.
func (q *PositionQueue) Drain() (positions []Position, open bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	positions = q.items
	q.items = nil

	return positions, !q.closed || len(positions) > 0
}

// Notify fires (coalesced) after a Push.
func (q *PositionQueue) Notify() <-chan struct{} {
	return q.notify
}

// Close marks the producer as gone. Already queued positions can still be drained.
func (q *PositionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
}

// Package capture records live input into a fixed-size mono ring.
package capture

import (
	"sync"
)

// RingSeconds is how much audio a Ring retains.
const RingSeconds = 30

// Ring is a fixed-capacity circular store of mono samples. The device callback pushes while the
// render side snapshots, so both operations hold the lock only for the copy.
type Ring struct {
	mu      sync.Mutex
	buf     []float32
	head    int // next write position
	count   int
	written uint64
	rate    int
}

// CapacityFor is the ring capacity for a device running at sampleRate.
func CapacityFor(sampleRate int) int {
	return RingSeconds * sampleRate
}

// NewRing returns a ring holding RingSeconds of audio at sampleRate.
func NewRing(sampleRate int) *Ring {
	return NewRingWithCapacity(CapacityFor(sampleRate), sampleRate)
}

// NewRingWithCapacity returns a ring holding exactly capacity samples.
func NewRingWithCapacity(capacity, sampleRate int) *Ring {
	return &Ring{
		buf:  make([]float32, max(capacity, 1)),
		rate: sampleRate,
	}
}

// Push downmixes one interleaved block and appends it, overwriting the oldest samples on overflow.
// Stereo (and wider) input keeps (l+r)/2 of the first two channels, mono is passed through.
func (r *Ring) Push(block []float32, channels int) {
	if channels <= 1 {
		r.push(block)

		return
	}

	frames := len(block) / channels
	if frames == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for f := range frames {
		r.put((block[f*channels] + block[f*channels+1]) / 2)
	}
}

func (r *Ring) push(samples []float32) {
	if len(samples) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Only the newest len(buf) samples can survive.
	skipped := max(len(samples)-len(r.buf), 0)
	r.written += uint64(skipped)
	samples = samples[skipped:]

	for _, sample := range samples {
		r.put(sample)
	}
}

// put must be called with the lock held.
func (r *Ring) put(sample float32) {
	r.buf[r.head] = sample
	r.head = (r.head + 1) % len(r.buf)
	r.written++

	if r.count < len(r.buf) {
		r.count++
	}
}

// Snapshot returns a chronological copy of every retained sample.
func (r *Ring) Snapshot() []float32 {
	return r.Tail(len(r.buf))
}

// Tail returns a chronological copy of the newest n retained samples.
func (r *Ring) Tail(n int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.tail(n)
}

// Since returns a chronological copy of at least the newest n samples, extended to every retained
// sample written after mark, together with the write counter read under the same lock. fresh counts
// the trailing samples of the copy written after mark.
func (r *Ring) Since(mark uint64, n int) (samples []float32, written uint64, fresh int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var newer uint64
	if r.written > mark {
		newer = r.written - mark
	}

	samples = r.tail(max(n, int(min(newer, uint64(r.count)))))
	fresh = int(min(newer, uint64(len(samples))))

	return samples, r.written, fresh
}

// tail must be called with the lock held.
func (r *Ring) tail(n int) []float32 {
	n = min(n, r.count)
	if n <= 0 {
		return nil
	}

	out := make([]float32, n)
	start := (r.head - n + len(r.buf)) % len(r.buf)

	first := copy(out, r.buf[start:min(start+n, len(r.buf))])
	copy(out[first:], r.buf[:n-first])

	return out
}

// Len is the number of samples currently retained.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.count
}

// Capacity is the fixed number of retained samples.
func (r *Ring) Capacity() int { return len(r.buf) }

// SampleRate is the rate the ring was sized for.
func (r *Ring) SampleRate() int { return r.rate }

// Written counts every sample ever pushed, including overwritten ones.
func (r *Ring) Written() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.written
}

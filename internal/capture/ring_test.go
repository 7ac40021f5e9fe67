package capture

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(from, count int) []float32 {
	out := make([]float32, count)
	for i := range out {
		out[i] = float32(from + i)
	}

	return out
}

func TestRing_KeepsMostRecentCapacity(t *testing.T) {
	t.Parallel()

	ring := NewRingWithCapacity(441000, 44100)

	// Fed in device-sized blocks.
	for start := 0; start < 500000; start += 512 {
		ring.Push(sequence(start, min(512, 500000-start)), 1)
	}

	snapshot := ring.Snapshot()
	require.Len(t, snapshot, 441000)
	assert.InDelta(t, 500000-441000, snapshot[0], 0)
	assert.InDelta(t, 499999, snapshot[len(snapshot)-1], 0)

	for i := 1; i < len(snapshot); i++ {
		if snapshot[i] != snapshot[i-1]+1 {
			t.Fatalf("order broken at %d: %v after %v", i, snapshot[i], snapshot[i-1])
		}
	}

	assert.Equal(t, uint64(500000), ring.Written())
}

func TestRing_SingleOversizedPush(t *testing.T) {
	t.Parallel()

	ring := NewRingWithCapacity(4, 1)
	ring.Push(sequence(0, 10), 1)

	assert.Equal(t, []float32{6, 7, 8, 9}, ring.Snapshot())
	assert.Equal(t, uint64(10), ring.Written())
}

func TestRing_PartialFill(t *testing.T) {
	t.Parallel()

	ring := NewRingWithCapacity(8, 1)
	assert.Nil(t, ring.Snapshot())

	ring.Push(sequence(1, 3), 1)

	assert.Equal(t, 3, ring.Len())
	assert.Equal(t, 8, ring.Capacity())
	assert.Equal(t, []float32{1, 2, 3}, ring.Snapshot())
	assert.Equal(t, []float32{2, 3}, ring.Tail(2))
}

func TestRing_StereoDownmix(t *testing.T) {
	t.Parallel()

	ring := NewRingWithCapacity(8, 1)
	ring.Push([]float32{1, 0, 0.5, 0.5, -1, 1}, 2)

	assert.Equal(t, []float32{0.5, 0.5, 0}, ring.Snapshot())
}

func TestRing_WideInputUsesFirstPair(t *testing.T) {
	t.Parallel()

	ring := NewRingWithCapacity(8, 1)
	ring.Push([]float32{1, 0, 9, 9, 0.2, 0.4, 9, 9}, 4)

	assert.InDeltaSlice(t, []float32{0.5, 0.3}, ring.Snapshot(), 1e-6)
}

func TestRing_DefaultCapacity(t *testing.T) {
	t.Parallel()

	ring := NewRing(48000)

	assert.Equal(t, 30*48000, ring.Capacity())
	assert.Equal(t, CapacityFor(48000), ring.Capacity())
	assert.Equal(t, 48000, ring.SampleRate())
}

func TestRing_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	ring := NewRingWithCapacity(4, 1)
	ring.Push([]float32{1, 2}, 1)

	snapshot := ring.Snapshot()
	snapshot[0] = 42

	assert.Equal(t, []float32{1, 2}, ring.Snapshot())
}

func TestRing_ConcurrentPushAndSnapshot(t *testing.T) {
	t.Parallel()

	ring := NewRingWithCapacity(1024, 1)

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for i := range 200 {
			ring.Push(sequence(i*64, 64), 1)
		}
	}()

	for range 200 {
		snapshot := ring.Snapshot()
		for i := 1; i < len(snapshot); i++ {
			if snapshot[i] != snapshot[i-1]+1 {
				t.Errorf("torn snapshot at %d", i)

				break
			}
		}
	}

	wg.Wait()

	assert.Equal(t, uint64(200*64), ring.Written())
}

func TestRing_SinceExtendsToUnreadSamples(t *testing.T) {
	t.Parallel()

	ring := NewRingWithCapacity(100, 1)
	ring.Push(sequence(0, 30), 1)

	samples, written, fresh := ring.Since(0, 10)
	assert.Len(t, samples, 30)
	assert.Equal(t, uint64(30), written)
	assert.Equal(t, 30, fresh)

	ring.Push(sequence(30, 5), 1)

	samples, written, fresh = ring.Since(written, 10)
	assert.Equal(t, sequence(25, 10), samples)
	assert.Equal(t, uint64(35), written)
	assert.Equal(t, 5, fresh)

	// Overwritten samples cannot be returned.
	ring.Push(sequence(35, 200), 1)

	samples, _, fresh = ring.Since(written, 10)
	assert.Len(t, samples, 100)
	assert.Equal(t, 100, fresh)

	_, _, fresh = ring.Since(235, 10)
	assert.Zero(t, fresh)
}

func TestRing_SinceAgreesWithCounter(t *testing.T) {
	t.Parallel()

	ring := NewRingWithCapacity(1<<14, 1)

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for i := range 4096 {
			ring.Push(sequence(i*64, 64), 1)
		}
	}()

	var mark uint64

	for mark < 4096*64 {
		samples, written, fresh := ring.Since(mark, 0)

		// The newest sample always carries the counter it was read with.
		if fresh > 0 && samples[len(samples)-1] != float32(written-1) {
			t.Fatalf("copy ends at %v, counter says %d", samples[len(samples)-1], written)
		}

		for i := len(samples) - fresh + 1; i < len(samples); i++ {
			if samples[i] != samples[i-1]+1 {
				t.Fatalf("fresh span broken at %d", i)
			}
		}

		mark = written
	}

	wg.Wait()
}

package playback

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionQueue_NeverDrops(t *testing.T) {
	t.Parallel()

	queue := NewPositionQueue()

	var wg sync.WaitGroup

	for producer := range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 1000 {
				queue.Push(Position{Generation: uint64(producer), Cursor: i})
			}
		}()
	}

	wg.Wait()

	positions, open := queue.Drain()
	assert.True(t, open)
	assert.Len(t, positions, 4000)

	// Per producer order is kept.
	last := map[uint64]int{0: -1, 1: -1, 2: -1, 3: -1}
	for _, position := range positions {
		assert.Greater(t, position.Cursor, last[position.Generation])
		last[position.Generation] = position.Cursor
	}
}

func TestPositionQueue_NotifyCoalesces(t *testing.T) {
	t.Parallel()

	queue := NewPositionQueue()
	queue.Push(Position{Cursor: 1})
	queue.Push(Position{Cursor: 2})

	<-queue.Notify()

	select {
	case <-queue.Notify():
		t.Fatal("notification was not coalesced")
	default:
	}

	positions, _ := queue.Drain()
	assert.Len(t, positions, 2)
}

func TestPositionQueue_CloseDrainsRemaining(t *testing.T) {
	t.Parallel()

	queue := NewPositionQueue()
	queue.Push(Position{Cursor: 7})
	queue.Close()
	queue.Push(Position{Cursor: 8})

	positions, open := queue.Drain()
	assert.True(t, open)
	assert.Equal(t, []Position{{Cursor: 7}}, positions)

	positions, open = queue.Drain()
	assert.False(t, open)
	assert.Empty(t, positions)
}

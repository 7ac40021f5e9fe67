package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/tympanum/internal/store"
)

func newFile(t *testing.T, frames, rate, channels int) *store.AudioFile {
	t.Helper()

	samples := make([]float32, frames*channels)
	for i := range samples {
		samples[i] = float32(i%channels) / 10
	}

	file, err := store.New("test", samples, rate, channels)
	require.NoError(t, err)

	return file
}

func TestParityCursor_PreservesChannelSlot(t *testing.T) {
	t.Parallel()

	for channels := 1; channels <= 8; channels++ {
		length := 97 * channels

		for old := 0; old <= length; old++ {
			for wanted := -channels; wanted <= length+channels; wanted += 3 {
				got := ParityCursor(old, wanted, channels, length)

				if got%channels != old%channels {
					t.Fatalf("C=%d old=%d wanted=%d: got %d, slot %d != %d",
						channels, old, wanted, got, got%channels, old%channels)
				}

				if got < 0 || got > length {
					t.Fatalf("C=%d old=%d wanted=%d: got %d outside [0, %d]", channels, old, wanted, got, length)
				}
			}
		}
	}
}

func TestSource_SeekTimeStereoExample(t *testing.T) {
	t.Parallel()

	file := newFile(t, 750000, 48000, 2)
	queue := NewPositionQueue()
	source := NewSource(file, queue)
	source.cursor = 12345

	cursor := source.SeekTime(5 * time.Second)

	assert.Equal(t, 1, cursor%2)
	assert.Equal(t, 479999, cursor)

	positions, _ := queue.Drain()
	require.Len(t, positions, 1)
	assert.Equal(t, cursor, positions[0].Cursor)
}

func TestSource_SeekTimeClamps(t *testing.T) {
	t.Parallel()

	file := newFile(t, 1000, 1000, 2)
	source := NewSource(file, NewPositionQueue())

	assert.Equal(t, file.Len(), source.SeekTime(time.Hour))
	assert.Equal(t, 0, source.SeekTime(-time.Hour))
}

func TestSource_StreamReportsEachBlock(t *testing.T) {
	t.Parallel()

	file := newFile(t, 10000, 1000, 2).WithGeneration(3)
	queue := NewPositionQueue()
	source := NewSource(file, queue)

	buf := make([][2]float64, 5000)
	n, ok := source.Stream(buf)
	require.True(t, ok)
	assert.Equal(t, 5000, n)
	assert.Zero(t, buf[0][0])
	assert.InDelta(t, 0.1, buf[0][1], 1e-6)

	positions, _ := queue.Drain()
	assert.Equal(t, []Position{{Generation: 3, Cursor: 4096}, {Generation: 3, Cursor: 8192}}, positions)

	n, ok = source.Stream(buf)
	assert.Equal(t, 5000, n)
	assert.True(t, ok)

	positions, _ = queue.Drain()
	assert.Equal(t, []Position{
		{Generation: 3, Cursor: 12288},
		{Generation: 3, Cursor: 16384},
		{Generation: 3, Cursor: 20000},
	}, positions)

	n, ok = source.Stream(buf)
	assert.Zero(t, n)
	assert.False(t, ok)
	assert.True(t, source.Drained())
}

func TestSource_MonoIsDuplicated(t *testing.T) {
	t.Parallel()

	file, err := store.New("mono", []float32{0.25, -0.5}, 2, 1)
	require.NoError(t, err)

	source := NewSource(file, NewPositionQueue())
	buf := make([][2]float64, 4)

	n, _ := source.Stream(buf)
	assert.Equal(t, 2, n)
	assert.Equal(t, [2]float64{0.25, 0.25}, buf[0])
	assert.Equal(t, [2]float64{-0.5, -0.5}, buf[1])
}

func TestSource_BeepSeekInFrames(t *testing.T) {
	t.Parallel()

	file := newFile(t, 100, 10, 2)
	source := NewSource(file, NewPositionQueue())

	require.NoError(t, source.Seek(40))
	assert.Equal(t, 40, source.Position())
	assert.Equal(t, 80, source.Cursor())
	assert.Equal(t, 4*time.Second, source.Time())
	assert.Equal(t, 100, source.Len())

	require.Error(t, source.Seek(101))
	require.Error(t, source.Seek(-1))
}

func TestSource_SeekTimeAtTagsTarget(t *testing.T) {
	t.Parallel()

	file := newFile(t, 10000, 1000, 2).WithGeneration(1)
	queue := NewPositionQueue()
	source := NewSource(file, queue)

	buf := make([][2]float64, 2048)
	source.Stream(buf)

	cursor := source.SeekTimeAt(5*time.Second, 4)
	assert.Equal(t, 10000, cursor)

	source.Stream(buf)

	positions, _ := queue.Drain()
	assert.Equal(t, []Position{
		{Generation: 1, Cursor: 4096},
		{Generation: 1, Epoch: 4, Cursor: 10000},
		{Generation: 1, Epoch: 4, Cursor: 12288},
	}, positions)
}

package levels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClipping_CountsRuns(t *testing.T) {
	t.Parallel()

	// Left: one run of 3, right: a single full-scale sample (not a clip) then a trailing run of 2.
	samples := []float32{
		1, 0.1,
		1, 1,
		-1, 0.2,
		0.5, 0.3,
		0.1, -1,
		0.1, -1,
	}

	result := Clipping(samples, 2)

	assert.Equal(t, uint64(2), result.Events)
	assert.Equal(t, uint64(5), result.ClippedSamples)
	assert.Equal(t, uint64(3), result.LongestRun)
	assert.Equal(t, uint64(12), result.Samples)
	assert.Equal(t, uint64(1), result.Channels[0].Events)
	assert.Equal(t, uint64(3), result.Channels[0].LongestRun)
	assert.Equal(t, uint64(1), result.Channels[1].Events)
	assert.Equal(t, uint64(2), result.Channels[1].ClippedSamples)
}

func TestClipping_IntegerRails(t *testing.T) {
	t.Parallel()

	// 16-bit positive full scale decodes to 32767/32768.
	rail := float32(32767.0 / 32768.0)

	result := Clipping([]float32{rail, rail, 0}, 1)
	assert.Equal(t, uint64(1), result.Events)
}

func TestClipping_Degenerate(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Clipping(nil, 2).Events)
	assert.Empty(t, Clipping([]float32{1, 1}, 0).Channels)
}

func TestDCOffset(t *testing.T) {
	t.Parallel()

	samples := []float32{0.1, -0.2, 0.3, -0.2}

	result := DCOffset(samples, 2)

	assert.InDeltaSlice(t, []float64{0.2, -0.2}, result.Channels, 1e-6)
	assert.InDelta(t, 0.2, result.Offset, 1e-6)
	assert.InDelta(t, -13.98, result.OffsetDb, 0.01)
}

func TestDCOffset_SilenceFloors(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, floorDb, DCOffset(make([]float32, 8), 2).OffsetDb, 1e-9)
	assert.InDelta(t, floorDb, DCOffset(nil, 2).OffsetDb, 1e-9)
}

package loudness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sine returns seconds of an interleaved 1 kHz sine with the same amplitude on every channel.
func sine(seconds float64, rate, channels int, amplitude float64) []float32 {
	frames := int(seconds * float64(rate))
	out := make([]float32, frames*channels)

	for f := range frames {
		value := float32(amplitude * math.Sin(2*math.Pi*1000*float64(f)/float64(rate)))
		for ch := range channels {
			out[f*channels+ch] = value
		}
	}

	return out
}

// amplitudeFor is the per-channel stereo 1 kHz sine amplitude that reads target LUFS.
func amplitudeFor(target float64) float64 {
	return math.Pow(10, target/20)
}

func TestMeter_ReferenceSine(t *testing.T) {
	t.Parallel()

	meter, err := New(2, 48000)
	require.NoError(t, err)

	meter.AddFrames(sine(10, 48000, 2, amplitudeFor(-23)))

	assert.InDelta(t, -23, meter.Momentary(), 0.3)
	assert.InDelta(t, -23, meter.ShortTerm(), 0.3)
	assert.InDelta(t, -23, meter.Integrated(), 0.3)
	assert.InDelta(t, 0, meter.Range(), 0.5)

	peak, err := meter.TruePeak(1)
	require.NoError(t, err)
	assert.InDelta(t, amplitudeFor(-23), peak, amplitudeFor(-23)*0.05)
}

func TestMeter_NothingMeasured(t *testing.T) {
	t.Parallel()

	meter, err := New(1, 44100)
	require.NoError(t, err)

	assert.True(t, math.IsInf(meter.Momentary(), -1))
	assert.True(t, math.IsInf(meter.ShortTerm(), -1))
	assert.True(t, math.IsInf(meter.Integrated(), -1))
	assert.Zero(t, meter.Range())

	peak, err := meter.TruePeak(0)
	require.NoError(t, err)
	assert.Zero(t, peak)
}

func TestMeter_ResetForgetsEverything(t *testing.T) {
	t.Parallel()

	meter, err := New(2, 48000)
	require.NoError(t, err)

	meter.AddFrames(sine(5, 48000, 2, 0.9))
	// One block per 100ms hop once the first 400ms are in.
	assert.Equal(t, 47, meter.Blocks())

	meter.Reset()

	assert.Zero(t, meter.Blocks())
	assert.True(t, math.IsInf(meter.ShortTerm(), -1))
	assert.True(t, math.IsInf(meter.Integrated(), -1))

	quiet := amplitudeFor(-43)
	meter.AddFrames(sine(3.5, 48000, 2, quiet))

	assert.InDelta(t, -43, meter.ShortTerm(), 0.3)
	assert.InDelta(t, -43, meter.Integrated(), 0.3)

	peak, err := meter.TruePeak(0)
	require.NoError(t, err)
	assert.Less(t, peak, quiet*1.1)
}

func TestMeter_SilenceIsGated(t *testing.T) {
	t.Parallel()

	meter, err := New(2, 48000)
	require.NoError(t, err)

	meter.AddFrames(sine(5, 48000, 2, amplitudeFor(-23)))
	meter.AddFrames(make([]float32, 5*48000*2))

	assert.InDelta(t, -23, meter.Integrated(), 0.5)
	assert.Less(t, meter.ShortTerm(), -70.0)
}

func TestMeter_Range(t *testing.T) {
	t.Parallel()

	meter, err := New(2, 48000)
	require.NoError(t, err)

	meter.AddFrames(sine(10, 48000, 2, amplitudeFor(-20)))
	meter.AddFrames(sine(10, 48000, 2, amplitudeFor(-30)))

	assert.InDelta(t, 10, meter.Range(), 1)
}

func TestMeter_PartialFrameIgnored(t *testing.T) {
	t.Parallel()

	meter, err := New(2, 48000)
	require.NoError(t, err)

	meter.AddFrames([]float32{0.5})

	assert.True(t, math.IsInf(meter.Momentary(), -1))
}

func TestMeter_Errors(t *testing.T) {
	t.Parallel()

	_, err := New(0, 48000)
	require.ErrorIs(t, err, ErrInvalidFormat)

	_, err = New(2, 0)
	require.ErrorIs(t, err, ErrInvalidFormat)

	meter, err := New(2, 48000)
	require.NoError(t, err)

	_, err = meter.TruePeak(2)
	require.ErrorIs(t, err, ErrInvalidChannel)

	_, err = meter.TruePeak(-1)
	require.ErrorIs(t, err, ErrInvalidChannel)

	assert.True(t, meter.Matches(2, 48000))
	assert.False(t, meter.Matches(1, 48000))
	assert.False(t, meter.Matches(2, 44100))
}

func TestReadout(t *testing.T) {
	t.Parallel()

	_, err := Readout(nil)
	require.ErrorIs(t, err, ErrNoMeter)

	meter, err := New(1, 48000)
	require.NoError(t, err)

	readout, err := Readout(meter)
	require.NoError(t, err)
	assert.InDelta(t, Floor, readout.ShortTerm, 0)
	assert.InDelta(t, Floor, readout.Integrated, 0)

	meter.AddFrames([]float32{0.5, -0.25})

	readout, err = Readout(meter)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, readout.TruePeakLeft, 0.5)
	assert.InDelta(t, readout.TruePeakLeft, readout.TruePeakRight, 0)
}

//nolint:staticcheck // too dumb on Db vs. DB
package types

import "time"

// Point is one (x, y) entry of a chart series.
type Point struct {
	X float64
	Y float64
}

// Mode selects where the analyzed samples come from.
type Mode int

const (
	ModePlayer  Mode = iota // samples come from the loaded file at the play position
	ModeCapture             // samples come from the capture ring buffer
)

func (m Mode) String() string {
	switch m {
	case ModePlayer:
		return "player"
	case ModeCapture:
		return "capture"
	}

	return "unknown"
}

/*
Scroll States

| State     | Condition                         | Visible window                    | Playhead (chart x)           |
|-----------|-----------------------------------|-----------------------------------|------------------------------|
| at-zero   | pos <= window/2                   | [0, window)                       | pos                          |
| scrolling | interior                          | [pos - window/2, pos + window/2)  | window/2 (center)            |
| at-end    | pos + window/2 >= total           | [total - window, total)           | pos - start (slides to edge) |
| trailing  | capture mode                      | last window of the capture buffer | none (-1)                    |

at-end is evaluated first, so a file shorter than the window is always at-end.
*/

// ScrollState tells which portion of the audio the waveform window displays.
type ScrollState int

const (
	ScrollAtZero ScrollState = iota
	ScrollScrolling
	ScrollAtEnd
	ScrollTrailing
)

func (s ScrollState) String() string {
	switch s {
	case ScrollAtZero:
		return "at-zero"
	case ScrollScrolling:
		return "scrolling"
	case ScrollAtEnd:
		return "at-end"
	case ScrollTrailing:
		return "trailing"
	}

	return "unknown"
}

// Waveform is a fixed-density amplitude series (one point per millisecond) and its scroll state.
type Waveform struct {
	State    ScrollState
	Start    int     // first frame of the visible window
	End      int     // one past the last frame of the visible window
	Playhead float64 // chart x of the playhead, in milliseconds from the window start; -1 when trailing
	Points   []Point // x in milliseconds, y in [-1, 1]
}

// LoudnessReadout contains the scalar loudness values shown next to the history chart.
// Non-finite measurements are already mapped to the display floor.
type LoudnessReadout struct {
	ShortTerm     float64 // LUFS, 3s window
	Momentary     float64 // LUFS, 400ms window
	Integrated    float64 // LUFS, gated
	Range         float64 // LU
	TruePeakLeft  float64 // linear
	TruePeakRight float64 // linear
}

/*
Stereo Readout Interpretation

| Correlation | Width       | Meaning                            |
|-------------|-------------|------------------------------------|
| > 0.95      | < 0.05      | Mono content, side channel empty   |
| 0.5 - 0.95  | 0.05 - 0.5  | Normal stereo image                |
| 0 - 0.5     | 0.5 - 1     | Wide, decorrelated                 |
| < 0         | > 1         | Out of phase, collapses in mono    |

Width is side RMS over mid RMS. Balance is left RMS minus right RMS in dB (positive = left louder).
*/

// StereoReadout describes the stereo field of the analyzed window.
type StereoReadout struct {
	Correlation float64
	Width       float64
	BalanceDb   float64
	Frames      int
}

// Frame is everything the render consumer needs for one tick.
type Frame struct {
	Mode       Mode
	Title      string
	Generation uint64
	Playing    bool
	Position   time.Duration
	Duration   time.Duration

	MidSpectrum  []Point // x: log-frequency chart position, y: dB
	SideSpectrum []Point
	Waveform     Waveform
	History      []Point // x: tick index, y: short-term LUFS
	Loudness     LoudnessReadout
	Stereo       StereoReadout

	Notice string // empty when no notice is active
}

// ChannelClipping contains per channel clipping results.
type ChannelClipping struct {
	Events         uint64
	ClippedSamples uint64
	LongestRun     uint64
}

// ClippingReadout counts runs of consecutive full-scale samples.
type ClippingReadout struct {
	Events         uint64
	ClippedSamples uint64
	LongestRun     uint64
	Samples        uint64
	Channels       []ChannelClipping
}

// DCOffsetReadout contains DC offset results.
type DCOffsetReadout struct {
	Offset   float64   // mean magnitude of the per-channel offsets, normalized
	OffsetDb float64   // offset in dB, -120 floor
	Channels []float64 // per-channel offset, normalized
}

// Package loudness measures EBU R128 loudness incrementally and keeps the short-term history chart.
package loudness

import (
	"errors"
	"fmt"
	"math"

	"github.com/farcloser/tympanum/internal/types"
)

var (
	// ErrNoMeter is returned when a readout is requested before a meter exists for the current format.
	ErrNoMeter = errors.New("no loudness meter for the current format")
	// ErrInvalidChannel is returned for an out of range true peak channel.
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrInvalidFormat is returned by New for a non-positive channel count or rate.
	ErrInvalidFormat = errors.New("invalid meter format")
)

const (
	momentaryWindow = 400  // ms
	shortTermWindow = 3000 // ms
	hopWindow       = 100  // ms

	absoluteGate     = -70.0 // LUFS
	relativeGate     = -10.0 // LU below the absolute-gated mean, integrated
	rangeGate        = -20.0 // LU below the absolute-gated mean, loudness range
	rangeLowQuantile = 0.10
	rangeTopQuantile = 0.95
)

// window is a running sum over the last len(buf) frame powers.
type window struct {
	buf    []float64
	pos    int
	sum    float64
	filled int
}

func newWindow(size int) window {
	return window{buf: make([]float64, max(size, 1))}
}

func (w *window) add(power float64) {
	w.sum += power - w.buf[w.pos]
	w.buf[w.pos] = power
	w.pos = (w.pos + 1) % len(w.buf)

	if w.filled < len(w.buf) {
		w.filled++
	}
}

func (w *window) full() bool { return w.filled == len(w.buf) }

// mean is the mean power over the whole window, counting frames not yet received as silence.
func (w *window) mean() float64 {
	return math.Max(w.sum, 0) / float64(len(w.buf))
}

func (w *window) reset() {
	clear(w.buf)
	w.pos = 0
	w.sum = 0
	w.filled = 0
}

// Meter is an ITU-R BS.1770 / EBU R128 meter bound to one (channels, rate) pair. A format change needs a
// new Meter. It is not safe for concurrent use.
type Meter struct {
	channels int
	rate     int

	pre, rlb biquad
	preState []biquadState
	rlbState []biquadState
	peaks    []peakTracker

	momentary window
	shortTerm window
	hop       int
	sinceHop  int

	// Mean powers of every completed 400ms gating block (75% overlap) and 3s short-term block.
	blocks      []float64
	rangeBlocks []float64
}

func New(channels, rate int) (*Meter, error) {
	if channels <= 0 || rate <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidFormat, channels, rate)
	}

	pre, rlb := kWeighting(rate)

	return &Meter{
		channels:  channels,
		rate:      rate,
		pre:       pre,
		rlb:       rlb,
		preState:  make([]biquadState, channels),
		rlbState:  make([]biquadState, channels),
		peaks:     make([]peakTracker, channels),
		momentary: newWindow(rate * momentaryWindow / 1000),
		shortTerm: newWindow(rate * shortTermWindow / 1000),
		hop:       max(rate*hopWindow/1000, 1),
	}, nil
}

func (m *Meter) Channels() int { return m.channels }
func (m *Meter) Rate() int     { return m.rate }

// Matches reports whether the meter can be reused for the given format.
func (m *Meter) Matches(channels, rate int) bool {
	return m.channels == channels && m.rate == rate
}

// AddFrames feeds interleaved samples. A trailing partial frame is ignored.
func (m *Meter) AddFrames(samples []float32) {
	frames := len(samples) / m.channels

	for f := range frames {
		frame := samples[f*m.channels : (f+1)*m.channels]

		var power float64

		for ch, value := range frame {
			sample := float64(value)
			m.peaks[ch].add(sample)

			filtered := m.preState[ch].process(&m.pre, sample)
			filtered = m.rlbState[ch].process(&m.rlb, filtered)
			power += channelWeight(ch, m.channels) * filtered * filtered
		}

		m.momentary.add(power)
		m.shortTerm.add(power)

		m.sinceHop++
		if m.sinceHop < m.hop {
			continue
		}

		m.sinceHop = 0

		if m.momentary.full() {
			m.blocks = append(m.blocks, m.momentary.mean())
		}

		if m.shortTerm.full() {
			m.rangeBlocks = append(m.rangeBlocks, m.shortTerm.mean())
		}
	}
}

// Momentary is the loudness of the last 400ms in LUFS, -Inf before any frame.
func (m *Meter) Momentary() float64 {
	if m.momentary.filled == 0 {
		return math.Inf(-1)
	}

	return lufs(m.momentary.mean())
}

// ShortTerm is the loudness of the last 3s in LUFS, -Inf before any frame.
func (m *Meter) ShortTerm() float64 {
	if m.shortTerm.filled == 0 {
		return math.Inf(-1)
	}

	return lufs(m.shortTerm.mean())
}

// Integrated is the gated loudness since creation or the last Reset, -Inf until a block passes the gates.
func (m *Meter) Integrated() float64 {
	return integrated(m.blocks)
}

// Blocks is the number of 400ms gating blocks measured since creation or the last Reset.
func (m *Meter) Blocks() int { return len(m.blocks) }

// Range is the loudness range in LU, 0 until enough short-term blocks exist.
func (m *Meter) Range() float64 {
	return loudnessRange(m.rangeBlocks)
}

// TruePeak is the linear 4x oversampled peak of channel since creation or the last Reset.
func (m *Meter) TruePeak(channel int) (float64, error) {
	if channel < 0 || channel >= m.channels {
		return 0, fmt.Errorf("%w: %d of %d", ErrInvalidChannel, channel, m.channels)
	}

	return m.peaks[channel].peak, nil
}

// Reset clears every statistic, including the integrated gating blocks and the true peaks, without
// reallocating.
func (m *Meter) Reset() {
	clear(m.preState)
	clear(m.rlbState)
	clear(m.peaks)
	m.momentary.reset()
	m.shortTerm.reset()
	m.sinceHop = 0
	m.blocks = m.blocks[:0]
	m.rangeBlocks = m.rangeBlocks[:0]
}

// Readout collects the scalar values shown next to the history chart, mapped for display.
// Mono reports the same true peak on both sides.
func Readout(m *Meter) (types.LoudnessReadout, error) {
	if m == nil {
		return types.LoudnessReadout{}, ErrNoMeter
	}

	left, err := m.TruePeak(0)
	if err != nil {
		return types.LoudnessReadout{}, err
	}

	right := left
	if m.channels > 1 {
		if right, err = m.TruePeak(1); err != nil {
			return types.LoudnessReadout{}, err
		}
	}

	return types.LoudnessReadout{
		ShortTerm:     Display(m.ShortTerm()),
		Momentary:     Display(m.Momentary()),
		Integrated:    Display(m.Integrated()),
		Range:         m.Range(),
		TruePeakLeft:  left,
		TruePeakRight: right,
	}, nil
}

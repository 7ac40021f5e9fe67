// Package store holds decoded audio in the three layouts the analyzers read: interleaved, mid and side.
package store

import (
	"errors"
	"time"
)

var (
	ErrInvalidRate     = errors.New("sample rate must be positive")
	ErrInvalidChannels = errors.New("channel count must be positive")
)

// AudioFile is a fully decoded file. It is never mutated after New returns, so it can be handed
// across goroutines by pointer.
type AudioFile struct {
	title      string
	samples    []float32
	mid        []float32
	side       []float32
	sampleRate int
	channels   int
	duration   time.Duration
	generation uint64
}

// New builds an AudioFile from interleaved samples, deriving mid and side from channels 0 and 1.
// A trailing partial frame is dropped.
func New(title string, samples []float32, sampleRate, channels int) (*AudioFile, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidRate
	}

	if channels <= 0 {
		return nil, ErrInvalidChannels
	}

	frames := len(samples) / channels
	samples = samples[:frames*channels]

	mid, side := MidSide(samples, channels)

	return &AudioFile{
		title:      title,
		samples:    samples,
		mid:        mid,
		side:       side,
		sampleRate: sampleRate,
		channels:   channels,
		duration:   time.Duration(float64(len(mid)) / float64(sampleRate) * float64(time.Second)),
	}, nil
}

// MidSide de-interleaves channels 0 and 1 and returns (l+r)/2 and (l-r)/2 per frame.
// Mono input yields the channel itself as mid and silence as side.
func MidSide(samples []float32, channels int) (mid, side []float32) {
	frames := len(samples) / channels
	mid = make([]float32, frames)
	side = make([]float32, frames)

	if channels == 1 {
		copy(mid, samples[:frames])

		return mid, side
	}

	for f := range frames {
		left := samples[f*channels]
		right := samples[f*channels+1]
		mid[f] = (left + right) / 2
		side[f] = (left - right) / 2
	}

	return mid, side
}

// WithGeneration returns a shallow copy tagged with the given generation. Sample slices are shared.
func (a *AudioFile) WithGeneration(generation uint64) *AudioFile {
	clone := *a
	clone.generation = generation

	return &clone
}

func (a *AudioFile) Title() string           { return a.title }
func (a *AudioFile) SampleRate() int         { return a.sampleRate }
func (a *AudioFile) Channels() int           { return a.channels }
func (a *AudioFile) Duration() time.Duration { return a.duration }
func (a *AudioFile) Generation() uint64      { return a.generation }

// Samples returns the interleaved samples. Callers must not modify the returned slice.
func (a *AudioFile) Samples() []float32 { return a.samples }

// Mid returns the per-frame mid signal. Callers must not modify the returned slice.
func (a *AudioFile) Mid() []float32 { return a.mid }

// Side returns the per-frame side signal. Callers must not modify the returned slice.
func (a *AudioFile) Side() []float32 { return a.side }

// Len is the number of interleaved samples.
func (a *AudioFile) Len() int { return len(a.samples) }

// Frames is the number of frames (samples per channel).
func (a *AudioFile) Frames() int { return len(a.mid) }

// MidWindow returns mid[start:end] with both bounds clamped to the file.
func (a *AudioFile) MidWindow(start, end int) []float32 {
	start, end = clampRange(start, end, len(a.mid))

	return a.mid[start:end]
}

// SideWindow returns side[start:end] with both bounds clamped to the file.
func (a *AudioFile) SideWindow(start, end int) []float32 {
	start, end = clampRange(start, end, len(a.side))

	return a.side[start:end]
}

// SampleSpan returns interleaved samples[start:end], clamped to the file and aligned down to whole frames.
func (a *AudioFile) SampleSpan(start, end int) []float32 {
	start = start / a.channels * a.channels
	end = end / a.channels * a.channels
	start, end = clampRange(start, end, len(a.samples))

	return a.samples[start:end]
}

// FrameAt converts an interleaved cursor into a frame index clamped to the file.
func (a *AudioFile) FrameAt(cursor int) int {
	return min(max(cursor, 0), len(a.samples)) / a.channels
}

// TimeAt converts an interleaved cursor into a play time.
func (a *AudioFile) TimeAt(cursor int) time.Duration {
	return time.Duration(float64(a.FrameAt(cursor)) / float64(a.sampleRate) * float64(time.Second))
}

func clampRange(start, end, length int) (int, int) {
	start = min(max(start, 0), length)
	end = min(max(end, start), length)

	return start, end
}

// Package waveform extracts the scrolling amplitude view around the play position.
package waveform

import (
	"time"

	"github.com/farcloser/tympanum/internal/types"
)

// NoPlayhead is the Playhead of a trailing (capture) view.
const NoPlayhead = -1.0

// Extract returns the player view of mid at frame pos. The result depends only on its arguments.
//
// The visible window is window long: centered on pos while scrolling, pinned to the start of the file
// for the first half window and to its end for the last half window. A file shorter than the window is
// always at the end.
func Extract(mid []float32, pos, rate int, window time.Duration) types.Waveform {
	total := len(mid)
	frames := windowFrames(rate, window)
	half := frames / 2
	pos = min(max(pos, 0), total)

	view := types.Waveform{}

	switch {
	case pos+half >= total:
		view.State = types.ScrollAtEnd
		view.Start = max(total-frames, 0)
		view.End = total
		view.Playhead = framesToMs(pos-view.Start, rate)
	case pos <= half:
		view.State = types.ScrollAtZero
		view.Start = 0
		view.End = min(frames, total)
		view.Playhead = framesToMs(pos, rate)
	default:
		view.State = types.ScrollScrolling
		view.Start = pos - half
		view.End = view.Start + frames
		view.Playhead = framesToMs(half, rate)
	}

	view.Points = series(mid, view.Start, view.End, rate, window)

	return view
}

// Trailing returns the capture view: the newest window of samples, without a playhead.
func Trailing(samples []float32, rate int, window time.Duration) types.Waveform {
	end := len(samples)
	start := max(end-windowFrames(rate, window), 0)

	return types.Waveform{
		State:    types.ScrollTrailing,
		Start:    start,
		End:      end,
		Playhead: NoPlayhead,
		Points:   series(samples, start, end, rate, window),
	}
}

// series samples src[start:end] every rate/1000 frames, one point per millisecond of window. Points past
// end are zero, so the length is always the window in milliseconds.
func series(src []float32, start, end, rate int, window time.Duration) []types.Point {
	stride := max(rate/1000, 1)
	count := int(window.Milliseconds())
	points := make([]types.Point, count)

	for ms := range count {
		points[ms].X = float64(ms)

		if index := start + ms*stride; index < end {
			points[ms].Y = float64(src[index])
		}
	}

	return points
}

func windowFrames(rate int, window time.Duration) int {
	return int(window.Seconds() * float64(rate))
}

func framesToMs(frames, rate int) float64 {
	return float64(frames) * 1000 / float64(rate)
}

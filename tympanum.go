// Package tympanum inspects audio: it decodes files, plays or captures them, and derives the views a
// render loop needs (mid/side spectra, scrolling waveform, EBU R128 loudness and stereo field).
package tympanum

/*
Usage:

// Offline: decode, meter the whole file and compute the views 30 seconds in.
report, err := tympanum.Inspect(ctx, decode.DefaultRegistry(), "track.flac", 30*time.Second, tympanum.DefaultOptions())
fmt.Printf("%.1f LUFS integrated\n", report.Loudness.Integrated)

// Live: play a file through the speaker and render a frame every 500ms.
err := tympanum.Play(ctx, decode.DefaultRegistry(), speakerSink, "track.flac", opts, func(frame *types.Frame) error {
    fmt.Println(frame.Position, frame.Loudness.ShortTerm)
    return nil
})
*/

import (
	"time"

	"github.com/farcloser/tympanum/internal/analysis/loudness"
	"github.com/farcloser/tympanum/internal/analysis/spectral"
	"github.com/farcloser/tympanum/internal/monitor"
)

// Options configures the views and the render cadence.
type Options struct {
	Window     time.Duration // waveform window (default 15s)
	SeekStep   time.Duration // seek increment (default 5s)
	Tick       time.Duration // render tick (default 8ms)
	Interval   time.Duration // how often frames are handed to the caller (default: every tick)
	Start      time.Duration // initial seek for Play
	Lookback   int           // frames analyzed behind the play position (default 16384)
	ChartWidth float64       // log-frequency axis width (default 100)
	HistoryLen int           // short-term loudness chart length (default 300)
	NoticeTTL  time.Duration // notice lifetime (default 5s)
}

// DefaultOptions returns the interactive defaults.
func DefaultOptions() Options {
	return Options{
		Window:     15 * time.Second,
		SeekStep:   5 * time.Second,
		Tick:       8 * time.Millisecond,
		Lookback:   spectral.MaxTransform,
		ChartWidth: spectral.DefaultWidth,
		HistoryLen: loudness.HistoryLen,
		NoticeTTL:  5 * time.Second,
	}
}

// MonitorConfig converts the options for the monitor.
func (o Options) MonitorConfig() monitor.Config {
	return monitor.Config{
		Window:     o.Window,
		Lookback:   o.Lookback,
		ChartWidth: o.ChartWidth,
		HistoryLen: o.HistoryLen,
		NoticeTTL:  o.NoticeTTL,
	}
}

func (o Options) tick() time.Duration {
	if o.Tick <= 0 {
		return DefaultOptions().Tick
	}

	return o.Tick
}

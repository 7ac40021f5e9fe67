package tympanum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/farcloser/tympanum/internal/analysis/levels"
	"github.com/farcloser/tympanum/internal/analysis/loudness"
	"github.com/farcloser/tympanum/internal/analysis/spectral"
	"github.com/farcloser/tympanum/internal/monitor"
	"github.com/farcloser/tympanum/internal/playback"
	"github.com/farcloser/tympanum/internal/store"
	"github.com/farcloser/tympanum/internal/types"
)

var errOffline = errors.New("inspection has no playback engine")

// Report is the result of an offline inspection.
type Report struct {
	Title      string
	SampleRate int
	Channels   int
	Frames     int
	Duration   time.Duration
	At         time.Duration // position the views were computed at

	// Whole-file loudness.
	Loudness     types.LoudnessReadout
	MaxMomentary float64 // LUFS, display floor when never measured
	MaxShortTerm float64 // LUFS, display floor when never measured

	// Sample-level defects over the whole file.
	Clipping types.ClippingReadout
	DCOffset types.DCOffsetReadout

	// Strongest mid bin at At.
	PeakFrequency float64 // Hz, 0 when the spectrum is empty
	PeakDb        float64

	// View is the frame a monitor renders at At, loudness measured from the start up to At.
	View *types.Frame
}

// offline stands in for the engine when a monitor is driven from a fixed position.
type offline struct{}

func (offline) Send(playback.Command) error { return errOffline }
func (offline) State() playback.State       { return playback.StatePaused }

// Inspect decodes path, meters the whole file and computes the views at the given position.
func Inspect(ctx context.Context, decoder playback.FileDecoder, path string, at time.Duration, opts Options) (*Report, error) {
	slog.Debug("tympanum.Inspect", "file path", path, "at", at, "stage", "start")

	file, err := decoder.File(ctx, path)
	if err != nil {
		return nil, err
	}

	file = file.WithGeneration(1)

	report := &Report{
		Title:      file.Title(),
		SampleRate: file.SampleRate(),
		Channels:   file.Channels(),
		Frames:     file.Frames(),
		Duration:   file.Duration(),
		At:         min(max(at, 0), file.Duration()),
	}

	if err = measure(ctx, file, report); err != nil {
		return nil, err
	}

	report.Clipping = levels.Clipping(file.Samples(), file.Channels())
	report.DCOffset = levels.DCOffset(file.Samples(), file.Channels())

	slog.Debug("tympanum.Inspect", "file path", path, "stage", "measured", "integrated", report.Loudness.Integrated)

	if report.View, err = view(file, report.At, opts); err != nil {
		return nil, err
	}

	if peak, ok := spectral.Peak(report.View.MidSpectrum); ok {
		report.PeakFrequency = spectral.Frequency(peak.X, opts.MonitorConfig().ChartWidth)
		report.PeakDb = peak.Y
	}

	slog.Debug("tympanum.Inspect", "file path", path, "stage", "done")

	return report, nil
}

// measure runs the file through a meter one 100ms hop at a time, tracking the loudest windows.
func measure(ctx context.Context, file *store.AudioFile, report *Report) error {
	meter, err := loudness.New(file.Channels(), file.SampleRate())
	if err != nil {
		return err
	}

	hop := max(file.SampleRate()/10, 1) * file.Channels()
	maxMomentary := math.Inf(-1)
	maxShortTerm := math.Inf(-1)

	for start := 0; start < file.Len(); start += hop {
		if err = ctx.Err(); err != nil {
			return err
		}

		meter.AddFrames(file.SampleSpan(start, start+hop))
		maxMomentary = math.Max(maxMomentary, meter.Momentary())
		maxShortTerm = math.Max(maxShortTerm, meter.ShortTerm())
	}

	if report.Loudness, err = loudness.Readout(meter); err != nil {
		return err
	}

	report.MaxMomentary = loudness.Display(maxMomentary)
	report.MaxShortTerm = loudness.Display(maxShortTerm)

	return nil
}

// view drives a monitor as if playback had just reached at.
func view(file *store.AudioFile, at time.Duration, opts Options) (*types.Frame, error) {
	files := make(chan *store.AudioFile, 1)
	files <- file

	cursor := min(int(at.Seconds()*float64(file.SampleRate()))*file.Channels(), file.Len())

	// Reported block by block, as a playing source would, so the monitor meters [0, cursor).
	positions := playback.NewPositionQueue()
	for block := 0; block < cursor; block += playback.BlockSize {
		positions.Push(playback.Position{Generation: file.Generation(), Cursor: block})
	}

	positions.Push(playback.Position{Generation: file.Generation(), Cursor: cursor})

	mon := monitor.New(opts.MonitorConfig(), offline{}, files, nil, positions)

	frame, err := mon.Tick(time.Now())
	if err != nil {
		return nil, fmt.Errorf("computing views at %s: %w", at, err)
	}

	return frame, nil
}

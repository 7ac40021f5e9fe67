// Package monitor is the consumer side of the playback engine: it adopts decoded files, follows the
// reported play position and turns the audio around it into a render frame.
//
// A Monitor is driven by a single goroutine. It never touches the sink and never reads the engine
// cursor directly: everything it knows about playback arrives through the file, error and position
// channels, and every position is validated against the file it was issued for.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/farcloser/tympanum/internal/analysis/loudness"
	"github.com/farcloser/tympanum/internal/analysis/spectral"
	"github.com/farcloser/tympanum/internal/analysis/stereo"
	"github.com/farcloser/tympanum/internal/analysis/waveform"
	"github.com/farcloser/tympanum/internal/capture"
	"github.com/farcloser/tympanum/internal/playback"
	"github.com/farcloser/tympanum/internal/store"
	"github.com/farcloser/tympanum/internal/types"
)

var (
	// ErrChannelDisconnected is returned once the engine side of a channel is gone.
	ErrChannelDisconnected = errors.New("engine channel disconnected")
	// ErrNoCapture is reported when capture mode is requested without a capture ring.
	ErrNoCapture = errors.New("no capture device")
)

// Player is the engine side a Monitor talks to.
type Player interface {
	Send(cmd playback.Command) error
	State() playback.State
}

// PositionSource is drained once per tick.
type PositionSource interface {
	Drain() (positions []playback.Position, open bool)
}

// Monitor holds the view state. It is not safe for concurrent use.
type Monitor struct {
	cfg       Config
	player    Player
	files     <-chan *store.AudioFile
	errs      <-chan error
	positions PositionSource

	mode types.Mode

	file   *store.AudioFile
	cursor int    // last validated interleaved cursor
	fed    int    // interleaved cursor up to which the meter has been fed
	epoch  uint64 // of the last Seek or resume sent
	resync bool

	ring        *capture.Ring
	ringWritten uint64

	meter    *loudness.Meter
	history  *loudness.History
	analyzer *spectral.Analyzer
	readout  types.LoudnessReadout

	notice       string
	noticeExpiry time.Time
	lastErr      error
}

// New returns a Monitor in player mode with nothing loaded.
func New(
	cfg Config,
	player Player,
	files <-chan *store.AudioFile,
	errs <-chan error,
	positions PositionSource,
) *Monitor {
	cfg = cfg.withDefaults()

	return &Monitor{
		cfg:       cfg,
		player:    player,
		files:     files,
		errs:      errs,
		positions: positions,
		mode:      types.ModePlayer,
		history:   loudness.NewHistory(cfg.HistoryLen),
		analyzer:  spectral.NewAnalyzer(cfg.ChartWidth),
		readout:   floorReadout(),
	}
}

// Mode returns the current sample source.
func (m *Monitor) Mode() types.Mode { return m.mode }

// File returns the adopted file, or nil.
func (m *Monitor) File() *store.AudioFile { return m.file }

// Cursor returns the last validated interleaved cursor into File.
func (m *Monitor) Cursor() int { return m.cursor }

// LastError returns the most recent error reported by the engine, or nil.
func (m *Monitor) LastError() error { return m.lastErr }

// Notify sets the notice shown for the configured TTL.
func (m *Monitor) Notify(now time.Time, msg string) {
	m.notice = msg
	m.noticeExpiry = now.Add(m.cfg.NoticeTTL)
}

func (m *Monitor) notifyErr(now time.Time, err error) {
	slog.Debug("monitor.notice", "error", err)
	m.Notify(now, err.Error())
}

// Tick drains every channel and recomputes the frame.
func (m *Monitor) Tick(now time.Time) (*types.Frame, error) {
	if err := m.drainFiles(now); err != nil {
		return nil, err
	}

	if err := m.drainErrors(now); err != nil {
		return nil, err
	}

	advanced, err := m.drainPositions()
	if err != nil {
		return nil, err
	}

	if !m.noticeExpiry.IsZero() && !now.Before(m.noticeExpiry) {
		m.notice = ""
		m.noticeExpiry = time.Time{}
	}

	var frame *types.Frame

	if m.mode == types.ModeCapture {
		frame = m.captureFrame(now)
	} else {
		frame = m.playerFrame(now, advanced)
	}

	frame.Notice = m.notice

	return frame, nil
}

// Run ticks every interval and hands each frame to render, until ctx ends, render fails, or a peer
// channel disconnects.
func (m *Monitor) Run(ctx context.Context, interval time.Duration, render func(*types.Frame) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			frame, err := m.Tick(now)
			if err != nil {
				return err
			}

			if err = render(frame); err != nil {
				return err
			}
		}
	}
}

func (m *Monitor) drainFiles(now time.Time) error {
	for {
		select {
		case file, ok := <-m.files:
			if !ok {
				return fmt.Errorf("%w: files", ErrChannelDisconnected)
			}

			m.adopt(now, file)
		default:
			return nil
		}
	}
}

func (m *Monitor) drainErrors(now time.Time) error {
	for {
		select {
		case err, ok := <-m.errs:
			if !ok {
				return fmt.Errorf("%w: errors", ErrChannelDisconnected)
			}

			m.lastErr = err
			m.notifyErr(now, err)
		default:
			return nil
		}
	}
}

// drainPositions consumes every pending position and reports whether the meter was fed.
func (m *Monitor) drainPositions() (bool, error) {
	positions, open := m.positions.Drain()

	advanced := false

	for _, position := range positions {
		if m.file == nil || position.Generation != m.file.Generation() {
			slog.Debug("monitor.drainPositions", "stale generation", position.Generation, "cursor", position.Cursor)

			continue
		}

		// Reported before the engine applied the last seek or resume.
		if position.Epoch < m.epoch {
			slog.Debug("monitor.drainPositions", "stale epoch", position.Epoch, "cursor", position.Cursor)

			continue
		}

		m.cursor = min(max(position.Cursor, 0), m.file.Len())

		if m.feed() {
			advanced = true
		}
	}

	if !open {
		return advanced, fmt.Errorf("%w: positions", ErrChannelDisconnected)
	}

	return advanced, nil
}

// feed hands [fed, cursor) to the meter. Backward jumps and resyncs move the mark without feeding.
// While playing, positions arrive at most one block apart, so a wider gap is a seek as well.
func (m *Monitor) feed() bool {
	if m.resync || m.cursor < m.fed || m.cursor-m.fed > playback.BlockSize {
		m.fed = m.cursor
		m.resync = false

		return false
	}

	span := m.file.SampleSpan(m.fed, m.cursor)
	m.fed = m.cursor

	if len(span) == 0 || m.meter == nil {
		return false
	}

	m.meter.AddFrames(span)

	return true
}

func (m *Monitor) adopt(now time.Time, file *store.AudioFile) {
	slog.Debug("monitor.adopt", "title", file.Title(), "generation", file.Generation(), "stage", "start")

	m.file = file
	m.cursor = 0
	m.fed = 0
	m.resync = false

	if m.mode == types.ModePlayer {
		m.rebuildMeter(now, file.Channels(), file.SampleRate())
	}

	m.history.Reset()
	m.readout = floorReadout()
}

// rebuildMeter reuses the meter when the format matches.
func (m *Monitor) rebuildMeter(now time.Time, channels, rate int) {
	if m.meter != nil && m.meter.Matches(channels, rate) {
		m.meter.Reset()

		return
	}

	meter, err := loudness.New(channels, rate)
	if err != nil {
		m.meter = nil
		m.notifyErr(now, err)

		return
	}

	m.meter = meter
}

func (m *Monitor) resetLoudness() {
	if m.meter != nil {
		m.meter.Reset()
	}

	m.history.Reset()
	m.readout = floorReadout()
}

func (m *Monitor) playerFrame(now time.Time, advanced bool) *types.Frame {
	frame := &types.Frame{
		Mode:     types.ModePlayer,
		Playing:  m.player.State() == playback.StatePlaying,
		History:  m.history.Points(),
		Loudness: m.readout,
		Waveform: types.Waveform{Playhead: waveform.NoPlayhead},
	}

	if m.file == nil {
		return frame
	}

	file := m.file
	pos := file.FrameAt(m.cursor)
	from := max(pos-m.cfg.Lookback, 0)

	frame.Title = file.Title()
	frame.Generation = file.Generation()
	frame.Position = file.TimeAt(m.cursor)
	frame.Duration = file.Duration()

	// Near the start of the file there is not enough audio behind the cursor; the spectra stay empty.
	frame.MidSpectrum, frame.SideSpectrum = m.spectra(now, file.MidWindow(from, pos), file.SideWindow(from, pos),
		file.SampleRate(), pos >= spectral.MinTransform)
	frame.Waveform = waveform.Extract(file.Mid(), pos, file.SampleRate(), m.cfg.Window)
	frame.Stereo = stereo.Analyze(file.SampleSpan(from*file.Channels(), pos*file.Channels()), file.Channels())

	if advanced && m.meter != nil {
		m.history.Push(m.meter.ShortTerm())
	}

	frame.History = m.history.Points()
	frame.Loudness = m.loudnessReadout(now)

	return frame
}

func (m *Monitor) captureFrame(now time.Time) *types.Frame {
	frame := &types.Frame{
		Mode:     types.ModeCapture,
		Title:    "capture",
		Playing:  true,
		History:  m.history.Points(),
		Loudness: m.readout,
		Waveform: types.Waveform{State: types.ScrollTrailing, Playhead: waveform.NoPlayhead},
	}

	if m.ring == nil {
		return frame
	}

	rate := m.ring.SampleRate()
	view := max(int(m.cfg.Window.Seconds()*float64(rate)), m.cfg.Lookback)

	// The copy and the counter come from one read, so the meter sees each sample exactly once.
	samples, written, fresh := m.ring.Since(m.ringWritten, view)
	m.ringWritten = written

	if fresh > 0 && m.meter != nil {
		m.meter.AddFrames(samples[len(samples)-fresh:])
		m.history.Push(m.meter.ShortTerm())
	}

	retained := min(written, uint64(m.ring.Capacity()))
	tail := samples[max(len(samples)-m.cfg.Lookback, 0):]

	frame.Position = time.Duration(float64(retained) / float64(rate) * float64(time.Second))
	frame.Duration = time.Duration(float64(m.ring.Capacity()) / float64(rate) * float64(time.Second))
	frame.MidSpectrum, frame.SideSpectrum = m.spectra(now, tail, nil, rate, len(samples) > 0)
	frame.Waveform = waveform.Trailing(samples, rate, m.cfg.Window)
	frame.Stereo = stereo.Analyze(tail, 1)
	frame.History = m.history.Points()
	frame.Loudness = m.loudnessReadout(now)

	return frame
}

// spectra analyzes mid and side. A short window yields empty series; the notice is raised only when
// warn is set.
func (m *Monitor) spectra(now time.Time, mid, side []float32, rate int, warn bool) ([]types.Point, []types.Point) {
	midPoints, err := m.analyzer.Spectrum(mid, rate)
	if err != nil {
		if warn || !errors.Is(err, spectral.ErrInsufficientSamples) {
			m.notifyErr(now, err)
		}

		return []types.Point{}, []types.Point{}
	}

	if side == nil {
		return midPoints, []types.Point{}
	}

	sidePoints, err := m.analyzer.Spectrum(side, rate)
	if err != nil {
		m.notifyErr(now, err)

		return midPoints, []types.Point{}
	}

	return midPoints, sidePoints
}

// loudnessReadout keeps the last good readout when the meter is missing.
func (m *Monitor) loudnessReadout(now time.Time) types.LoudnessReadout {
	readout, err := loudness.Readout(m.meter)
	if err != nil {
		m.notifyErr(now, err)

		return m.readout
	}

	m.readout = readout

	return readout
}

func floorReadout() types.LoudnessReadout {
	return types.LoudnessReadout{
		ShortTerm:  loudness.Floor,
		Momentary:  loudness.Floor,
		Integrated: loudness.Floor,
	}
}

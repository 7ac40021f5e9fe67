package monitor

import (
	"time"

	"github.com/farcloser/tympanum/internal/capture"
	"github.com/farcloser/tympanum/internal/playback"
	"github.com/farcloser/tympanum/internal/types"
)

// send forwards cmd to the engine. A refused command raises a notice and leaves the views untouched;
// playback.ErrBusy is returned so the caller can retry.
func (m *Monitor) send(now time.Time, cmd playback.Command) error {
	err := m.player.Send(cmd)
	if err != nil {
		m.notifyErr(now, err)
	}

	return err
}

// SelectFile asks the engine to load path. The views switch once the decoded file arrives.
func (m *Monitor) SelectFile(now time.Time, path string) error {
	return m.send(now, playback.SelectFile{Path: path})
}

// TogglePlay flips play/pause. Loudness restarts when playback resumes.
func (m *Monitor) TogglePlay(now time.Time) error {
	if m.player.State() == playback.StatePlaying {
		return m.send(now, playback.TogglePlay{Epoch: m.epoch})
	}

	if err := m.send(now, playback.TogglePlay{Epoch: m.epoch + 1}); err != nil {
		return err
	}

	m.restart()

	return nil
}

// Seek moves the play position by delta and restarts loudness.
func (m *Monitor) Seek(now time.Time, delta time.Duration) error {
	if err := m.send(now, playback.Seek{Delta: delta, Epoch: m.epoch + 1}); err != nil {
		return err
	}

	m.restart()

	return nil
}

// restart opens a new epoch: positions reported before the engine applied the command are ignored,
// and the first one after it lands without feeding.
func (m *Monitor) restart() {
	m.epoch++
	m.resetLoudness()
	m.resync = true
}

// Stop halts playback without unloading the views.
func (m *Monitor) Stop(now time.Time) error {
	return m.send(now, playback.Stop{})
}

// Quit asks the engine to shut down.
func (m *Monitor) Quit() error {
	return m.player.Send(playback.Quit{})
}

// SetWindow changes the waveform window. Non-positive values are ignored.
func (m *Monitor) SetWindow(window time.Duration) {
	if window > 0 {
		m.cfg.Window = window
	}
}

// Window returns the waveform window.
func (m *Monitor) Window() time.Duration { return m.cfg.Window }

// SetCapture installs ring as the capture source. Samples already in the ring are not metered.
func (m *Monitor) SetCapture(now time.Time, ring *capture.Ring) {
	m.ring = ring
	if ring != nil {
		m.ringWritten = ring.Written()
	}

	if m.mode == types.ModeCapture {
		m.enterCapture(now)
	}
}

// SetMode switches the sample source. Loudness restarts on every switch.
func (m *Monitor) SetMode(now time.Time, mode types.Mode) error {
	if mode == types.ModeCapture && m.ring == nil {
		m.notifyErr(now, ErrNoCapture)

		return ErrNoCapture
	}

	if mode == m.mode {
		return nil
	}

	m.mode = mode

	if mode == types.ModeCapture {
		m.enterCapture(now)

		return nil
	}

	m.history.Reset()
	m.readout = floorReadout()
	m.meter = nil

	if m.file != nil {
		m.rebuildMeter(now, m.file.Channels(), m.file.SampleRate())
	}

	m.fed = m.cursor
	m.resync = true

	return nil
}

func (m *Monitor) enterCapture(now time.Time) {
	m.history.Reset()
	m.readout = floorReadout()
	m.meter = nil

	if m.ring == nil {
		return
	}

	m.ringWritten = m.ring.Written()
	m.rebuildMeter(now, 1, m.ring.SampleRate())
}

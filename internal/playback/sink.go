package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/farcloser/primordium/fault"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// ErrSinkUnavailable means no output device could be opened. The engine cannot continue without one.
var ErrSinkUnavailable = errors.New("audio output unavailable")

const resampleQuality = 4

// Sink is the audio output collaborator. Attach replaces whatever was playing with src, paused.
type Sink interface {
	Attach(src *Source) error
	Play()
	Pause()
	// Empty reports whether the attached source has been played to its end (or nothing is attached).
	Empty() bool
	// Do runs fn while the output is not pulling samples.
	Do(fn func())
	Clear()
	Close() error
}

// SpeakerSink plays through the default output device with beep's speaker.
//
// The speaker can only be initialised once per process, so it is opened at the rate of the first
// attached source and later sources at other rates are resampled to it.
type SpeakerSink struct {
	mu      sync.Mutex
	buffer  time.Duration
	rate    beep.SampleRate
	ctrl    *beep.Ctrl
	drained atomic.Bool
}

// NewSpeakerSink returns a sink whose output buffer holds buffer worth of audio.
func NewSpeakerSink(buffer time.Duration) *SpeakerSink {
	sink := &SpeakerSink{buffer: buffer}
	sink.drained.Store(true)

	return sink
}

func (s *SpeakerSink) Attach(src *Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fileRate := beep.SampleRate(src.File().SampleRate())

	if s.rate == 0 {
		slog.Debug("playback.SpeakerSink", "rate", fileRate, "buffer", s.buffer, "stage", "init")

		if err := speaker.Init(fileRate, fileRate.N(s.buffer)); err != nil {
			return fmt.Errorf("%w: %w: %w", ErrSinkUnavailable, fault.ErrMissingRequirements, err)
		}

		s.rate = fileRate
	}

	speaker.Clear()

	var streamer beep.Streamer = src
	if fileRate != s.rate {
		streamer = beep.Resample(resampleQuality, fileRate, s.rate, src)
	}

	s.ctrl = &beep.Ctrl{Streamer: streamer, Paused: true}
	s.drained.Store(false)

	speaker.Play(beep.Seq(s.ctrl, beep.Callback(func() {
		s.drained.Store(true)
	})))

	return nil
}

func (s *SpeakerSink) setPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl == nil {
		return
	}

	speaker.Lock()
	s.ctrl.Paused = paused
	speaker.Unlock()
}

func (s *SpeakerSink) Play()  { s.setPaused(false) }
func (s *SpeakerSink) Pause() { s.setPaused(true) }

func (s *SpeakerSink) Empty() bool {
	return s.drained.Load()
}

func (s *SpeakerSink) Do(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rate == 0 {
		fn()

		return
	}

	speaker.Lock()
	defer speaker.Unlock()

	fn()
}

func (s *SpeakerSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rate != 0 {
		speaker.Clear()
	}

	s.ctrl = nil
	s.drained.Store(true)
}

func (s *SpeakerSink) Close() error {
	s.Clear()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rate != 0 {
		speaker.Close()
		s.rate = 0
	}

	return nil
}

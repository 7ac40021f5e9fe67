package playback

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/farcloser/tympanum/internal/store"
)

var errSeekRange = errors.New("seek outside of the track")

// Source streams an AudioFile to the output and reports its cursor. It implements beep.StreamSeeker,
// where positions are counted in frames. Internally the cursor is an interleaved sample index.
type Source struct {
	mu        sync.Mutex
	file      *store.AudioFile
	cursor    int
	epoch     uint64
	positions *PositionQueue
}

func NewSource(file *store.AudioFile, positions *PositionQueue) *Source {
	return &Source{
		file:      file,
		positions: positions,
	}
}

// Stream fills samples with stereo frames. Mono is duplicated on both sides and channels beyond the
// second are not played.
func (s *Source) Stream(samples [][2]float64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.file.Samples()
	channels := s.file.Channels()
	before := s.cursor

	n := 0
	for n < len(samples) && s.cursor+channels <= len(data) {
		left := float64(data[s.cursor])
		right := left

		if channels > 1 {
			right = float64(data[s.cursor+1])
		}

		samples[n] = [2]float64{left, right}
		s.cursor += channels
		n++
	}

	for mark := (before/BlockSize + 1) * BlockSize; mark <= s.cursor; mark += BlockSize {
		s.report(mark)
	}

	// The tail after the last block boundary is reported once the end is reached.
	if n > 0 && s.cursor+channels > len(data) && s.cursor%BlockSize != 0 {
		s.report(s.cursor)
	}

	return n, n > 0
}

func (s *Source) Err() error { return nil }

// Len is the number of frames.
func (s *Source) Len() int { return s.file.Frames() }

// Position is the current frame.
func (s *Source) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cursor / s.file.Channels()
}

// Seek moves to frame p, keeping the current channel slot, and reports the new cursor.
func (s *Source) Seek(p int) error {
	if p < 0 || p > s.file.Frames() {
		return fmt.Errorf("%w: frame %d of %d", errSeekRange, p, s.file.Frames())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.moveTo(ParityCursor(s.cursor, p*s.file.Channels(), s.file.Channels(), s.file.Len()))

	return nil
}

// SeekTime moves to target, clamped to [0, duration], keeping the current channel slot. It returns
// the new cursor, which is also reported.
func (s *Source) SeekTime(target time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.seekTime(target)
}

// SeekTimeAt is SeekTime with the epoch switched under the same lock, so no position carries the new
// epoch with the old cursor.
func (s *Source) SeekTimeAt(target time.Duration, epoch uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch = epoch

	return s.seekTime(target)
}

// seekTime must be called with the lock held.
func (s *Source) seekTime(target time.Duration) int {
	target = min(max(target, 0), s.file.Duration())
	wanted := int(target.Seconds() * float64(s.file.SampleRate()) * float64(s.file.Channels()))

	s.moveTo(ParityCursor(s.cursor, wanted, s.file.Channels(), s.file.Len()))

	return s.cursor
}

// Rewind goes back to the first sample and reports it.
func (s *Source) Rewind() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.moveTo(0)
}

// SetEpoch tags every position reported from now on.
func (s *Source) SetEpoch(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch = epoch
}

// moveTo must be called with the lock held.
func (s *Source) moveTo(cursor int) {
	s.cursor = cursor
	s.report(cursor)
}

// report must be called with the lock held.
func (s *Source) report(cursor int) {
	s.positions.Push(Position{Generation: s.file.Generation(), Epoch: s.epoch, Cursor: cursor})
}

// Cursor is the current interleaved sample index.
func (s *Source) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cursor
}

// Time is the play time at the cursor.
func (s *Source) Time() time.Duration {
	return s.file.TimeAt(s.Cursor())
}

func (s *Source) File() *store.AudioFile { return s.file }

// Drained reports whether the cursor has reached the end of the samples.
func (s *Source) Drained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cursor+s.file.Channels() > s.file.Len()
}

// ParityCursor picks the cursor closest to wanted (rounded up to a frame boundary) that addresses the
// same channel slot as old, so the sample pulled after a seek belongs to the same channel as before.
// The result stays within [0, length].
func ParityCursor(old, wanted, channels, length int) int {
	if channels <= 1 {
		return min(max(wanted, 0), length)
	}

	wanted = min(max(wanted, 0), length)
	slot := old % channels
	cursor := (wanted+channels-1)/channels*channels - (channels-slot)%channels

	if cursor < 0 {
		cursor += channels
	}

	if cursor > length {
		cursor -= channels
	}

	return cursor
}

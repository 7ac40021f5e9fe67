// Package playback owns the loaded file and the audio output, and reports the play cursor.
//
// The Engine runs a single goroutine consuming Commands. It publishes decoded files on Files, non-fatal
// failures on Errors and cursor reports on the unbounded Positions queue.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/farcloser/tympanum/internal/store"
)

var (
	// ErrBusy is returned by Send when a command is already waiting to be processed.
	ErrBusy = errors.New("engine is busy")
	// ErrStopped is returned by Send after Run has returned.
	ErrStopped = errors.New("engine stopped")
	// ErrNothingLoaded is reported when a command needs a file and none is loaded.
	ErrNothingLoaded = errors.New("no file loaded")
)

const pollInterval = 10 * time.Millisecond

// State is the engine state, readable from any goroutine.
type State int32

const (
	StateIdle State = iota
	StateLoaded
	StatePlaying
	StatePaused
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	}

	return "unknown"
}

// FileDecoder loads a file. decode.Registry implements it.
type FileDecoder interface {
	File(ctx context.Context, path string) (*store.AudioFile, error)
}

// Engine is the playback state machine.
type Engine struct {
	decoder   FileDecoder
	newSink   func() (Sink, error)
	commands  chan Command
	files     chan *store.AudioFile
	errs      chan error
	positions *PositionQueue
	done      chan struct{}
	state     atomic.Int32

	// Owned by the Run goroutine.
	sink       Sink
	source     *Source
	generation uint64
	epoch      uint64 // of the last Seek or TogglePlay
}

// NewEngine wires an engine. newSink is called once by Run.
func NewEngine(decoder FileDecoder, newSink func() (Sink, error)) *Engine {
	return &Engine{
		decoder:   decoder,
		newSink:   newSink,
		commands:  make(chan Command, 1),
		files:     make(chan *store.AudioFile, 1),
		errs:      make(chan error, 1),
		positions: NewPositionQueue(),
		done:      make(chan struct{}),
	}
}

// Send queues a command without blocking.
func (e *Engine) Send(cmd Command) error {
	select {
	case <-e.done:
		return ErrStopped
	default:
	}

	select {
	case e.commands <- cmd:
		return nil
	default:
		return ErrBusy
	}
}

// Files delivers each successfully loaded file. It is closed when Run returns.
func (e *Engine) Files() <-chan *store.AudioFile { return e.files }

// Errors delivers non-fatal failures. It is closed when Run returns.
func (e *Engine) Errors() <-chan error { return e.errs }

// Positions is the cursor report queue. It is closed when Run returns.
func (e *Engine) Positions() *PositionQueue { return e.positions }

// State is the current state.
func (e *Engine) State() State { return State(e.state.Load()) }

// Done is closed when Run returns.
func (e *Engine) Done() <-chan struct{} { return e.done }

func (e *Engine) setState(state State) {
	if old := State(e.state.Swap(int32(state))); old != state {
		slog.Debug("playback.Engine", "from", old, "to", state)
	}
}

// Run processes commands until Quit or ctx is cancelled. It only returns an error when the output
// cannot be opened.
func (e *Engine) Run(ctx context.Context) error {
	defer func() {
		e.positions.Close()
		close(e.files)
		close(e.errs)
		close(e.done)
	}()

	sink, err := e.newSink()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSinkUnavailable, err)
	}

	e.sink = sink

	defer func() {
		if err := e.sink.Close(); err != nil {
			slog.Warn("closing audio output", "error", err)
		}
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.stop()

			return nil
		case cmd := <-e.commands:
			quit, err := e.handle(ctx, cmd)
			if err != nil {
				return err
			}

			if quit {
				return nil
			}
		case <-ticker.C:
			if e.State() == StatePlaying && e.sink.Empty() {
				e.setState(StateEnded)
			}
		}
	}
}

// handle returns quit when the loop must end, and an error only when the output is gone.
func (e *Engine) handle(ctx context.Context, cmd Command) (quit bool, err error) {
	slog.Debug("playback.Engine", "command", fmt.Sprintf("%T", cmd), "state", e.State())

	switch cmd := cmd.(type) {
	case SelectFile:
		err = e.selectFile(ctx, cmd.Path)
	case TogglePlay:
		e.epoch = cmd.Epoch
		err = e.togglePlay(ctx)
	case Seek:
		e.epoch = cmd.Epoch
		err = e.seek(ctx, cmd.Delta)
	case Stop:
		e.stop()
	case Quit:
		e.stop()

		return true, nil
	}

	if errors.Is(err, ErrSinkUnavailable) {
		return true, err
	}

	return false, nil
}

func (e *Engine) selectFile(ctx context.Context, path string) error {
	file, err := e.decoder.File(ctx, path)
	if err != nil {
		e.report(ctx, fmt.Errorf("loading %s: %w", filepath.Base(path), err))

		return nil
	}

	e.generation++
	file = file.WithGeneration(e.generation)

	e.sink.Clear()
	e.source = NewSource(file, e.positions)
	e.source.SetEpoch(e.epoch)

	if err = e.sink.Attach(e.source); err != nil {
		e.source = nil
		e.setState(StateIdle)

		return e.sinkFailure(ctx, err)
	}

	e.setState(StateLoaded)

	select {
	case e.files <- file:
	case <-ctx.Done():
		return nil
	}

	// After the file, so a consumer never sees a position for a generation it does not know yet.
	e.positions.Push(Position{Generation: file.Generation(), Epoch: e.epoch, Cursor: 0})

	return nil
}

func (e *Engine) togglePlay(ctx context.Context) error {
	switch e.State() {
	case StateIdle:
		e.report(ctx, ErrNothingLoaded)
	case StatePlaying:
		if e.sink.Empty() {
			return e.restart(ctx)
		}

		e.sink.Do(func() { e.source.SetEpoch(e.epoch) })
		e.sink.Pause()
		e.setState(StatePaused)
	case StateLoaded, StatePaused:
		if e.sink.Empty() {
			return e.restart(ctx)
		}

		e.sink.Do(func() { e.source.SetEpoch(e.epoch) })
		e.sink.Play()
		e.setState(StatePlaying)
	case StateEnded:
		return e.restart(ctx)
	}

	return nil
}

// restart re-attaches the drained source from the first sample and plays it.
func (e *Engine) restart(ctx context.Context) error {
	return e.reattach(ctx, 0)
}

// reattach re-attaches the drained source at target and plays it.
func (e *Engine) reattach(ctx context.Context, target time.Duration) error {
	e.source.SetEpoch(e.epoch)
	e.source.Rewind()

	if target > 0 {
		e.source.SeekTime(target)
	}

	if err := e.sink.Attach(e.source); err != nil {
		return e.sinkFailure(ctx, err)
	}

	e.sink.Play()
	e.setState(StatePlaying)

	return nil
}

func (e *Engine) seek(ctx context.Context, delta time.Duration) error {
	if e.State() == StateIdle || e.source == nil {
		e.report(ctx, ErrNothingLoaded)

		return nil
	}

	if e.State() == StateEnded || e.sink.Empty() {
		// Forward from the end has nowhere to go.
		if delta >= 0 {
			return nil
		}

		return e.reattach(ctx, e.source.File().Duration()+delta)
	}

	e.sink.Do(func() {
		e.source.SeekTimeAt(e.source.Time()+delta, e.epoch)
	})

	return nil
}

func (e *Engine) stop() {
	if e.sink != nil {
		e.sink.Clear()
	}

	e.source = nil
	e.setState(StateIdle)
}

// sinkFailure reports a recoverable output error, or returns it when no output can be opened.
func (e *Engine) sinkFailure(ctx context.Context, err error) error {
	if errors.Is(err, ErrSinkUnavailable) {
		return err
	}

	e.report(ctx, err)

	return nil
}

func (e *Engine) report(ctx context.Context, err error) {
	slog.Debug("playback.Engine", "error", err)

	select {
	case e.errs <- err:
	case <-ctx.Done():
	}
}

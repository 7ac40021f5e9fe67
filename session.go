package tympanum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/farcloser/tympanum/internal/capture"
	"github.com/farcloser/tympanum/internal/monitor"
	"github.com/farcloser/tympanum/internal/playback"
	"github.com/farcloser/tympanum/internal/types"
)

// ErrLoad is returned by Play when the engine could not load the file.
var ErrLoad = errors.New("failed to load file")

// Render receives frames. Returning an error ends the session.
type Render func(frame *types.Frame) error

// Play loads path into a playback engine, plays it from opts.Start and hands frames to render until the
// track ends or ctx is cancelled.
func Play(
	ctx context.Context,
	decoder playback.FileDecoder,
	newSink func() (playback.Sink, error),
	path string,
	opts Options,
	render Render,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	engine := playback.NewEngine(decoder, newSink)
	mon := monitor.New(opts.MonitorConfig(), engine, engine.Files(), engine.Errors(), engine.Positions())

	runErr := make(chan error, 1)

	go func() { runErr <- engine.Run(ctx) }()

	defer func() {
		cancel()
		<-engine.Done()
	}()

	engineResult := func(err error) error {
		<-engine.Done()

		if engErr := <-runErr; engErr != nil {
			return engErr
		}

		return err
	}

	tick := opts.tick()

	if err := retry(ctx, tick, func() error { return mon.SelectFile(time.Now(), path) }); err != nil {
		return engineResult(err)
	}

	// Tick until the decoded file is adopted or the engine reports why it was not.
	for mon.File() == nil {
		if _, err := mon.Tick(time.Now()); err != nil {
			return engineResult(err)
		}

		if err := mon.LastError(); err != nil {
			return fmt.Errorf("%w: %w", ErrLoad, err)
		}

		if err := sleep(ctx, tick); err != nil {
			return nil
		}
	}

	if opts.Start > 0 {
		if err := retry(ctx, tick, func() error { return mon.Seek(time.Now(), opts.Start) }); err != nil {
			return engineResult(err)
		}
	}

	if err := retry(ctx, tick, func() error { return mon.TogglePlay(time.Now()) }); err != nil {
		return engineResult(err)
	}

	slog.Debug("tympanum.Play", "file path", path, "stage", "playing")

	// Ended is only reachable from Playing.
	err := loop(ctx, mon, opts, render, func() bool { return engine.State() == playback.StateEnded })
	if errors.Is(err, monitor.ErrChannelDisconnected) {
		return engineResult(nil)
	}

	return err
}

// Capture opens the input device and hands trailing frames to render until ctx is cancelled.
func Capture(ctx context.Context, device int, opts Options, render Render) error {
	stream, err := capture.Open(device)
	if err != nil {
		return err
	}

	defer func() {
		if err := stream.Close(); err != nil {
			slog.Warn("closing capture stream", "error", err)
		}
	}()

	slog.Debug("tympanum.Capture", "device", stream.Name(), "rate", stream.Ring().SampleRate(), "stage", "start")

	// No engine: the position queue is never fed nor closed.
	mon := monitor.New(opts.MonitorConfig(), nil, nil, nil, playback.NewPositionQueue())

	now := time.Now()
	mon.SetCapture(now, stream.Ring())

	if err = mon.SetMode(now, types.ModeCapture); err != nil {
		return err
	}

	return loop(ctx, mon, opts, render, func() bool { return false })
}

// loop ticks the monitor and renders every opts.Interval until done reports true (after one last render)
// or ctx is cancelled.
func loop(ctx context.Context, mon *monitor.Monitor, opts Options, render Render, done func() bool) error {
	ticker := time.NewTicker(opts.tick())
	defer ticker.Stop()

	var rendered time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			frame, err := mon.Tick(now)
			if err != nil {
				return err
			}

			finished := done()

			if finished || now.Sub(rendered) >= opts.Interval {
				rendered = now

				if err = render(frame); err != nil {
					return err
				}
			}

			if finished {
				return nil
			}
		}
	}
}

// retry repeats fn while the engine is busy.
func retry(ctx context.Context, wait time.Duration, fn func() error) error {
	for {
		err := fn()
		if !errors.Is(err, playback.ErrBusy) {
			return err
		}

		if err = sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

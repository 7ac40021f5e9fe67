package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/tympanum/internal/store"
)

var errDecode = errors.New("cannot decode")

type fakeSink struct {
	mu       sync.Mutex
	source   *Source
	playing  bool
	empty    bool
	attaches int
}

func (f *fakeSink) Attach(src *Source) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.source = src
	f.playing = false
	f.empty = false
	f.attaches++

	return nil
}

func (f *fakeSink) Play() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.playing = true
}

func (f *fakeSink) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.playing = false
}

func (f *fakeSink) Empty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.empty || f.source == nil
}

func (f *fakeSink) Do(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fn()
}

func (f *fakeSink) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.source = nil
	f.playing = false
}

func (f *fakeSink) Close() error { return nil }

// drain plays the attached source to its end.
func (f *fakeSink) drain() {
	f.mu.Lock()
	defer f.mu.Unlock()

	buf := make([][2]float64, 1024)
	for {
		if _, ok := f.source.Stream(buf); !ok {
			break
		}
	}

	f.empty = true
}

func (f *fakeSink) attachCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.attaches
}

func (f *fakeSink) isPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.playing
}

type fakeDecoder struct {
	files map[string]*store.AudioFile
}

func (f fakeDecoder) File(_ context.Context, path string) (*store.AudioFile, error) {
	file, ok := f.files[path]
	if !ok {
		return nil, errDecode
	}

	return file, nil
}

type harness struct {
	engine *Engine
	sink   *fakeSink
	cancel context.CancelFunc
	result chan error
}

func startEngine(t *testing.T, files map[string]*store.AudioFile) *harness {
	t.Helper()

	sink := &fakeSink{}
	engine := NewEngine(fakeDecoder{files: files}, func() (Sink, error) { return sink, nil })

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{engine: engine, sink: sink, cancel: cancel, result: make(chan error, 1)}

	go func() { h.result <- engine.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		<-h.result
	})

	return h
}

func (h *harness) send(t *testing.T, cmd Command) {
	t.Helper()

	require.Eventually(t, func() bool {
		return !errors.Is(h.engine.Send(cmd), ErrBusy)
	}, time.Second, time.Millisecond)
}

func (h *harness) waitState(t *testing.T, state State) {
	t.Helper()

	require.Eventually(t, func() bool { return h.engine.State() == state }, time.Second, time.Millisecond,
		"state is %s, want %s", h.engine.State(), state)
}

func (h *harness) nextFile(t *testing.T) *store.AudioFile {
	t.Helper()

	select {
	case file := <-h.engine.Files():
		return file
	case <-time.After(time.Second):
		t.Fatal("no file delivered")

		return nil
	}
}

func (h *harness) nextError(t *testing.T) error {
	t.Helper()

	select {
	case err := <-h.engine.Errors():
		return err
	case <-time.After(time.Second):
		t.Fatal("no error delivered")

		return nil
	}
}

func (h *harness) positions(t *testing.T, count int) []Position {
	t.Helper()

	var got []Position

	require.Eventually(t, func() bool {
		drained, _ := h.engine.Positions().Drain()
		got = append(got, drained...)

		return len(got) >= count
	}, time.Second, time.Millisecond)

	return got
}

func TestEngine_SelectFileDeliversFileThenPosition(t *testing.T) {
	t.Parallel()

	h := startEngine(t, map[string]*store.AudioFile{"a.wav": newFile(t, 1000, 100, 2)})

	h.send(t, SelectFile{Path: "a.wav"})

	file := h.nextFile(t)
	assert.Equal(t, uint64(1), file.Generation())

	assert.Equal(t, []Position{{Generation: 1, Cursor: 0}}, h.positions(t, 1))
	h.waitState(t, StateLoaded)
	assert.False(t, h.sink.isPlaying())
}

func TestEngine_DecodeErrorKeepsCurrentFile(t *testing.T) {
	t.Parallel()

	h := startEngine(t, map[string]*store.AudioFile{"a.wav": newFile(t, 1000, 100, 2)})

	h.send(t, SelectFile{Path: "a.wav"})
	h.nextFile(t)
	h.send(t, TogglePlay{})
	h.waitState(t, StatePlaying)

	h.send(t, SelectFile{Path: "broken.flac"})
	require.ErrorIs(t, h.nextError(t), errDecode)

	assert.Equal(t, StatePlaying, h.engine.State())
	assert.True(t, h.sink.isPlaying())
}

func TestEngine_TogglePlayPause(t *testing.T) {
	t.Parallel()

	h := startEngine(t, map[string]*store.AudioFile{"a.wav": newFile(t, 1000, 100, 2)})

	h.send(t, TogglePlay{})
	require.ErrorIs(t, h.nextError(t), ErrNothingLoaded)

	h.send(t, SelectFile{Path: "a.wav"})
	h.nextFile(t)

	h.send(t, TogglePlay{})
	h.waitState(t, StatePlaying)
	assert.True(t, h.sink.isPlaying())

	h.send(t, TogglePlay{})
	h.waitState(t, StatePaused)
	assert.False(t, h.sink.isPlaying())
}

func TestEngine_SeekWhilePausedReportsPosition(t *testing.T) {
	t.Parallel()

	h := startEngine(t, map[string]*store.AudioFile{"a.wav": newFile(t, 1000, 100, 2)})

	h.send(t, SelectFile{Path: "a.wav"})
	h.nextFile(t)
	h.positions(t, 1)

	h.send(t, Seek{Delta: 3 * time.Second})

	assert.Equal(t, []Position{{Generation: 1, Cursor: 600}}, h.positions(t, 1))
	assert.Equal(t, StateLoaded, h.engine.State())

	// Clamped at the start.
	h.send(t, Seek{Delta: -time.Minute})
	assert.Equal(t, []Position{{Generation: 1, Cursor: 0}}, h.positions(t, 1))
}

func TestEngine_CommandEpochTagsPositions(t *testing.T) {
	t.Parallel()

	h := startEngine(t, map[string]*store.AudioFile{
		"a.wav": newFile(t, 1000, 100, 2),
		"b.wav": newFile(t, 1000, 100, 2),
	})

	h.send(t, SelectFile{Path: "a.wav"})
	h.nextFile(t)
	assert.Equal(t, []Position{{Generation: 1, Cursor: 0}}, h.positions(t, 1))

	h.send(t, Seek{Delta: 3 * time.Second, Epoch: 5})
	assert.Equal(t, []Position{{Generation: 1, Epoch: 5, Cursor: 600}}, h.positions(t, 1))

	// A new file keeps the epoch of the last command.
	h.send(t, SelectFile{Path: "b.wav"})
	h.nextFile(t)
	assert.Equal(t, []Position{{Generation: 2, Epoch: 5, Cursor: 0}}, h.positions(t, 1))
}

func TestEngine_RestartsAfterEnd(t *testing.T) {
	t.Parallel()

	h := startEngine(t, map[string]*store.AudioFile{"a.wav": newFile(t, 1000, 100, 2)})

	h.send(t, SelectFile{Path: "a.wav"})
	h.nextFile(t)
	h.send(t, TogglePlay{})
	h.waitState(t, StatePlaying)

	h.sink.drain()
	h.waitState(t, StateEnded)
	h.engine.Positions().Drain()

	h.send(t, TogglePlay{Epoch: 2})
	h.waitState(t, StatePlaying)

	assert.Equal(t, []Position{{Generation: 1, Epoch: 2, Cursor: 0}}, h.positions(t, 1))
	assert.Equal(t, 2, h.sink.attachCount())
}

func TestEngine_SeekBackFromEnd(t *testing.T) {
	t.Parallel()

	h := startEngine(t, map[string]*store.AudioFile{"a.wav": newFile(t, 1000, 100, 2)})

	h.send(t, SelectFile{Path: "a.wav"})
	h.nextFile(t)
	h.send(t, TogglePlay{})
	h.waitState(t, StatePlaying)
	h.sink.drain()
	h.waitState(t, StateEnded)
	h.engine.Positions().Drain()

	h.send(t, Seek{Delta: -4 * time.Second})
	h.waitState(t, StatePlaying)

	got := h.positions(t, 2)
	assert.Equal(t, Position{Generation: 1, Cursor: 1200}, got[len(got)-1])
}

func TestEngine_NewFileBumpsGeneration(t *testing.T) {
	t.Parallel()

	h := startEngine(t, map[string]*store.AudioFile{
		"a.wav": newFile(t, 1000, 100, 2),
		"b.wav": newFile(t, 10, 100, 1),
	})

	h.send(t, SelectFile{Path: "a.wav"})
	assert.Equal(t, uint64(1), h.nextFile(t).Generation())

	h.send(t, SelectFile{Path: "b.wav"})
	second := h.nextFile(t)
	assert.Equal(t, uint64(2), second.Generation())
	assert.Equal(t, 1, second.Channels())
	h.waitState(t, StateLoaded)
}

func TestEngine_SendBusy(t *testing.T) {
	t.Parallel()

	engine := NewEngine(fakeDecoder{}, func() (Sink, error) { return &fakeSink{}, nil })

	require.NoError(t, engine.Send(TogglePlay{}))
	require.ErrorIs(t, engine.Send(TogglePlay{}), ErrBusy)
}

func TestEngine_QuitEndsRun(t *testing.T) {
	t.Parallel()

	engine := NewEngine(fakeDecoder{}, func() (Sink, error) { return &fakeSink{}, nil })

	result := make(chan error, 1)

	go func() { result <- engine.Run(context.Background()) }()

	require.NoError(t, engine.Send(Quit{}))
	require.NoError(t, <-result)

	require.ErrorIs(t, engine.Send(TogglePlay{}), ErrStopped)

	_, open := <-engine.Files()
	assert.False(t, open)

	_, open = engine.Positions().Drain()
	assert.False(t, open)
}

func TestEngine_SinkConstructionFailureIsFatal(t *testing.T) {
	t.Parallel()

	engine := NewEngine(fakeDecoder{}, func() (Sink, error) { return nil, errors.New("no device") })

	require.ErrorIs(t, engine.Run(context.Background()), ErrSinkUnavailable)

	_, open := <-engine.Errors()
	assert.False(t, open)
}

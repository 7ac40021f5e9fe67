// Package decode turns an audio file into a fully decoded store.AudioFile.
//
// Decoders are selected by file extension through a Registry. Formats without a native Go decoder
// fall back to ffmpeg.
package decode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/tympanum/internal/store"
)

var (
	// ErrNoDecodableTrack is returned when the file holds no audio the decoders understand.
	ErrNoDecodableTrack = errors.New("no decodable audio track")
	// ErrIO is returned when the file cannot be opened or read.
	ErrIO = errors.New("audio file i/o failure")
	// ErrCodec is returned on unrecoverable decoder failures.
	ErrCodec = errors.New("audio codec failure")

	// errFrame marks a single undecodable frame or packet. Decoding skips it and continues.
	errFrame = errors.New("frame decode error")
)

// PCM is the raw output of a decoder: interleaved float samples in [-1, 1].
type PCM struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Decoder decodes the file at path.
type Decoder interface {
	Decode(ctx context.Context, path string) (*PCM, error)
}

// Registry maps lowercase file extensions (without the dot) to decoders.
type Registry struct {
	mu       sync.Mutex
	decoders map[string]Decoder
	fallback Decoder
}

// NewRegistry returns an empty registry. Lookups of unknown extensions return fallback (may be nil).
func NewRegistry(fallback Decoder) *Registry {
	return &Registry{
		decoders: make(map[string]Decoder),
		fallback: fallback,
	}
}

// DefaultRegistry knows wav, aiff, mp3 and ogg vorbis natively, and hands everything else to ffmpeg.
func DefaultRegistry() *Registry {
	registry := NewRegistry(FFmpeg{})
	registry.Register("wav", WAV{})
	registry.Register("wave", WAV{})
	registry.Register("aiff", AIFF{})
	registry.Register("aif", AIFF{})
	registry.Register("mp3", MP3{})
	registry.Register("ogg", Vorbis{})
	registry.Register("oga", Vorbis{})

	return registry
}

func (r *Registry) Register(ext string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.decoders[strings.ToLower(strings.TrimPrefix(ext, "."))] = d
}

// Lookup returns the decoder for ext, or the fallback.
func (r *Registry) Lookup(ext string) (Decoder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.decoders[strings.ToLower(strings.TrimPrefix(ext, "."))]
	if !ok && r.fallback != nil {
		return r.fallback, true
	}

	return d, ok
}

// File decodes path with the decoder registered for its extension.
func (r *Registry) File(ctx context.Context, path string) (*store.AudioFile, error) {
	slog.Debug("decode.File", "file path", path, "stage", "start")

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrIO, fault.ErrReadFailure, err)
	}

	decoder, ok := r.Lookup(filepath.Ext(path))
	if !ok {
		return nil, fmt.Errorf("%w: unsupported extension %q", ErrNoDecodableTrack, filepath.Ext(path))
	}

	pcm, err := decoder.Decode(ctx, path)
	if err != nil {
		return nil, err
	}

	if pcm.Channels <= 0 || len(pcm.Samples) < pcm.Channels {
		return nil, fmt.Errorf("%w: %s decoded to no frames", ErrNoDecodableTrack, filepath.Base(path))
	}

	file, err := store.New(filepath.Base(path), pcm.Samples, pcm.SampleRate, pcm.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDecodableTrack, err)
	}

	slog.Debug("decode.File", "file path", path, "stage", "done",
		"rate", file.SampleRate(), "channels", file.Channels(), "frames", file.Frames())

	return file, nil
}

// File decodes path with the default registry.
func File(ctx context.Context, path string) (*store.AudioFile, error) {
	return DefaultRegistry().File(ctx, path)
}

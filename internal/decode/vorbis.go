package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/farcloser/primordium/fault"
	"github.com/jfreymuth/oggvorbis"
)

// Vorbis decodes Ogg Vorbis files.
type Vorbis struct{}

func (Vorbis) Decode(ctx context.Context, path string) (*PCM, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrIO, fault.ErrReadFailure, err)
	}
	defer file.Close()

	dec, err := oggvorbis.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDecodableTrack, err)
	}

	if dec.Channels() <= 0 || dec.SampleRate() <= 0 {
		return nil, fmt.Errorf("%w: invalid vorbis header", ErrNoDecodableTrack)
	}

	samples, err := readAll(ctx, &vorbisSource{dec: dec}, dec.Channels())
	if err != nil {
		return nil, err
	}

	return &PCM{Samples: samples, SampleRate: dec.SampleRate(), Channels: dec.Channels()}, nil
}

type vorbisReader interface {
	Read(p []float32) (int, error)
}

// vorbisSource classifies packet errors so a damaged page does not abort the whole file.
type vorbisSource struct {
	dec vorbisReader
}

func (s *vorbisSource) Read(dst []float32) (int, error) {
	n, err := s.dec.Read(dst)

	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return n, err
	default:
		return n, fmt.Errorf("%w: %w", errFrame, err)
	}
}

package decode

import (
	"context"
	"fmt"
	"os"

	"github.com/farcloser/primordium/fault"
	"github.com/go-audio/aiff"
)

// AIFF decodes AIFF files. AIFF-C compressed variants are left to the ffmpeg fallback.
type AIFF struct{}

func (AIFF) Decode(ctx context.Context, path string) (*PCM, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrIO, fault.ErrReadFailure, err)
	}
	defer file.Close()

	dec := aiff.NewDecoder(file)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not an aiff file", ErrNoDecodableTrack)
	}

	dec.ReadInfo()

	if err = dec.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	format := dec.Format()
	if format == nil || format.NumChannels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: unsupported aiff layout", ErrNoDecodableTrack)
	}

	// AIFF 8 bit is signed.
	src, err := newIntSource(dec, int(dec.BitDepth), false)
	if err != nil {
		return nil, err
	}

	samples, err := readAll(ctx, src, format.NumChannels)
	if err != nil {
		return nil, err
	}

	return &PCM{Samples: samples, SampleRate: format.SampleRate, Channels: format.NumChannels}, nil
}

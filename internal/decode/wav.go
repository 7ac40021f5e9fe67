package decode

import (
	"context"
	"fmt"
	"os"

	"github.com/farcloser/primordium/fault"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// WAV decodes integer PCM RIFF/WAVE files.
type WAV struct{}

func (WAV) Decode(ctx context.Context, path string) (*PCM, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrIO, fault.ErrReadFailure, err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a wav file", ErrNoDecodableTrack)
	}

	dec.ReadInfo()

	if err = dec.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: wav audio format %d is not integer pcm", ErrNoDecodableTrack, dec.WavAudioFormat)
	}

	format := dec.Format()
	if format == nil || format.NumChannels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: unsupported wav layout", ErrNoDecodableTrack)
	}

	src, err := newIntSource(dec, int(dec.BitDepth), true)
	if err != nil {
		return nil, err
	}

	samples, err := readAll(ctx, src, format.NumChannels)
	if err != nil {
		return nil, err
	}

	return &PCM{Samples: samples, SampleRate: format.SampleRate, Channels: format.NumChannels}, nil
}

package decode

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/farcloser/primordium/fault"
	gomp3 "github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces 16 bit little-endian stereo.
const (
	mp3Channels       = 2
	mp3BytesPerSample = 2
)

// MP3 decodes MPEG-1/2 layer III files.
type MP3 struct{}

func (MP3) Decode(ctx context.Context, path string) (*PCM, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrIO, fault.ErrReadFailure, err)
	}
	defer file.Close()

	dec, err := gomp3.NewDecoder(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDecodableTrack, err)
	}

	samples, err := readAll(ctx, &mp3Source{dec: dec}, mp3Channels)
	if err != nil {
		return nil, err
	}

	return &PCM{Samples: samples, SampleRate: dec.SampleRate(), Channels: mp3Channels}, nil
}

type mp3Source struct {
	dec  io.Reader
	buf  []byte
	tail int // bytes of an incomplete sample carried over from the previous read
}

func (s *mp3Source) Read(dst []float32) (int, error) {
	need := len(dst) * mp3BytesPerSample
	if cap(s.buf) < need {
		grown := make([]byte, need)
		copy(grown, s.buf[:s.tail])
		s.buf = grown
	}

	s.buf = s.buf[:need]

	n, err := s.dec.Read(s.buf[s.tail:])
	n += s.tail

	count := n / mp3BytesPerSample
	for i := range count {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(s.buf[i*mp3BytesPerSample:]))) / 32768
	}

	s.tail = copy(s.buf, s.buf[count*mp3BytesPerSample:n])

	switch {
	case err == nil, errors.Is(err, io.EOF):
		return count, err
	default:
		return count, fmt.Errorf("%w: %w", errFrame, err)
	}
}

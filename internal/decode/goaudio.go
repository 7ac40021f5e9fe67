package decode

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
)

// pcmBufferReader is the part of the go-audio wav and aiff decoders used here.
type pcmBufferReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// intSource normalizes go-audio integer PCM to [-1, 1].
type intSource struct {
	dec    pcmBufferReader
	buf    *goaudio.IntBuffer
	scale  float32
	offset int
}

func newIntSource(dec pcmBufferReader, bitDepth int, unsigned8 bool) (*intSource, error) {
	var full float32

	switch bitDepth {
	case 8:
		full = 128
	case 16:
		full = 32768
	case 24:
		full = 8388608
	case 32:
		full = 2147483648
	default:
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrNoDecodableTrack, bitDepth)
	}

	src := &intSource{
		dec:   dec,
		scale: 1 / full,
	}

	if bitDepth == 8 && unsigned8 {
		src.offset = 128
	}

	return src, nil
}

func (s *intSource) Read(dst []float32) (int, error) {
	if s.buf == nil || cap(s.buf.Data) < len(dst) {
		s.buf = &goaudio.IntBuffer{
			Data:   make([]int, len(dst)),
			Format: s.dec.Format(),
		}
	}

	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.buf)
	for i := range n {
		dst[i] = float32(s.buf.Data[i]-s.offset) * s.scale
	}

	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrIO, err)
	}

	if n == 0 {
		return 0, io.EOF
	}

	return n, nil
}

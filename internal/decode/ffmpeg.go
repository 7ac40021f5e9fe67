package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/farcloser/tympanum/internal/integration/ffmpeg"
	"github.com/farcloser/tympanum/internal/integration/ffprobe"
)

const s32Bytes = 4

// FFmpeg decodes anything ffmpeg understands (flac, alac, aac, opus...) through an s32le pipe.
// Only the first audio stream is used.
type FFmpeg struct{}

func (FFmpeg) Decode(ctx context.Context, path string) (*PCM, error) {
	probe, err := ffprobe.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDecodableTrack, err)
	}

	streams := probe.AudioStreams()
	if len(streams) == 0 {
		return nil, fmt.Errorf("%w: no audio stream in %s container", ErrNoDecodableTrack, probe.Format.FormatName)
	}

	stream := streams[0]

	rate, err := stream.Rate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDecodableTrack, err)
	}

	slog.Debug("decode.FFmpeg", "codec", stream.CodecName, "rate", rate, "channels", stream.Channels)

	var raw bytes.Buffer
	if err = ffmpeg.ExtractStream(ctx, path, &raw, 0); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCodec, err)
	}

	return &PCM{
		Samples:    s32leToFloat(raw.Bytes()),
		SampleRate: rate,
		Channels:   stream.Channels,
	}, nil
}

// s32leToFloat converts signed 32 bit little-endian PCM to float. A trailing partial sample is dropped.
func s32leToFloat(raw []byte) []float32 {
	out := make([]float32, len(raw)/s32Bytes)
	for i := range out {
		out[i] = float32(float64(int32(binary.LittleEndian.Uint32(raw[i*s32Bytes:]))) / 2147483648)
	}

	return out
}

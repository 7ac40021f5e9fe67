package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

const (
	readFrames                = 4096
	maxConsecutiveFrameErrors = 8
	maxEmptyReads             = 64
)

// sampleReader is implemented by the per-format adapters. Read fills dst with interleaved samples and
// returns the number of values written. Adapters wrap per-frame failures with errFrame, container
// failures with ErrIO, and anything else with ErrCodec.
type sampleReader interface {
	Read(dst []float32) (int, error)
}

// readAll accumulates every sample of src until end of stream.
func readAll(ctx context.Context, src sampleReader, channels int) ([]float32, error) {
	buf := make([]float32, readFrames*channels)

	var (
		out        []float32
		frameFails int
		emptyReads int
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := src.Read(buf)
		out = append(out, buf[:n]...)

		switch {
		case err == nil:
			frameFails = 0

			if n == 0 {
				emptyReads++
				if emptyReads > maxEmptyReads {
					return out, nil
				}
			} else {
				emptyReads = 0
			}
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return out, nil
		case errors.Is(err, errFrame):
			frameFails++

			slog.Warn("skipping undecodable frame", "error", err, "consecutive", frameFails)

			if frameFails > maxConsecutiveFrameErrors {
				return nil, fmt.Errorf("%w: %d consecutive frame errors: %w", ErrCodec, frameFails, err)
			}
		case errors.Is(err, ErrIO), errors.Is(err, ErrCodec):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %w", ErrCodec, err)
		}
	}
}

package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/tympanum/internal/integration/binary"
)

// ExtractStream decodes one audio stream of the file at filePath into raw s32le PCM written to output.
// The file is passed by path rather than stdin so containers with trailing indexes (mp4/m4a) work.
func ExtractStream(ctx context.Context, filePath string, output io.Writer, streamIndex int) error {
	slog.Debug("ffmpeg.ExtractStream", "file path", filePath, "stream index", streamIndex, "stage", "start")

	ffmpegPath, err := binary.Locate(name)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // filePath is the user-selected audio file
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-nostdin",
		"-i", filePath,
		"-map", "0:a:"+strconv.Itoa(streamIndex),
		"-f", sampleFormat,
		"-acodec", codec,
		"-v", "error",
		"-",
	)

	cmd.Stdout = output

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err = cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Debug("ffmpeg.ExtractStream", "stream index", streamIndex, "stage", "timeout")

			return fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		slog.Debug("ffmpeg.ExtractStream", "stream index", streamIndex, "stage", "error")

		return fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, stderr.String(), err)
	}

	slog.Debug("ffmpeg.ExtractStream", "stream index", streamIndex, "stage", "done")

	return nil
}

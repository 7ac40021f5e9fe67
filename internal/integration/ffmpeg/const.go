package ffmpeg

import "time"

const (
	name = "ffmpeg"
	// Full-file decodes of long recordings on slow storage take a while.
	timeout = 5 * time.Minute
	// Samples are always extracted as signed 32-bit little-endian, native rate and layout.
	sampleFormat = "s32le"
	codec        = "pcm_s32le"
)

package ffprobe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOutput = `{
  "streams": [
    {"index": 0, "codec_name": "mjpeg", "codec_type": "video"},
    {"index": 1, "codec_name": "flac", "codec_type": "audio", "sample_rate": "96000", "channels": 2, "channel_layout": "stereo"},
    {"index": 2, "codec_name": "aac", "codec_type": "audio", "sample_rate": "bogus", "channels": 2}
  ],
  "format": {"filename": "a.flac", "format_name": "flac", "probe_score": 100}
}`

func TestResult_AudioStreams(t *testing.T) {
	t.Parallel()

	var result Result
	require.NoError(t, json.Unmarshal([]byte(sampleOutput), &result))

	streams := result.AudioStreams()
	require.Len(t, streams, 2)

	rate, err := streams[0].Rate()
	require.NoError(t, err)
	assert.Equal(t, 96000, rate)

	_, err = streams[1].Rate()
	require.ErrorIs(t, err, errInvalidStream)
}

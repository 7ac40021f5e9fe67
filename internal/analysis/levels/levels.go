// Package levels reports sample-level defects over a whole file: clipped runs and DC offset.
package levels

import (
	"math"

	"github.com/farcloser/tympanum/internal/types"
)

const (
	// ClipThreshold is the magnitude at which a float sample counts as full scale. It is one 16-bit step
	// below 1 so that integer sources decoded to float still register at their rails.
	ClipThreshold = 1 - 1.0/32768

	// minRun is the shortest run of full-scale samples that counts as a clip.
	minRun = 2

	floorDb = -120.0
)

// Clipping counts runs of at least two consecutive full-scale samples, per channel and overall.
func Clipping(samples []float32, channels int) types.ClippingReadout {
	if channels <= 0 {
		return types.ClippingReadout{}
	}

	result := types.ClippingReadout{
		Channels: make([]types.ChannelClipping, channels),
	}
	consecutive := make([]uint64, channels)

	flush := func(ch int) {
		if consecutive[ch] >= minRun {
			result.Channels[ch].Events++
			result.Channels[ch].ClippedSamples += consecutive[ch]
			result.Channels[ch].LongestRun = max(result.Channels[ch].LongestRun, consecutive[ch])

			result.Events++
			result.ClippedSamples += consecutive[ch]
			result.LongestRun = max(result.LongestRun, consecutive[ch])
		}

		consecutive[ch] = 0
	}

	frames := len(samples) / channels

	for i, sample := range samples[:frames*channels] {
		ch := i % channels

		if math.Abs(float64(sample)) >= ClipThreshold {
			consecutive[ch]++

			continue
		}

		flush(ch)
	}

	// Trailing clips.
	for ch := range channels {
		flush(ch)
	}

	result.Samples = uint64(frames * channels) //nolint:gosec // length is never negative

	return result
}

// DCOffset is the mean of each channel, and the mean magnitude across channels.
func DCOffset(samples []float32, channels int) types.DCOffsetReadout {
	if channels <= 0 {
		return types.DCOffsetReadout{OffsetDb: floorDb}
	}

	frames := len(samples) / channels
	offsets := make([]float64, channels)

	if frames == 0 {
		return types.DCOffsetReadout{OffsetDb: floorDb, Channels: offsets}
	}

	for i, sample := range samples[:frames*channels] {
		offsets[i%channels] += float64(sample)
	}

	var total float64

	for ch := range offsets {
		offsets[ch] /= float64(frames)
		total += math.Abs(offsets[ch])
	}

	total /= float64(channels)

	offsetDb := floorDb
	if total > 0 {
		offsetDb = math.Max(20*math.Log10(total), floorDb)
	}

	return types.DCOffsetReadout{
		Offset:   total,
		OffsetDb: offsetDb,
		Channels: offsets,
	}
}

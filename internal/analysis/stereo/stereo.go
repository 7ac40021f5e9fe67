// Package stereo describes the stereo field of a window of interleaved samples.
package stereo

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/farcloser/tympanum/internal/types"
)

const (
	floorDb = -120.0
	// MaxWidth caps the width of content with (almost) no mid, such as fully out of phase channels.
	MaxWidth = 10.0
)

// Analyze reads channels 0 and 1 of interleaved samples. Mono input is reported as perfectly
// correlated with no width.
func Analyze(samples []float32, channels int) types.StereoReadout {
	if channels <= 0 {
		return types.StereoReadout{}
	}

	frames := len(samples) / channels
	if frames == 0 {
		return types.StereoReadout{}
	}

	if channels == 1 {
		return types.StereoReadout{Correlation: 1, Frames: frames}
	}

	left := make([]float64, frames)
	right := make([]float64, frames)
	mid := make([]float64, frames)
	side := make([]float64, frames)

	for f := range frames {
		left[f] = float64(samples[f*channels])
		right[f] = float64(samples[f*channels+1])
		mid[f] = (left[f] + right[f]) / 2
		side[f] = (left[f] - right[f]) / 2
	}

	// Pearson correlation, undefined (reported as 0) when a channel is constant.
	correlation := stat.Correlation(left, right, nil)
	if math.IsNaN(correlation) {
		correlation = 0
	}

	var width float64
	if sideRms := rms(side); sideRms > 0 {
		width = MaxWidth
		if midRms := rms(mid); midRms*MaxWidth > sideRms {
			width = sideRms / midRms
		}
	}

	return types.StereoReadout{
		Correlation: correlation,
		Width:       width,
		BalanceDb:   toDb(rms(left)) - toDb(rms(right)),
		Frames:      frames,
	}
}

func rms(values []float64) float64 {
	return math.Sqrt(floats.Dot(values, values) / float64(len(values)))
}

func toDb(value float64) float64 {
	if value <= 0 {
		return floorDb
	}

	return math.Max(20*math.Log10(value), floorDb)
}

package loudness

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// integrated applies the absolute then relative gate to the 400ms block powers.
func integrated(powers []float64) float64 {
	gated := gate(powers, absoluteGate)
	if len(gated) == 0 {
		return math.Inf(-1)
	}

	threshold := lufs(stat.Mean(gated, nil)) + relativeGate

	gated = gate(gated, threshold)
	if len(gated) == 0 {
		return math.Inf(-1)
	}

	return lufs(stat.Mean(gated, nil))
}

// loudnessRange is the spread between the 10th and 95th percentile of the gated 3s block loudness.
func loudnessRange(powers []float64) float64 {
	gated := gate(powers, absoluteGate)
	if len(gated) < 2 {
		return 0
	}

	threshold := lufs(stat.Mean(gated, nil)) + rangeGate

	values := make([]float64, 0, len(gated))

	for _, power := range gated {
		if loudness := lufs(power); loudness > threshold {
			values = append(values, loudness)
		}
	}

	if len(values) < 2 {
		return 0
	}

	sort.Float64s(values)

	return stat.Quantile(rangeTopQuantile, stat.Empirical, values, nil) -
		stat.Quantile(rangeLowQuantile, stat.Empirical, values, nil)
}

// gate keeps the powers louder than threshold LUFS.
func gate(powers []float64, threshold float64) []float64 {
	var kept []float64

	for _, power := range powers {
		if power > 0 && lufs(power) > threshold {
			kept = append(kept, power)
		}
	}

	return kept
}

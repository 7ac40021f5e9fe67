package loudness

import "math"

const (
	oversample   = 4  // 4x oversampling per ITU-R BS.1770
	tapsPerPhase = 12 // filter taps per phase
	totalTaps    = oversample * tapsPerPhase
	kaiserBeta   = 5.0
)

// Polyphase lowpass (windowed sinc, Kaiser window) for 4x oversampling.
var polyphaseCoeffs [oversample][tapsPerPhase]float64

func init() {
	center := float64(totalTaps-1) / 2

	for phase := range oversample {
		for tap := range tapsPerPhase {
			n := tap*oversample + phase
			x := float64(n) - center

			sinc := 1.0
			if math.Abs(x) >= 1e-10 {
				sinc = math.Sin(math.Pi*x/oversample) / (math.Pi * x / oversample)
			}

			alpha := x / center
			if math.Abs(alpha) <= 1 {
				window := bessel0(kaiserBeta*math.Sqrt(1-alpha*alpha)) / bessel0(kaiserBeta)
				polyphaseCoeffs[phase][tap] = sinc * window * oversample
			}
		}
	}

	// Unity DC gain per phase.
	for phase := range oversample {
		var sum float64
		for tap := range tapsPerPhase {
			sum += polyphaseCoeffs[phase][tap]
		}

		for tap := range tapsPerPhase {
			polyphaseCoeffs[phase][tap] /= sum
		}
	}
}

// bessel0 is the modified Bessel function of the first kind, order 0.
func bessel0(x float64) float64 {
	sum := 1.0
	term := 1.0

	for k := 1; k <= 25; k++ {
		term *= (x * x) / (4 * float64(k) * float64(k))
		sum += term

		if term < 1e-12 {
			break
		}
	}

	return sum
}

// peakTracker follows the inter-sample peak of one channel.
type peakTracker struct {
	history [tapsPerPhase]float64
	peak    float64
}

func (p *peakTracker) add(sample float64) {
	copy(p.history[0:], p.history[1:])
	p.history[tapsPerPhase-1] = sample

	if abs := math.Abs(sample); abs > p.peak {
		p.peak = abs
	}

	for phase := range oversample {
		var interp float64
		for tap := range tapsPerPhase {
			interp += p.history[tap] * polyphaseCoeffs[phase][tap]
		}

		if abs := math.Abs(interp); abs > p.peak {
			p.peak = abs
		}
	}
}

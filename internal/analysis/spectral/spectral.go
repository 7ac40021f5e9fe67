// Package spectral turns a window of samples into a log-frequency magnitude series.
package spectral

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/farcloser/tympanum/internal/types"
)

// ErrInsufficientSamples is returned when fewer than MinTransform samples are supplied.
var ErrInsufficientSamples = errors.New("not enough samples for a spectrum")

const (
	MinTransform = 512
	MaxTransform = 16384

	MinFrequency = 20.0
	MaxFrequency = 20000.0

	// DefaultWidth is the chart width the frequency axis is remapped to.
	DefaultWidth = 100.0

	// FloorDb is reported for bins with no energy.
	FloorDb = -150.0
)

var (
	logMin   = math.Log10(MinFrequency)
	logRange = math.Log10(MaxFrequency) - logMin
)

// Remap places freq on a log axis of the given width: 20 Hz maps to 0 and 20 kHz to width.
func Remap(freq, width float64) float64 {
	return (math.Log10(freq) - logMin) / logRange * width
}

// Analyzer computes spectra, caching FFT plans and Hann windows per transform size.
// It is not safe for concurrent use.
type Analyzer struct {
	width   float64
	ffts    map[int]*fourier.FFT
	windows map[int]window
	input   []float64
	coeffs  []complex128
}

type window struct {
	weights []float64
	sum     float64
}

// NewAnalyzer returns an analyzer remapping frequencies to a chart of the given width.
func NewAnalyzer(width float64) *Analyzer {
	if width <= 0 {
		width = DefaultWidth
	}

	return &Analyzer{
		width:   width,
		ffts:    make(map[int]*fourier.FFT),
		windows: make(map[int]window),
	}
}

// Spectrum analyzes the trailing power-of-two span of samples (at most MaxTransform) and returns one
// point per bin within [20 Hz, 20 kHz] below Nyquist: x on the log axis, y in dB (a full scale sine
// reads about 0 dB).
func (a *Analyzer) Spectrum(samples []float32, rate int) ([]types.Point, error) {
	size := transformSize(len(samples))
	if size < MinTransform {
		return nil, fmt.Errorf("%w: %d < %d", ErrInsufficientSamples, len(samples), MinTransform)
	}

	samples = samples[len(samples)-size:]

	fft, ok := a.ffts[size]
	if !ok {
		fft = fourier.NewFFT(size)
		a.ffts[size] = fft
	}

	hann, ok := a.windows[size]
	if !ok {
		hann = makeHannWindow(size)
		a.windows[size] = hann
	}

	if cap(a.input) < size {
		a.input = make([]float64, size)
	}

	input := a.input[:size]
	for i, sample := range samples {
		input[i] = float64(sample) * hann.weights[i]
	}

	if cap(a.coeffs) < size/2+1 {
		a.coeffs = make([]complex128, size/2+1)
	}

	a.coeffs = fft.Coefficients(a.coeffs[:size/2+1], input)

	binHz := float64(rate) / float64(size)
	nyquist := float64(rate) / 2
	points := make([]types.Point, 0, len(a.coeffs))

	for bin := 1; bin < len(a.coeffs); bin++ {
		freq := float64(bin) * binHz
		if freq < MinFrequency {
			continue
		}

		if freq > MaxFrequency || freq > nyquist {
			break
		}

		points = append(points, types.Point{
			X: Remap(freq, a.width),
			Y: toDb(2 * cmplx.Abs(a.coeffs[bin]) / hann.sum),
		})
	}

	return points, nil
}

// Analyze is a one-shot Spectrum on the default chart width.
func Analyze(samples []float32, rate int) ([]types.Point, error) {
	return NewAnalyzer(DefaultWidth).Spectrum(samples, rate)
}

// Peak returns the loudest point of a spectrum, and false for an empty one.
func Peak(points []types.Point) (types.Point, bool) {
	if len(points) == 0 {
		return types.Point{}, false
	}

	peak := points[0]
	for _, point := range points[1:] {
		if point.Y > peak.Y {
			peak = point
		}
	}

	return peak, true
}

// Frequency inverts Remap.
func Frequency(x, width float64) float64 {
	return math.Pow(10, x/width*logRange+logMin)
}

// transformSize is the largest power of two <= min(n, MaxTransform).
func transformSize(n int) int {
	size := 1
	for size*2 <= min(n, MaxTransform) {
		size *= 2
	}

	return size
}

func makeHannWindow(size int) window {
	hann := window{weights: make([]float64, size)}
	for i := range hann.weights {
		hann.weights[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
		hann.sum += hann.weights[i]
	}

	return hann
}

func toDb(magnitude float64) float64 {
	if magnitude <= 0 {
		return FloorDb
	}

	return math.Max(20*math.Log10(magnitude), FloorDb)
}

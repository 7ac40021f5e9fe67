// Package output provides shared serialization of reports and frames for the console, JSON and
// markdown formatters.
package output

import (
	"math"

	"github.com/farcloser/tympanum"
	"github.com/farcloser/tympanum/internal/analysis/spectral"
	"github.com/farcloser/tympanum/internal/types"
)

// ReportToMap converts an inspection report into the canonical map structure.
// Series (spectra, waveform, history) are only included when full is set.
func ReportToMap(report *tympanum.Report, width float64, full bool) map[string]any {
	meta := map[string]any{
		"title":        report.Title,
		"sample_rate":  report.SampleRate,
		"channels":     report.Channels,
		"frames":       report.Frames,
		"duration_sec": report.Duration.Seconds(),
		"at_sec":       report.At.Seconds(),
	}

	loudness := LoudnessToMap(report.Loudness)
	loudness["max_momentary_lufs"] = finite(report.MaxMomentary)
	loudness["max_short_term_lufs"] = finite(report.MaxShortTerm)
	meta["loudness"] = loudness

	meta["clipping"] = ClippingToMap(report.Clipping)
	meta["dc_offset"] = map[string]any{
		"offset":    report.DCOffset.Offset,
		"offset_db": report.DCOffset.OffsetDb,
		"channels":  report.DCOffset.Channels,
	}

	if report.PeakFrequency > 0 {
		meta["peak"] = map[string]any{
			"frequency_hz": report.PeakFrequency,
			"level_db":     finite(report.PeakDb),
		}
	}

	if report.View != nil {
		meta["view"] = FrameToMap(report.View, width, full)
	}

	return meta
}

// FrameToMap converts a render frame into a map.
func FrameToMap(frame *types.Frame, width float64, full bool) map[string]any {
	meta := map[string]any{
		"mode":         frame.Mode.String(),
		"title":        frame.Title,
		"generation":   frame.Generation,
		"playing":      frame.Playing,
		"position_sec": frame.Position.Seconds(),
		"duration_sec": frame.Duration.Seconds(),
		"loudness":     LoudnessToMap(frame.Loudness),
		"stereo":       StereoToMap(frame.Stereo),
		"waveform":     WaveformToMap(frame.Waveform, full),
		"mid_spectrum": SpectrumToMap(frame.MidSpectrum, width, full),
	}

	if len(frame.SideSpectrum) > 0 {
		meta["side_spectrum"] = SpectrumToMap(frame.SideSpectrum, width, full)
	}

	if full {
		meta["history"] = PointsToList(frame.History)
	}

	if frame.Notice != "" {
		meta["notice"] = frame.Notice
	}

	return meta
}

// ClippingToMap converts clipping results to a map.
func ClippingToMap(result types.ClippingReadout) map[string]any {
	channels := make([]any, 0, len(result.Channels))
	for i, ch := range result.Channels {
		channels = append(channels, map[string]any{
			"channel":         i,
			"events":          ch.Events,
			"clipped_samples": ch.ClippedSamples,
			"longest_run":     ch.LongestRun,
		})
	}

	return map[string]any{
		"events":          result.Events,
		"clipped_samples": result.ClippedSamples,
		"longest_run":     result.LongestRun,
		"samples":         result.Samples,
		"channels":        channels,
	}
}

// LoudnessToMap converts scalar loudness values to a map.
func LoudnessToMap(readout types.LoudnessReadout) map[string]any {
	return map[string]any{
		"short_term_lufs":  finite(readout.ShortTerm),
		"momentary_lufs":   finite(readout.Momentary),
		"integrated_lufs":  finite(readout.Integrated),
		"loudness_range":   finite(readout.Range),
		"true_peak_left":   finite(readout.TruePeakLeft),
		"true_peak_right":  finite(readout.TruePeakRight),
		"true_peak_db_max": finite(linearToDb(math.Max(readout.TruePeakLeft, readout.TruePeakRight))),
	}
}

// StereoToMap converts the stereo field readout to a map.
func StereoToMap(readout types.StereoReadout) map[string]any {
	return map[string]any{
		"correlation": finite(readout.Correlation),
		"width":       finite(readout.Width),
		"balance_db":  finite(readout.BalanceDb),
		"frames":      readout.Frames,
	}
}

// WaveformToMap converts the waveform view to a map.
func WaveformToMap(view types.Waveform, full bool) map[string]any {
	meta := map[string]any{
		"state":       view.State.String(),
		"start_frame": view.Start,
		"end_frame":   view.End,
		"playhead_ms": view.Playhead,
		"points":      len(view.Points),
	}

	if full {
		meta["series"] = PointsToList(view.Points)
	}

	return meta
}

// SpectrumToMap summarizes a spectrum: bin count and strongest bin.
func SpectrumToMap(points []types.Point, width float64, full bool) map[string]any {
	meta := map[string]any{
		"bins": len(points),
	}

	if peak, ok := spectral.Peak(points); ok {
		meta["peak_hz"] = spectral.Frequency(peak.X, width)
		meta["peak_db"] = finite(peak.Y)
	}

	if full {
		meta["series"] = PointsToList(points)
	}

	return meta
}

// PointsToList converts a chart series to [x, y] pairs.
func PointsToList(points []types.Point) []any {
	list := make([]any, 0, len(points))
	for _, point := range points {
		list = append(list, []float64{finite(point.X), finite(point.Y)})
	}

	return list
}

// finite keeps JSON encodable: NaN and infinities do not exist in JSON.
func finite(value float64) float64 {
	switch {
	case math.IsNaN(value):
		return 0
	case math.IsInf(value, 1):
		return math.MaxFloat64
	case math.IsInf(value, -1):
		return -math.MaxFloat64
	}

	return value
}

func linearToDb(value float64) float64 {
	if value <= 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(value)
}

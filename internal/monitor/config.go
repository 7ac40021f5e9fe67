package monitor

import (
	"time"

	"github.com/farcloser/tympanum/internal/analysis/loudness"
	"github.com/farcloser/tympanum/internal/analysis/spectral"
)

// Config holds the view parameters of a Monitor.
type Config struct {
	Window     time.Duration // waveform window
	Lookback   int           // frames analyzed behind the play position (spectra, stereo readout)
	ChartWidth float64       // width of the log-frequency axis
	HistoryLen int           // entries of the short-term loudness chart
	NoticeTTL  time.Duration // how long a notice stays visible
}

func DefaultConfig() Config {
	return Config{
		Window:     15 * time.Second,
		Lookback:   spectral.MaxTransform,
		ChartWidth: spectral.DefaultWidth,
		HistoryLen: loudness.HistoryLen,
		NoticeTTL:  5 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.Window <= 0 {
		c.Window = def.Window
	}

	if c.Lookback <= 0 {
		c.Lookback = def.Lookback
	}

	if c.ChartWidth <= 0 {
		c.ChartWidth = def.ChartWidth
	}

	if c.HistoryLen <= 0 {
		c.HistoryLen = def.HistoryLen
	}

	if c.NoticeTTL <= 0 {
		c.NoticeTTL = def.NoticeTTL
	}

	return c
}

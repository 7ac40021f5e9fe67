package main

import (
	"github.com/urfave/cli/v3"

	"github.com/farcloser/tympanum"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: console, json, markdown",
		Value:   "console",
		Sources: cli.EnvVars("TYMPANUM_FORMAT"),
	}
}

func fullFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "full",
		Usage: "Include the raw chart series (spectra, waveform, loudness history) in output",
	}
}

func windowFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:    "window",
		Aliases: []string{"w"},
		Usage:   "Waveform window",
		Value:   tympanum.DefaultOptions().Window,
		Sources: cli.EnvVars("TYMPANUM_WINDOW"),
	}
}

func intervalFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:    "interval",
		Aliases: []string{"i"},
		Usage:   "How often a readout is printed",
		Value:   defaultInterval,
		Sources: cli.EnvVars("TYMPANUM_INTERVAL"),
	}
}

// options reads the flags shared by the subcommands.
func options(cmd *cli.Command) tympanum.Options {
	opts := tympanum.DefaultOptions()

	if window := cmd.Duration("window"); window > 0 {
		opts.Window = window
	}

	opts.Interval = cmd.Duration("interval")

	return opts
}

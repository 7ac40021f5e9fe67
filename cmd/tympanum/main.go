package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/tympanum/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	appl := &cli.Command{
		Name:    version.Name(),
		Usage:   "Audio inspection: spectra, waveform, loudness and stereo field",
		Version: version.Version() + " " + version.Commit(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"D"},
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("TYMPANUM_DEBUG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}

			return ctx, nil
		},
		Commands: []*cli.Command{
			inspectCommand(),
			playCommand(),
			captureCommand(),
			devicesCommand(),
		},
	}

	if err := appl.Run(ctx, os.Args); err != nil {
		stop()
		slog.Error("failed to run", "error", err)
		os.Exit(1)
	}
}

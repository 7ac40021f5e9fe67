//nolint:wrapcheck
package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/tympanum"
	"github.com/farcloser/tympanum/internal/capture"
)

func captureCommand() *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Analyze live input from a capture device",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "device",
				Aliases: []string{"d"},
				Usage:   "Input device index (see `devices`), -1 for the default input",
				Value:   capture.DefaultDevice,
				Sources: cli.EnvVars("TYMPANUM_DEVICE"),
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "Stop after this long (0 runs until interrupted)",
			},
			intervalFlag(),
			windowFlag(),
			formatFlag(),
			fullFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := options(cmd)

			render, err := frameRenderer(opts, cmd.String("format"), cmd.Bool("full"))
			if err != nil {
				return err
			}

			if duration := cmd.Duration("duration"); duration > 0 {
				var cancel context.CancelFunc

				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			return tympanum.Capture(ctx, cmd.Int("device"), opts, render)
		},
	}
}

//nolint:wrapcheck
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/tympanum"
	"github.com/farcloser/tympanum/internal/decode"
	"github.com/farcloser/tympanum/internal/playback"
)

const speakerBuffer = 100 * time.Millisecond

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Play an audio file and print readouts while it plays",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "Start playback at this position",
			},
			intervalFlag(),
			windowFlag(),
			formatFlag(),
			fullFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errInvalidArgCount, cmd.NArg())
			}

			opts := options(cmd)
			opts.Start = cmd.Duration("start")

			render, err := frameRenderer(opts, cmd.String("format"), cmd.Bool("full"))
			if err != nil {
				return err
			}

			newSink := func() (playback.Sink, error) {
				return playback.NewSpeakerSink(speakerBuffer), nil
			}

			return tympanum.Play(ctx, decode.DefaultRegistry(), newSink, cmd.Args().First(), opts, render)
		},
	}
}

//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/tympanum"
	"github.com/farcloser/tympanum/internal/decode"
)

var errInvalidArgCount = errors.New("expected exactly one argument: file path")

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Decode an audio file, measure its loudness and compute the views at a position",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "at",
				Aliases: []string{"a"},
				Usage:   "Position the views are computed at (clamped to the file)",
			},
			windowFlag(),
			formatFlag(),
			fullFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errInvalidArgCount, cmd.NArg())
			}

			filePath := cmd.Args().First()
			opts := options(cmd)

			report, err := tympanum.Inspect(ctx, decode.DefaultRegistry(), filePath, cmd.Duration("at"), opts)
			if err != nil {
				return fmt.Errorf("inspection failed: %w", err)
			}

			return outputReport(filePath, report, opts, cmd.String("format"), cmd.Bool("full"))
		},
	}
}

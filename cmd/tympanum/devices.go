//nolint:wrapcheck
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/farcloser/primordium/format"
	"github.com/urfave/cli/v3"

	"github.com/farcloser/tympanum/internal/capture"
)

func devicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "List audio input devices",
		Flags: []cli.Flag{
			formatFlag(),
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			formatter, err := format.GetFormatter(cmd.String("format"))
			if err != nil {
				return err
			}

			devices, err := capture.Devices()
			if err != nil {
				return err
			}

			data := make([]*format.Data, 0, len(devices))
			for _, device := range devices {
				data = append(data, &format.Data{
					Object: fmt.Sprintf("%d: %s", device.Index, device.Name),
					Meta: map[string]any{
						"index":       device.Index,
						"host_api":    device.HostAPI,
						"channels":    device.Channels,
						"sample_rate": device.SampleRate,
						"default":     device.Default,
					},
				})
			}

			return formatter.PrintAll(data, os.Stdout)
		},
	}
}

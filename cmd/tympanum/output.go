//nolint:wrapcheck
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/farcloser/primordium/format"

	"github.com/farcloser/tympanum"
	"github.com/farcloser/tympanum/internal/output"
	"github.com/farcloser/tympanum/internal/types"
)

const defaultInterval = time.Second

func outputReport(filePath string, report *tympanum.Report, opts tympanum.Options, formatName string, full bool) error {
	formatter, err := format.GetFormatter(formatName)
	if err != nil {
		return err
	}

	data := &format.Data{
		Object: filePath,
		Meta:   output.ReportToMap(report, opts.ChartWidth, full),
	}

	return formatter.PrintAll([]*format.Data{data}, os.Stdout)
}

// frameRenderer prints one readout per frame.
func frameRenderer(opts tympanum.Options, formatName string, full bool) (tympanum.Render, error) {
	formatter, err := format.GetFormatter(formatName)
	if err != nil {
		return nil, err
	}

	return func(frame *types.Frame) error {
		data := &format.Data{
			Object: frameLabel(frame),
			Meta:   output.FrameToMap(frame, opts.ChartWidth, full),
		}

		return formatter.PrintAll([]*format.Data{data}, os.Stdout)
	}, nil
}

func frameLabel(frame *types.Frame) string {
	if frame.Mode == types.ModeCapture {
		return fmt.Sprintf("%s %s", frame.Title, clock(frame.Position))
	}

	return fmt.Sprintf("%s %s / %s", frame.Title, clock(frame.Position), clock(frame.Duration))
}

func clock(d time.Duration) string {
	d = d.Round(time.Second)

	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

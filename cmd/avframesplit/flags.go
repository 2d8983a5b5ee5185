package main

import (
	"fmt"
	"io"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/avframesplit/framesink"
	"github.com/xaionaro-go/avframesplit/source"
)

type flags struct {
	LoggerLevel logger.Level
	Backend     source.Backend
	Format      framesink.Format
	IndexWidth  int

	VideoPath string
	OutputDir string
	Start     string
	End       string
}

// parseFlags parses the command line (without the program name). Flags
// must come before the positional arguments; everything after the first
// positional argument is positional too, so negative times like "-1" reach
// the time validation instead of being taken for flags.
func parseFlags(name string, args []string, usageOut io.Writer) (*flags, error) {
	f := &flags{
		LoggerLevel: logger.LevelWarning,
		Backend:     source.BackendLibAV,
		Format:      framesink.FormatPNG,
	}

	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(usageOut)
	flagSet.SetInterspersed(false)
	flagSet.Usage = func() {
		fmt.Fprintf(usageOut, "syntax: %s [flags] [--] <video-path> <output-dir> <start> <end>\n", name)
		fmt.Fprintf(usageOut, "  <start> and <end> are seconds (12.5) or durations (1m30s)\n")
		flagSet.PrintDefaults()
	}
	flagSet.Var(&f.LoggerLevel, "log-level", "Log level")
	flagSet.Var(&f.Backend, "backend", "decoding backend: libav or opencv")
	flagSet.Var(&f.Format, "format", "output image format: png, bmp or tiff")
	flagSet.IntVar(&f.IndexWidth, "index-width", framesink.DefaultIndexWidth, "minimal amount of digits of the frame index in file names")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if flagSet.NArg() != 4 {
		flagSet.Usage()
		return nil, fmt.Errorf("expected 4 positional arguments, got %d", flagSet.NArg())
	}
	f.VideoPath = flagSet.Arg(0)
	f.OutputDir = flagSet.Arg(1)
	f.Start = flagSet.Arg(2)
	f.End = flagSet.Arg(3)
	return f, nil
}

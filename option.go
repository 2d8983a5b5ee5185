package avframesplit

import (
	"github.com/xaionaro-go/avframesplit/framesink"
	"github.com/xaionaro-go/avframesplit/source"
)

type Config struct {
	Opener     source.Opener
	Format     framesink.Format
	IndexWidth int
}

type Option interface {
	apply(*Config)
}

type Options []Option

func (s Options) apply(cfg *Config) {
	for _, opt := range s {
		opt.apply(cfg)
	}
}

func (s Options) Config() Config {
	cfg := Config{
		Opener:     source.BackendLibAV.Opener(),
		Format:     framesink.FormatPNG,
		IndexWidth: framesink.DefaultIndexWidth,
	}
	s.apply(&cfg)
	return cfg
}

// OptionOpener selects how the video file is opened (which decoding backend).
type OptionOpener source.Opener

func (opt OptionOpener) apply(cfg *Config) {
	cfg.Opener = source.Opener(opt)
}

// OptionFormat selects the lossless image format of the output files.
type OptionFormat framesink.Format

func (opt OptionFormat) apply(cfg *Config) {
	cfg.Format = framesink.Format(opt)
}

// OptionIndexWidth sets the minimal number of digits in output file names.
type OptionIndexWidth int

func (opt OptionIndexWidth) apply(cfg *Config) {
	cfg.IndexWidth = int(opt)
}

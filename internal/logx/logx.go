package logx

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/cdict/internal/config"
)

// NewLogger returns a zerolog logger writing to stderr, configured by cfg.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return New(os.Stderr, cfg)
}

// New returns a logger writing to w. A nil cfg uses config.DefaultConfig.
func New(w io.Writer, cfg *config.Config) zerolog.Logger {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if cfg.LogFormat == config.FormatJSON {
		return zerolog.New(w).Level(cfg.LogLevel).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	zerolog.CallerMarshalFunc = shortCaller
	return zerolog.New(output).Level(cfg.LogLevel).With().Timestamp().Caller().Logger()
}

func shortCaller(pc uintptr, file string, line int) string {
	// Extract just the filename, not the full path
	short := file
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			short = file[i+1:]
			break
		}
	}
	// Pad to 24 characters for alignment
	return fmt.Sprintf("%-24s", fmt.Sprintf("%s:%d", short, line))
}

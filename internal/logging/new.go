package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatZap  = "zap"
)

// Options selects the logger implementation.
type Options struct {
	Writer io.Writer
	Level  string
	Format string
}

// New builds a Logger for the given options. Text and JSON use slog; "zap"
// builds a zap production core writing to the same writer.
func New(opts Options) (Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		return NewSlogLogger(slog.New(slog.NewTextHandler(opts.Writer, &slog.HandlerOptions{Level: level}))), nil
	case FormatJSON:
		return NewSlogLogger(slog.New(slog.NewJSONHandler(opts.Writer, &slog.HandlerOptions{Level: level}))), nil
	case FormatZap:
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(opts.Writer),
			zapLevel(level),
		)
		return NewZapLogger(zap.New(core)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l <= slog.LevelDebug:
		return zapcore.DebugLevel
	case l <= slog.LevelInfo:
		return zapcore.InfoLevel
	case l <= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

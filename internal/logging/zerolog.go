package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the zerolog level and output format.
type Config struct {
	Level  string // trace|debug|info|warn|error
	Format string // json|console
}

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger builds a zerolog-backed Logger writing to out (os.Stdout
// when nil). Unknown levels fall back to info.
func NewZerologLogger(cfg Config, out io.Writer) *ZerologLogger {
	if out == nil {
		out = os.Stdout
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if strings.ToLower(cfg.Format) == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

func (z *ZerologLogger) Debug(msg string, fields ...Field) {
	withFields(z.zl.Debug(), fields).Msg(msg)
}

func (z *ZerologLogger) Info(msg string, fields ...Field) {
	withFields(z.zl.Info(), fields).Msg(msg)
}

func (z *ZerologLogger) Warn(msg string, fields ...Field) {
	withFields(z.zl.Warn(), fields).Msg(msg)
}

func (z *ZerologLogger) Error(msg string, fields ...Field) {
	withFields(z.zl.Error(), fields).Msg(msg)
}

func (z *ZerologLogger) With(fields ...Field) Logger {
	ctx := z.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &ZerologLogger{zl: ctx.Logger()}
}

func withFields(ev *zerolog.Event, fields []Field) *zerolog.Event {
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			ev = ev.Str(f.Key, v)
		case int:
			ev = ev.Int(f.Key, v)
		case bool:
			ev = ev.Bool(f.Key, v)
		case time.Duration:
			ev = ev.Dur(f.Key, v)
		case error:
			ev = ev.AnErr(f.Key, v)
		default:
			ev = ev.Interface(f.Key, v)
		}
	}
	return ev
}

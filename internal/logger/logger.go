package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"longevitygenie/opengenes/internal/config"
)

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup installs the default logger. The returned closer releases the log
// file, if one was opened.
func Setup(cfg config.LoggerConfigs) (io.Closer, error) {
	console := io.Writer(os.Stderr)
	if cfg.ConsoleOutput == "stdout" {
		console = os.Stdout
	}

	var logFile *os.File
	if cfg.FileOutput != "" {
		f, err := os.OpenFile(cfg.FileOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		logFile = f
	}

	var file io.Writer
	if logFile != nil {
		file = logFile
	}

	slog.SetDefault(slog.New(NewHandler(cfg, console, file)))

	if logFile == nil {
		return nopCloser{}, nil
	}
	return logFile, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewHandler fans records out to a console text handler and, when file is
// not nil, a file handler that records source locations.
func NewHandler(cfg config.LoggerConfigs, console io.Writer, file io.Writer) *MultiHandler {
	var handlers []slog.Handler

	stdErrOpts := &slog.HandlerOptions{Level: parseLevel(cfg.ConsoleLevel)}
	handlers = append(handlers, slog.NewTextHandler(console, stdErrOpts))

	if file != nil {
		fileOpts := &slog.HandlerOptions{
			Level: parseLevel(cfg.FileLevel), AddSource: true,
		}
		handlers = append(handlers, slog.NewTextHandler(file, fileOpts))
	}

	return NewMultiHandler(handlers...)
}

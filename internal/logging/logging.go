// Package logging собирает zap-логгер: консоль, файл с ротацией и трансляция в дашборд.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Verbose bool
	// File — путь к файлу лога; пусто — без файла.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Console — куда писать консольный лог (по умолчанию stderr).
	Console io.Writer
	// Sink получает копию записей (консоль дашборда).
	Sink Sink
}

// New строит логгер. Закрыть файл можно через возвращаемую функцию.
func New(opts Options) (*zap.Logger, func() error, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Verbose {
		level.SetLevel(zapcore.DebugLevel)
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder(console), zapcore.Lock(zapcore.AddSync(console)), level),
	}

	closeFn := func() error { return nil }
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 20),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 14),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder(), zapcore.AddSync(lj), level))
		closeFn = lj.Close
	}
	if opts.Sink != nil {
		cores = append(cores, NewBroadcastCore(opts.Sink, level))
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return log, closeFn, nil
}

// consoleEncoder: человекочитаемый вывод в терминал, JSON — в пайп.
func consoleEncoder(w io.Writer) zapcore.Encoder {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		return zapcore.NewConsoleEncoder(cfg)
	}
	return jsonEncoder()
}

func jsonEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

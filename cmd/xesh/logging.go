package main

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crosswalk-project/crosswalk-sub003/binding"
	"github.com/crosswalk-project/crosswalk-sub003/dispatch"
	"github.com/crosswalk-project/crosswalk-sub003/extension"
	"github.com/crosswalk-project/crosswalk-sub003/jscontext"
	"github.com/crosswalk-project/crosswalk-sub003/notify"
	"github.com/crosswalk-project/crosswalk-sub003/reflector"
	"github.com/crosswalk-project/crosswalk-sub003/runtime"
	"github.com/crosswalk-project/crosswalk-sub003/wasmext"
)

func newLogger(mode string) (*zap.Logger, error) {
	switch mode {
	case "":
		return zap.NewNop(), nil
	case "dev":
		return zap.NewDevelopment()
	case "prod":
		return zap.NewProduction()
	}
	return nil, fmt.Errorf("unknown -log mode %q (want dev or prod)", mode)
}

// installLogger hands l to every package that logs.
func installLogger(l *zap.Logger) {
	binding.SetLogger(l.Named("binding"))
	dispatch.SetLogger(l.Named("dispatch"))
	extension.SetLogger(l.Named("extension"))
	jscontext.SetLogger(l.Named("jscontext"))
	notify.SetLogger(l.Named("notify"))
	reflector.SetLogger(l.Named("reflector"))
	runtime.SetLogger(l.Named("runtime"))
	wasmext.SetLogger(l.Named("wasmext"))
}

// consoleLogger prints script console output as bare lines, prefixed with
// the level for anything above info.
func consoleLogger(w io.Writer) *zap.Logger {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:  "msg",
		LevelKey:    "level",
		EncodeLevel: consoleLevel,
	})
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel))
}

func consoleLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l > zapcore.InfoLevel {
		enc.AppendString(l.CapitalString() + ":")
	}
}

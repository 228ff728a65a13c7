// Package logger wraps a process-wide zap sugared logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sugar = zap.NewNop().Sugar()

// Init builds the logger from the configured level and format ("json" or
// "console"). Safe to call once at process start.
func Init(level, format string) {
	logLevel := zap.NewAtomicLevel()
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel.SetLevel(zap.InfoLevel)
	}

	var zapConfig zap.Config
	if format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.Level = logLevel
	zapConfig.OutputPaths = []string{"stderr"}

	logger, err := zapConfig.Build()
	if err != nil {
		panic(err)
	}
	sugar = logger.Sugar()
}

func Info(msg string)                                { sugar.Info(msg) }
func Infof(template string, args ...interface{})     { sugar.Infof(template, args...) }
func Infow(msg string, keysAndValues ...interface{}) { sugar.Infow(msg, keysAndValues...) }
func Warnf(template string, args ...interface{})     { sugar.Warnf(template, args...) }
func Warnw(msg string, keysAndValues ...interface{}) { sugar.Warnw(msg, keysAndValues...) }
func Error(msg string, err error)                    { sugar.Errorw(msg, "error", err) }
func Errorf(template string, args ...interface{})    { sugar.Errorf(template, args...) }
func Fatalf(template string, args ...interface{})    { sugar.Fatalf(template, args...) }

// Sync flushes buffered entries. Call before exit.
func Sync() {
	_ = sugar.Sync()
}

// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

package logger

import (
	"fmt"
	"log/slog"
	"os"
)

const defaultTimeFormat = "2006/01/02 15:04:05"

var (
	// DefaultLogger is the logger used by the package-level helpers.
	DefaultLogger *slog.Logger

	logLevel    = new(slog.LevelVar)
	isDebugMode bool
)

func init() {
	DefaultLogger = slog.New(newHandler(os.Stdout, createHandlerOptions(logLevel)))
	slog.SetDefault(DefaultLogger)
}

// EnableDebugMode method enables verbose logging.
func EnableDebugMode() {
	logLevel.Set(slog.LevelDebug)
	isDebugMode = true
	Debug("Enable verbose logging")
}

// IsDebugMode method checks if the debug mode is enabled.
func IsDebugMode() bool {
	return isDebugMode
}

func createHandlerOptions(logLevel *slog.LevelVar) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				t := a.Value.Time()
				a.Value = slog.StringValue(t.Format(defaultTimeFormat))
			}
			return a
		},
	}
}

// Debug method logs message with "debug" level.
func Debug(a ...interface{}) {
	DefaultLogger.Debug(fmt.Sprint(a...))
}

// Debugf method logs message with "debug" level and formats it.
func Debugf(format string, a ...interface{}) {
	DefaultLogger.Debug(fmt.Sprintf(format, a...))
}

// Info method logs message with "info" level.
func Info(a ...interface{}) {
	DefaultLogger.Info(fmt.Sprint(a...))
}

// Infof method logs message with "info" level and formats it.
func Infof(format string, a ...interface{}) {
	DefaultLogger.Info(fmt.Sprintf(format, a...))
}

// Warn method logs message with "warn" level.
func Warn(a ...interface{}) {
	DefaultLogger.Warn(fmt.Sprint(a...))
}

// Warnf method logs message with "warn" level and formats it.
func Warnf(format string, a ...interface{}) {
	DefaultLogger.Warn(fmt.Sprintf(format, a...))
}

// Error method logs message with "error" level.
func Error(a ...interface{}) {
	DefaultLogger.Error(fmt.Sprint(a...))
}

// Errorf method logs message with "error" level and formats it.
func Errorf(format string, a ...interface{}) {
	DefaultLogger.Error(fmt.Sprintf(format, a...))
}

// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger is blockfs's structured-logging surface. It wraps a single
// swappable *slog.Logger behind package-level Tracef/Debugf/Infof/Warnf/Errorf
// functions, with an extra TRACE level below slog's built-in Debug for the
// cache/inode hot paths.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/coursefs/blockfs/cfg"
)

// Extra severity below slog's four built-in levels, spaced by 4 so it
// interleaves cleanly with slog.LevelDebug/Info/Warn/Error.
const (
	LevelTrace = slog.Level(-8)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace:      "TRACE",
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO",
	slog.LevelWarn:  "WARNING",
	slog.LevelError: "ERROR",
}

var severityLevels = map[cfg.LogSeverity]slog.Level{
	cfg.SeverityTrace:   LevelTrace,
	cfg.SeverityDebug:   slog.LevelDebug,
	cfg.SeverityInfo:    slog.LevelInfo,
	cfg.SeverityWarning: slog.LevelWarn,
	cfg.SeverityError:   slog.LevelError,
}

var defaultLogger = slog.New(newHandler(os.Stderr, slog.LevelInfo, cfg.FormatText))

// Init reconfigures the package-level logger per the resolved mount config.
// Safe to call before any goroutine has started logging; not safe to race
// against concurrent Infof/Warnf/etc calls.
func Init(c cfg.LoggingConfig, w io.Writer) {
	level, ok := severityLevels[c.Severity]
	if !ok {
		level = slog.LevelInfo
	}
	if w == nil {
		w = os.Stderr
	}
	defaultLogger = slog.New(newHandler(w, level, c.Format))
}

func newHandler(w io.Writer, level slog.Level, format cfg.LogFormat) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				lvl := a.Value.Any().(slog.Level)
				name, ok := levelNames[lvl]
				if !ok {
					name = lvl.String()
				}
				a.Key = "severity"
				a.Value = slog.StringValue(name)
			}
			return a
		},
	}
	if format == cfg.FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func log(level slog.Level, format string, args ...interface{}) {
	ctx := context.Background()
	if !defaultLogger.Enabled(ctx, level) {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	defaultLogger.Log(ctx, level, msg)
}

func Tracef(format string, args ...interface{}) { log(LevelTrace, format, args...) }
func Debugf(format string, args ...interface{}) { log(slog.LevelDebug, format, args...) }
func Infof(format string, args ...interface{})  { log(slog.LevelInfo, format, args...) }
func Warnf(format string, args ...interface{})  { log(slog.LevelWarn, format, args...) }
func Errorf(format string, args ...interface{}) { log(slog.LevelError, format, args...) }

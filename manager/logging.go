// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"io"
	"log/slog"

	"github.com/SladkyCitron/slogcolor"
	"github.com/sirupsen/logrus"

	"github.com/choria-io/platcheck/model"
)

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// NewLogger creates the diagnostic logger, format json logs with logrus and anything else as slog text
func NewLogger(w io.Writer, level string, format string) model.Logger {
	if format == "json" {
		l := logrus.New()
		l.SetOutput(w)
		l.SetFormatter(&logrus.JSONFormatter{})

		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			lvl = logrus.WarnLevel
		}
		l.SetLevel(lvl)

		return NewLogrusLogger(logrus.NewEntry(l))
	}

	return NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel(level)})))
}

// NewOutputLogger creates the logger reporting check outcomes, colored when writing to a terminal
func NewOutputLogger(w io.Writer, debug bool, color bool) model.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	if color {
		return NewSlogLogger(slog.New(slogcolor.NewHandler(w, &slogcolor.Options{Level: level})))
	}

	return NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

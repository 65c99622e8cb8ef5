// SPDX-License-Identifier: MPL-2.0

// Package logging builds the slog logger used by the pluginlib command.
package logging

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// Prefix is printed before every record.
const Prefix = "pluginlib"

// New returns a slog.Logger backed by a charmbracelet/log handler writing to w.
// Records below level are dropped.
func New(w io.Writer, level slog.Level) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Prefix: Prefix,
		Level:  log.Level(level),
	})
	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

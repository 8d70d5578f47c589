package logger

import (
	"context"
	"io"
	"log/slog"
)

type nop struct{}

// Nop returns a logger that drops every record. Used by tests.
func Nop() Logger { return nop{} }

func (nop) Debug(context.Context, string, ...any)        {}
func (nop) Info(context.Context, string, ...any)         {}
func (nop) Warn(context.Context, string, ...any)         {}
func (nop) Error(context.Context, string, error, ...any) {}
func (nop) GetSlogLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

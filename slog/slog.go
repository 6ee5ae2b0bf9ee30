// Package slog provides logging decorators for docchat collaborators.
// Each decorator logs one line per call with its duration and outcome, then
// returns the wrapped result unchanged.
package slog

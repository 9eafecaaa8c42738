package graph

import (
	"golang.org/x/exp/slog"
)

func _Logger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

//go:build mock

package main

import (
	"log/slog"

	"github.com/i4arch/i4settings/internal/config"
	"github.com/i4arch/i4settings/internal/runner"
	"github.com/i4arch/i4settings/wifi"
	"github.com/i4arch/i4settings/wifi/mock"
)

func GetBackend(cfg config.Config, r runner.Runner, logger *slog.Logger) (wifi.Backend, error) {
	return mock.New(), nil
}

//go:build !mock

package main

import (
	"log/slog"

	"github.com/i4arch/i4settings/internal/config"
	"github.com/i4arch/i4settings/internal/runner"
	"github.com/i4arch/i4settings/wifi"
	"github.com/i4arch/i4settings/wifi/mock"
	"github.com/i4arch/i4settings/wifi/nmcli"
)

// GetBackend returns the Wi-Fi backend named in cfg. If the D-Bus backend
// cannot reach NetworkManager, nmcli is used instead.
func GetBackend(cfg config.Config, r runner.Runner, logger *slog.Logger) (wifi.Backend, error) {
	switch cfg.Backend {
	case config.BackendMock:
		return mock.New(), nil
	case config.BackendDBus:
		b, err := newDBusBackend(logger)
		if err == nil {
			return b, nil
		}
		logger.Warn("failed to initialize networkmanager backend, falling back to nmcli", "error", err)
	}
	return nmcli.New(r, logger), nil
}

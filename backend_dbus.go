//go:build linux && !mock

package main

import (
	"log/slog"

	"github.com/i4arch/i4settings/wifi"
	"github.com/i4arch/i4settings/wifi/networkmanager"
)

func newDBusBackend(logger *slog.Logger) (wifi.Backend, error) {
	b, err := networkmanager.New(logger)
	if err != nil {
		return nil, err
	}
	return b, nil
}

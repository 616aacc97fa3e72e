//go:build !linux && !mock

package main

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/i4arch/i4settings/wifi"
)

func newDBusBackend(logger *slog.Logger) (wifi.Backend, error) {
	return nil, fmt.Errorf("%w: NetworkManager D-Bus backend on %s", wifi.ErrNotSupported, runtime.GOOS)
}

// Package server exposes the control-panel operations to UI clients, as
// one-shot HTTP calls and over a WebSocket that also carries push events.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gorilla/websocket"

	"github.com/i4arch/i4settings/bluetooth"
	"github.com/i4arch/i4settings/internal/appearance"
	"github.com/i4arch/i4settings/internal/config"
	"github.com/i4arch/i4settings/internal/hypr"
	ilog "github.com/i4arch/i4settings/internal/log"
	"github.com/i4arch/i4settings/internal/packages"
	"github.com/i4arch/i4settings/internal/sysinfo"
	"github.com/i4arch/i4settings/vpn"
	"github.com/i4arch/i4settings/wifi"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidParams  = errors.New("invalid parameters")
)

// Push event names.
const (
	EventWifiNetworks  = "wifi_networks"
	EventConfigChanged = "config_changed"
	EventLog           = "log"
)

const maxParamsSize = 1 << 20

// Services are the operations the server dispatches to.
type Services struct {
	WiFi       wifi.Backend
	VPN        *vpn.Manager
	Bluetooth  *bluetooth.Manager
	Packages   *packages.Manager
	AppDirs    []string
	SysInfo    *sysinfo.Collector
	Hypr       *hypr.Manager
	Appearance *appearance.Manager
	Settings   *config.SettingsStore
}

// Command runs one operation with its JSON parameters.
type Command func(ctx context.Context, params json.RawMessage) (any, error)

// Event is pushed to every WebSocket client.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Server dispatches commands and fans out events.
type Server struct {
	Schedule *ScanSchedule
	// Logs, when set, is forwarded to clients as log events.
	Logs *ilog.Handler
	// Watch lists files whose changes are pushed as config_changed events.
	Watch []string

	svc      Services
	logger   *slog.Logger
	commands map[string]Command
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]chan<- []byte
}

// New returns a Server for svc. Wi-Fi scans are pushed every scanInterval;
// ScanOff disables them until a client turns them on.
func New(svc Services, scanInterval time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:     svc,
		logger:  logger.With("component", "server"),
		clients: make(map[string]chan<- []byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.Schedule = NewScanSchedule(scanInterval, s.scanAndPush)
	s.commands = s.commandTable()
	return s
}

// Commands returns the names of all commands, sorted.
func (s *Server) Commands() []string {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named command.
func (s *Server) Invoke(ctx context.Context, name string, params json.RawMessage) (any, error) {
	cmd, ok := s.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	result, err := cmd(ctx, params)
	if err != nil {
		s.logger.Debug("command failed", "command", name, "error", err)
		return nil, err
	}
	return result, nil
}

// Handler returns the HTTP handler serving /invoke/{command} and /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /invoke/{command}", s.serveInvoke)
	mux.HandleFunc("GET /ws", s.serveWS)
	return mux
}

func (s *Server) serveInvoke(w http.ResponseWriter, r *http.Request) {
	params, err := io.ReadAll(io.LimitReader(r.Body, maxParamsSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	result, err := s.Invoke(r.Context(), r.PathValue("command"), params)
	switch {
	case errors.Is(err, ErrUnknownCommand):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, ErrInvalidParams):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, resultBody{Result: result})
	}
}

type resultBody struct {
	ID     string `json:"id,omitempty"`
	Result any    `json:"result"`
}

type errorBody struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

// Broadcast pushes an event to every connected client. Clients that are not
// keeping up miss the event.
func (s *Server) Broadcast(name string, data any) {
	msg, err := json.Marshal(Event{Event: name, Data: data})
	if err != nil {
		s.logger.Error("failed to encode event", "event", name, "error", err)
		return
	}

	s.mu.Lock()
	clients := make([]chan<- []byte, 0, len(s.clients))
	for _, ch := range s.clients {
		clients = append(clients, ch)
	}
	s.mu.Unlock()

	// No logging from here on: log records are themselves broadcast.
	for _, ch := range clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (s *Server) scanAndPush(ctx context.Context) {
	if s.clientCount() == 0 {
		return
	}
	networks, err := s.svc.WiFi.Scan(ctx)
	if err != nil {
		s.logger.Debug("scheduled scan failed", "error", err)
		return
	}
	s.Broadcast(EventWifiNetworks, networks)
}

// Run serves on addr until ctx is done, together with the scan schedule,
// the config file watcher and log forwarding.
func (s *Server) Run(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.Schedule.Run(ctx)
	if len(s.Watch) > 0 {
		go func() {
			err := config.Watch(ctx, s.Watch, s.logger, func(path string) {
				s.Broadcast(EventConfigChanged, map[string]string{"path": path})
			})
			if err != nil {
				s.logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}
	if s.Logs != nil {
		entries, unsubscribe := s.Logs.Subscribe(64)
		defer unsubscribe()
		go func() {
			for e := range entries {
				s.Broadcast(EventLog, e)
			}
		}()
	}

	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", "addr", addr, "commands", len(s.commands))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// decode unmarshals params into a T. Absent params decode to the zero T.
// Top-level camelCase keys such as "filePath" are accepted for their
// snake_case form.
func decode[T any](params json.RawMessage) (T, error) {
	var v T
	if len(bytes.TrimSpace(params)) == 0 {
		return v, nil
	}
	params = snakeKeys(params)
	if err := json.Unmarshal(params, &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return v, nil
}

// snakeKeys renames the camelCase keys of a JSON object to snake_case. A
// key whose snake_case form is also present is left alone. Anything that is
// not an object is returned unchanged.
func snakeKeys(params json.RawMessage) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(params, &obj); err != nil || obj == nil {
		return params
	}
	changed := false
	for k, val := range obj {
		snake := toSnake(k)
		if snake == k {
			continue
		}
		if _, taken := obj[snake]; taken {
			continue
		}
		obj[snake] = val
		delete(obj, k)
		changed = true
	}
	if !changed {
		return params
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return params
	}
	return out
}

// toSnake converts "vpnType" to "vpn_type". An underscore goes only
// between a lowercase letter or digit and an uppercase one, so "SSID"
// becomes "ssid".
func toSnake(s string) string {
	var b strings.Builder
	prev := rune(0)
	for _, r := range s {
		if unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
		prev = r
	}
	return b.String()
}

func required(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidParams, name)
	}
	return nil
}

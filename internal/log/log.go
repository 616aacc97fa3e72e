// Package log provides a slog.Handler that keeps the most recent records and
// forwards them to subscribers, such as connected UI clients.
package log

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCapacity is the number of records kept for late subscribers.
const DefaultCapacity = 20

// Entry is a log record in a form that can be sent to clients.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// hub is the state shared by a Handler and the handlers derived from it.
type hub struct {
	mu       sync.Mutex
	capacity int
	logs     []Entry
	subs     map[chan Entry]struct{}
}

// Handler is a slog.Handler that stores records and fans them out to
// subscribers before passing them to the wrapped handler.
type Handler struct {
	slog.Handler
	hub    *hub
	attrs  []slog.Attr
	prefix string
}

// NewHandler wraps handler, keeping the last capacity records.
func NewHandler(handler slog.Handler, capacity int) *Handler {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Handler{
		Handler: handler,
		hub:     &hub{capacity: capacity, subs: make(map[chan Entry]struct{})},
	}
}

// Handle records r, notifies subscribers and passes r on.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	e := Entry{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
	}
	if n := len(h.attrs) + r.NumAttrs(); n > 0 {
		e.Attrs = make(map[string]any, n)
		for _, a := range h.attrs {
			e.Attrs[a.Key] = a.Value.Resolve().Any()
		}
		r.Attrs(func(a slog.Attr) bool {
			e.Attrs[h.prefix+a.Key] = a.Value.Resolve().Any()
			return true
		})
	}
	h.hub.publish(e)
	return h.Handler.Handle(ctx, r)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		merged = append(merged, a)
	}
	return &Handler{Handler: h.Handler.WithAttrs(attrs), hub: h.hub, attrs: merged, prefix: h.prefix}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &Handler{Handler: h.Handler.WithGroup(name), hub: h.hub, attrs: h.attrs, prefix: h.prefix + name + "."}
}

func (hb *hub) publish(e Entry) {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	hb.logs = append(hb.logs, e)
	if len(hb.logs) > hb.capacity {
		hb.logs = hb.logs[1:]
	}
	for ch := range hb.subs {
		select {
		case ch <- e:
		default:
			// Slow subscribers miss records rather than stall logging.
		}
	}
}

// Logs returns a copy of the stored records, oldest first.
func (h *Handler) Logs() []Entry {
	h.hub.mu.Lock()
	defer h.hub.mu.Unlock()
	out := make([]Entry, len(h.hub.logs))
	copy(out, h.hub.logs)
	return out
}

// Subscribe returns a channel receiving every subsequent record and a
// function that ends the subscription and closes the channel.
func (h *Handler) Subscribe(buffer int) (<-chan Entry, func()) {
	ch := make(chan Entry, buffer)
	h.hub.mu.Lock()
	h.hub.subs[ch] = struct{}{}
	h.hub.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.hub.mu.Lock()
			delete(h.hub.subs, ch)
			h.hub.mu.Unlock()
			close(ch)
		})
	}
}

var defaultHandler *Handler

// Init installs a Handler wrapping handler as the default logger.
func Init(handler slog.Handler) *Handler {
	defaultHandler = NewHandler(handler, DefaultCapacity)
	slog.SetDefault(slog.New(defaultHandler))
	return defaultHandler
}

// Default returns the handler installed by Init, or nil.
func Default() *Handler {
	return defaultHandler
}

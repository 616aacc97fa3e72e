package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const clientBuffer = 32

// Request is a command sent by a WebSocket client. The reply echoes ID.
type Request struct {
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (s *Server) addClient(id string, ch chan<- []byte) {
	s.mu.Lock()
	s.clients[id] = ch
	n := len(s.clients)
	s.mu.Unlock()
	s.logger.Debug("added client", "id", id, "totalClients", n)
}

func (s *Server) removeClient(id string) {
	s.mu.Lock()
	delete(s.clients, id)
	n := len(s.clients)
	s.mu.Unlock()
	s.logger.Debug("removed client", "id", id, "totalClients", n)
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Info("upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan []byte, clientBuffer)
	id := uuid.New().String()
	s.addClient(id, out)
	defer s.removeClient(id)

	if s.Logs != nil {
		for _, e := range s.Logs.Logs() {
			if msg, err := json.Marshal(Event{Event: EventLog, Data: e}); err == nil {
				select {
				case out <- msg:
				default:
				}
			}
		}
	}

	go s.readRequests(ctx, cancel, conn, out)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-out:
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// readRequests dispatches each request on its own goroutine and queues the
// reply. It cancels ctx when the connection goes away.
func (s *Server) readRequests(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out chan<- []byte) {
	defer cancel()
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("read failed", "error", err)
			}
			return
		}
		go func() {
			reply := s.reply(ctx, req)
			select {
			case out <- reply:
			case <-ctx.Done():
			}
		}()
	}
}

func (s *Server) reply(ctx context.Context, req Request) []byte {
	var body any
	result, err := s.Invoke(ctx, req.Command, req.Params)
	if err != nil {
		body = errorBody{ID: req.ID, Error: err.Error()}
	} else {
		body = resultBody{ID: req.ID, Result: result}
	}
	msg, err := json.Marshal(body)
	if err != nil {
		msg, _ = json.Marshal(errorBody{ID: req.ID, Error: err.Error()})
	}
	return msg
}

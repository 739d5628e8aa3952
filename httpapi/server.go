// Package httpapi exposes the dispatcher core to out-of-process
// callers. Commands arrive as JSON envelopes on POST /api/command and
// always answer 200 with an ok/error result; push events stream out on
// GET /api/stream as server-sent events.
package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/quarterdeck/core"
	"pkt.systems/quarterdeck/internal/eventbus"
	"pkt.systems/quarterdeck/schema"
)

// Server serves the HTTP bridge.
type Server struct {
	cfg     Config
	service core.Service
	bus     *eventbus.Bus
}

// NewServer constructs an HTTP server around the dispatcher core.
func NewServer(cfg Config, service core.Service, bus *eventbus.Bus) *Server {
	return &Server{cfg: cfg, service: service, bus: bus}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/command", s.requireToken(s.handleCommand))
	mux.HandleFunc("/api/status", s.requireToken(s.handleStatus))
	mux.HandleFunc("/api/tabs", s.requireToken(s.handleTabs))
	mux.HandleFunc("/api/stream", s.requireToken(s.handleStream))
	return withRequestLogging(mux)
}

func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	if s.cfg.AuthToken == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			writeError(w, http.StatusUnauthorized, errors.New("invalid token"))
			return
		}
		next(w, r)
	}
}

// handleCommand is the wire entry point. Dispatch classifies every
// failure into the result envelope, so the HTTP status only reflects
// transport-level problems.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	var cmd schema.Command
	if err := decodeJSON(r.Body, &cmd); err != nil {
		writeJSON(w, http.StatusOK, schema.ErrResult(fmt.Errorf("%w: %v", schema.ErrInvalidArgument, err)))
		return
	}
	result := s.service.Dispatch(r.Context(), cmd)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	status, err := s.service.Status(r.Context())
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleTabs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	tabs, err := s.service.ListTabs(r.Context())
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, tabs)
}

// StreamEvent is the SSE payload for push events.
type StreamEvent struct {
	Seq       uint64               `json:"seq,omitempty"`
	Type      string               `json:"type"`
	Tab       *schema.TabEvent     `json:"tab,omitempty"`
	Command   *schema.CommandEvent `json:"command,omitempty"`
	Timestamp time.Time            `json:"ts"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	if s.bus == nil {
		writeError(w, http.StatusNotFound, errors.New("stream disabled"))
		return
	}
	log := pslog.Ctx(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastID := parseUint(r.Header.Get("Last-Event-ID"))
	replayCount := 0
	if lastID > 0 {
		replay := s.bus.Replay(lastID)
		if s.cfg.StreamReplay > 0 && len(replay) > s.cfg.StreamReplay {
			replay = replay[len(replay)-s.cfg.StreamReplay:]
		}
		replayCount = len(replay)
		for _, event := range replay {
			_ = writeSSEvent(w, toStreamEvent(event))
		}
	}
	flusher.Flush()

	events, cancel := s.bus.Subscribe()
	defer cancel()
	log.Debug("http stream open", "last_id", lastID, "replayed", replayCount)

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			log.Debug("http stream closed")
			return
		case <-keepalive.C:
			_, _ = fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSEvent(w, toStreamEvent(event)); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func toStreamEvent(event eventbus.Event) StreamEvent {
	out := StreamEvent{Seq: event.Seq, Type: string(event.Type), Timestamp: time.Now()}
	switch event.Type {
	case eventbus.EventTab:
		tab := event.Tab
		out.Tab = &tab
	case eventbus.EventCommand:
		cmd := event.Command
		out.Command = &cmd
	}
	return out
}

// statusForError maps the error taxonomy onto HTTP statuses for the
// REST-shaped endpoints.
func statusForError(err error) int {
	switch schema.KindOf(err) {
	case schema.KindInvalidArgument:
		return http.StatusBadRequest
	case schema.KindNoSuchTab, schema.KindNoActiveTab, schema.KindNotFound:
		return http.StatusNotFound
	case schema.KindTabBusy:
		return http.StatusConflict
	case schema.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

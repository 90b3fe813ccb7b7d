// Package httpapi exposes a machine over HTTP.
//
//	GET  /state           current state
//	POST /events/{event}  post an event, reply with the state afterwards
//	GET  /healthz         liveness
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/librescoot/relayfsm/machinefile"
)

// Machine is the part of a machinefile machine the handler drives
type Machine interface {
	CurrentState() machinefile.Name
	PostEvent(event machinefile.Name)
}

// StateResponse is the body of every successful reply
type StateResponse struct {
	State string `json:"state"`
	// Changed is set on POST /events when the event moved the machine
	Changed *bool `json:"changed,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type config struct {
	logger *slog.Logger
	events map[machinefile.Name]struct{}
}

type Option func(*config)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithEvents restricts POST /events to the given names; any other name is
// answered with 404. By default every name is posted.
func WithEvents(names ...string) Option {
	return func(c *config) {
		c.events = make(map[machinefile.Name]struct{}, len(names))
		for _, n := range names {
			c.events[machinefile.Name(n)] = struct{}{}
		}
	}
}

type server struct {
	machine Machine
	cfg     config
}

// NewHandler creates the router for m.
func NewHandler(m Machine, opts ...Option) http.Handler {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &server{machine: m, cfg: cfg}

	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Get("/state", s.state)
	r.Post("/events/{event}", s.postEvent)
	return r
}

func (s *server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *server) state(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, StateResponse{State: string(s.machine.CurrentState())})
}

func (s *server) postEvent(w http.ResponseWriter, r *http.Request) {
	event := machinefile.Name(chi.URLParam(r, "event"))
	if s.cfg.events != nil {
		if _, ok := s.cfg.events[event]; !ok {
			s.cfg.logger.Warn("rejected unknown event", "event", event)
			s.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "unknown event " + string(event)})
			return
		}
	}

	before := s.machine.CurrentState()
	s.machine.PostEvent(event)
	after := s.machine.CurrentState()
	changed := before != after

	s.cfg.logger.Debug("event posted", "event", event, "from", before, "to", after)
	s.writeJSON(w, http.StatusOK, StateResponse{State: string(after), Changed: &changed})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.cfg.logger.Error("response encode failed", "error", err)
	}
}

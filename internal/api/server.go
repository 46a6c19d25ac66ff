// Package api implements the HTTP/websocket façade over a running
// system.System: REST introspection and control endpoints plus a
// streaming endpoint that mirrors the event bus to a connected client.
// Grounded on nugget-thane-ai-agent/internal/api/server.go's
// http.NewServeMux + method-prefixed route + writeJSON idiom,
// generalized from an OpenAI-compatible chat surface to a thin wrapper
// over the System façade (spec.md §4.9).
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kairei-run/kairei/internal/eventbus"
	"github.com/kairei-run/kairei/internal/system"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response,
// which is not actionable but worth tracking for debugging.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, logger *slog.Logger, err error) {
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": err.Error()}, logger)
}

// Server is the HTTP/websocket API server fronting a system.System.
type Server struct {
	address string
	port    int
	sys     *system.System
	logger  *slog.Logger
	server  *http.Server

	upgrader websocket.Upgrader
}

// NewServer creates a Server bound to sys, listening on address:port.
func NewServer(address string, port int, sys *system.System, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address: address,
		port:    port,
		sys:     sys,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Events are non-sensitive runtime telemetry read by local
			// tooling; cross-origin streaming is intentionally permitted.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start begins serving HTTP requests. It blocks until the server stops
// (Shutdown is called or ListenAndServe fails).
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/version", s.handleVersion)

	mux.HandleFunc("GET /v1/agents", s.handleAgentList)
	mux.HandleFunc("POST /v1/agents/{id}/kill", s.handleAgentKill)

	mux.HandleFunc("GET /v1/providers", s.handleProviderList)
	mux.HandleFunc("GET /v1/providers/{name}", s.handleProviderState)

	mux.HandleFunc("POST /v1/requests", s.handleSendRequest)

	mux.HandleFunc("GET /v1/events", s.handleEventStream)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.withLogging(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // the event stream holds the connection open indefinitely
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"name": "kairei", "version": Version()}, s.logger)
}

func (s *Server) handleAgentList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"agents": s.sys.Agents.AgentIDs()}, s.logger)
}

func (s *Server) handleAgentKill(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.sys.Agents.KillAgent(id)
	writeJSON(w, map[string]string{"agent_id": id, "status": "killed"}, s.logger)
}

func (s *Server) handleProviderList(w http.ResponseWriter, r *http.Request) {
	names := s.sys.Providers.ProviderNames()
	primary, _ := s.sys.Providers.PrimaryProvider()
	writeJSON(w, map[string]any{"providers": names, "primary": primary}, s.logger)
}

func (s *Server) handleProviderState(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	state, err := s.sys.Providers.State(name)
	if err != nil {
		writeError(w, http.StatusNotFound, s.logger, err)
		return
	}
	writeJSON(w, map[string]any{
		"name":              name,
		"healthy":           state.IsHealthy,
		"last_health_check": state.LastHealthCheck,
		"error_count":       state.ErrorCount,
		"last_error":        state.LastError,
	}, s.logger)
}

// sendRequestBody is the JSON body POST /v1/requests accepts, mirroring
// system.System.SendRequest's parameters.
type sendRequestBody struct {
	RequestType string         `json:"request_type"`
	Requester   string         `json:"requester"`
	Responder   string         `json:"responder"`
	Params      map[string]any `json:"params"`
	TimeoutMS   int64          `json:"timeout_ms"`
}

func (s *Server) handleSendRequest(w http.ResponseWriter, r *http.Request) {
	var body sendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, s.logger, err)
		return
	}

	params := make(map[string]eventbus.Value, len(body.Params))
	for k, v := range body.Params {
		params[k] = fromJSONValue(v)
	}

	timeout := time.Duration(body.TimeoutMS) * time.Millisecond
	resp, err := s.sys.SendRequest(r.Context(), body.RequestType, body.Requester, body.Responder, params, timeout)
	if err != nil {
		writeError(w, http.StatusGatewayTimeout, s.logger, err)
		return
	}
	writeJSON(w, toWireEvent(resp), s.logger)
}

// handleEventStream upgrades the connection to a websocket and forwards
// every published bus event as a JSON text message until the client
// disconnects or the server shuts down.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("event stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	recv, _ := s.sys.Bus.Subscribe()
	defer recv.Close()

	// A reader goroutine drains client-initiated control frames (pings,
	// close) so the connection's read deadline keeps advancing; nothing
	// the client sends carries meaning here.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		ev, err := recv.Recv()
		if err != nil {
			return
		}
		if err := conn.WriteJSON(toWireEvent(ev)); err != nil {
			return
		}
	}
}

func fromJSONValue(v any) eventbus.Value {
	switch t := v.(type) {
	case nil:
		return eventbus.Null()
	case bool:
		return eventbus.Bool(t)
	case float64:
		return eventbus.Float(t)
	case string:
		return eventbus.String(t)
	case []any:
		vs := make([]eventbus.Value, len(t))
		for i, e := range t {
			vs[i] = fromJSONValue(e)
		}
		return eventbus.List(vs...)
	case map[string]any:
		m := make(map[string]eventbus.Value, len(t))
		for k, e := range t {
			m[k] = fromJSONValue(e)
		}
		return eventbus.Map(m)
	default:
		return eventbus.Null()
	}
}

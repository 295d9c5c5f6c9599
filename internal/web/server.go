package web

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"zwave-go-home/internal/automation"
	"zwave-go-home/internal/commandclass"
	"zwave-go-home/internal/network"
)

// ServerOption configures the web server.
type ServerOption func(*Server)

// WithAPIKey enables API key authentication.
func WithAPIKey(key string) ServerOption {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithAllowedOrigins sets allowed WebSocket origin patterns.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithAutomation sets the automation engine and script manager.
func WithAutomation(engine *automation.Engine, mgr *automation.Manager) ServerOption {
	return func(s *Server) {
		s.autoEngine = engine
		s.scriptMgr = mgr
	}
}

// WithVersion sets the application version string reported by the API.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// Server is the HTTP server for the JSON API and the event stream.
type Server struct {
	net            *network.Network
	classes        *commandclass.Registry
	wsHub          *WSHub
	logger         *slog.Logger
	mux            *http.ServeMux
	apiKey         string
	allowedOrigins []string
	scriptMgr      *automation.Manager
	autoEngine     *automation.Engine
	version        string
	wg             sync.WaitGroup
	unsubEvents    func()
}

// NewServer creates a new web server.
func NewServer(net *network.Network, classes *commandclass.Registry, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		net:     net,
		classes: classes,
		logger:  logger.With("component", "web"),
		mux:     http.NewServeMux(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.wsHub = NewWSHub(s.logger)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.wsHub.Run()
	}()

	// Forward every network event to WebSocket clients.
	s.unsubEvents = net.Events().OnAll(func(event network.Event) {
		s.wsHub.Broadcast(event)
	})

	s.routes()
	return s
}

// Stop gracefully shuts down the WebSocket hub and waits for goroutines.
func (s *Server) Stop() {
	if s.unsubEvents != nil {
		s.unsubEvents()
	}
	s.wsHub.Stop()
	s.wg.Wait()
}

func (s *Server) routes() {
	// Network
	s.mux.HandleFunc("GET /api/network", s.handleAPINetworkInfo)
	s.mux.HandleFunc("POST /api/network/refresh", s.handleAPIRefreshNetwork)
	s.mux.HandleFunc("GET /api/command-classes", s.handleAPIListCommandClasses)
	s.mux.HandleFunc("GET /api/version", s.handleAPIVersion)

	// Nodes
	s.mux.HandleFunc("GET /api/nodes", s.handleAPIListNodes)
	s.mux.HandleFunc("GET /api/nodes/known", s.handleAPIKnownNodes)
	s.mux.HandleFunc("GET /api/nodes/{id}", s.handleAPIGetNode)
	s.mux.HandleFunc("PATCH /api/nodes/{id}", s.handleAPIUpdateNode)
	s.mux.HandleFunc("POST /api/nodes/{id}/refresh", s.handleAPIRefreshNode)
	s.mux.HandleFunc("POST /api/nodes/{id}/test", s.handleAPITestNode)
	s.mux.HandleFunc("POST /api/nodes/{id}/config", s.handleAPISetConfig)
	s.mux.HandleFunc("POST /api/nodes/{id}/config/request", s.handleAPIRequestConfig)

	// Values
	s.mux.HandleFunc("GET /api/nodes/{id}/values", s.handleAPIListValues)
	s.mux.HandleFunc("PUT /api/nodes/{id}/values/{value}", s.handleAPISetValue)
	s.mux.HandleFunc("DELETE /api/nodes/{id}/values/{value}", s.handleAPIRemoveValue)
	s.mux.HandleFunc("POST /api/nodes/{id}/values/{value}/refresh", s.handleAPIRefreshValue)

	// Groups
	s.mux.HandleFunc("GET /api/nodes/{id}/groups", s.handleAPIListGroups)
	s.mux.HandleFunc("POST /api/nodes/{id}/groups/{group}/associations", s.handleAPIAddAssociation)
	s.mux.HandleFunc("DELETE /api/nodes/{id}/groups/{group}/associations/{target}", s.handleAPIRemoveAssociation)

	// Automations
	s.mux.HandleFunc("GET /api/automations", s.handleAPIListAutomations)
	s.mux.HandleFunc("GET /api/automations/{id}", s.handleAPIGetAutomation)
	s.mux.HandleFunc("POST /api/automations", s.handleAPICreateAutomation)
	s.mux.HandleFunc("PUT /api/automations/{id}", s.handleAPIUpdateAutomation)
	s.mux.HandleFunc("DELETE /api/automations/{id}", s.handleAPIDeleteAutomation)
	s.mux.HandleFunc("POST /api/automations/{id}/toggle", s.handleAPIToggleAutomation)
	s.mux.HandleFunc("POST /api/automations/{id}/run", s.handleAPIRunAutomation)

	// WebSocket
	s.mux.HandleFunc("GET /ws", s.handleWS)
}

// ServeHTTP implements http.Handler, applying auth and CORS middleware.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// CORS: check Origin on mutating requests to prevent CSRF.
	if len(s.allowedOrigins) > 0 {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if r.Method == http.MethodOptions {
				// Preflight request.
				if s.isOriginAllowed(origin) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "3600")
					w.WriteHeader(http.StatusNoContent)
					return
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			if r.Method != http.MethodGet {
				if !s.isOriginAllowed(origin) {
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
		}
	}

	if s.apiKey != "" {
		// The WebSocket upgrade cannot carry custom headers from a browser,
		// so only /api/ is key-protected.
		if strings.HasPrefix(r.URL.Path, "/api/") {
			key := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
	}
	s.mux.ServeHTTP(w, r)
}

// isOriginAllowed checks if the origin matches any allowed origin pattern.
func (s *Server) isOriginAllowed(origin string) bool {
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleAPIVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writeJSON encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody reads a JSON request body of at most 1 MB into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(v)
}

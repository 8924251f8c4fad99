// Package server exposes the HTTP surface: a liveness probe and the
// authenticated update endpoint the monitoring node posts to.
package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/pd-ddns/internal/ipv6"
	"github.com/yuriy-kovalchuk/pd-ddns/internal/reconcile"
)

const bearerPrefix = "Bearer "

// Server handles inbound DDNS notifications.
type Server struct {
	token        string
	domain       string
	orchestrator *reconcile.Orchestrator
	log          logr.Logger
}

// New returns a Server gated by token, reporting domain in responses.
func New(token, domain string, orchestrator *reconcile.Orchestrator, log logr.Logger) *Server {
	return &Server{
		token:        token,
		domain:       domain,
		orchestrator: orchestrator,
		log:          log,
	}
}

// Router builds the chi router with all routes and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", s.handleHealthz)
	r.Post("/api", s.handleUpdate)
	return r
}

// accessLog logs one line per completed request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.V(1).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"requestId", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// updateRequest is the body the monitoring node posts: its freshly
// observed global IPv6 address.
type updateRequest struct {
	IPv6 string `json:"ipv6"`
}

// updateResponse reports the whole batch. Per-host errors live inside
// Updated; the HTTP status stays 200 once the gate has passed.
type updateResponse struct {
	OK       bool               `json:"ok"`
	PDPrefix string             `json:"pdPrefix"`
	Domain   string             `json:"domain"`
	Updated  []reconcile.Result `json:"updated"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized: invalid or missing token"})
		return
	}

	var body updateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	addr, err := ipv6.Parse(body.IPv6)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid IPv6: " + err.Error()})
		return
	}
	if addr.IsLinkLocalUnicast() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid IPv6: input must be a global unicast address"})
		return
	}

	pdPrefix, err := ipv6.PDPrefix(body.IPv6)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid IPv6: " + err.Error()})
		return
	}

	s.log.Info("processing update", "pdPrefix", pdPrefix)
	results := s.orchestrator.UpdateAll(r.Context(), pdPrefix)

	writeJSON(w, http.StatusOK, updateResponse{
		OK:       true,
		PDPrefix: pdPrefix,
		Domain:   s.domain,
		Updated:  results,
	})
}

// authorized checks for "Authorization: Bearer <token>" with the exact
// configured token, in constant time.
func (s *Server) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, bearerPrefix) {
		return false
	}
	presented := auth[len(bearerPrefix):]
	return subtle.ConstantTimeCompare([]byte(presented), []byte(s.token)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package api

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sadopc/worklog/internal/cache"
	"github.com/sadopc/worklog/internal/record"
)

// SecretKeyHeader carries the secret key for delete-all.
const SecretKeyHeader = "X-Secret-Key"

const maxBody = 1 << 20

// Service is what the server exposes over HTTP.
type Service interface {
	cache.Backend
	GetAllSettings(ctx context.Context) ([]record.Setting, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Server serves the worklog HTTP API.
type Server struct {
	svc   Service
	log   *zap.Logger
	limit rate.Limit
	burst int
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRateLimit sets the per-client request rate.
func WithRateLimit(perSecond float64, burst int) ServerOption {
	return func(s *Server) {
		s.limit = rate.Limit(perSecond)
		s.burst = burst
	}
}

func NewServer(svc Service, log *zap.Logger, opts ...ServerOption) *Server {
	s := &Server{svc: svc, log: log, limit: 10, burst: 20}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/healthz", s.handleHealth)
	mux.HandleFunc("GET /api/timers", s.handleListTimers)
	mux.HandleFunc("POST /api/timers", s.handleCreateTimer)
	mux.HandleFunc("PUT /api/timers", s.handleUpdateTimer)
	mux.HandleFunc("DELETE /api/timers", s.handleDeleteTimers)
	mux.HandleFunc("GET /api/user", s.handleGetUser)
	mux.HandleFunc("POST /api/user", s.handleSetUser)
	mux.HandleFunc("GET /api/settings", s.handleListSettings)
	mux.HandleFunc("PUT /api/settings", s.handleSetSetting)

	var h http.Handler = mux
	h = RateLimit(s.limit, s.burst)(h)
	h = Logging(s.log)(h)
	h = Recovery(s.log)(h)
	h = RequestID(h)
	return h
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, resp := classify(msg, err)
	if status == http.StatusInternalServerError {
		s.log.Error(msg, zap.Error(err), zap.String("request_id", RequestIDFrom(r.Context())))
	}
	writeErr(w, r, status, resp)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, r, http.StatusBadRequest, errorResp{Error: "Invalid request body", Details: err.Error(), Code: codeValidation, Field: "body"})
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTimers(w http.ResponseWriter, r *http.Request) {
	timers, err := s.svc.ListTimers(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to fetch timers", err)
		return
	}
	if timers == nil {
		timers = []record.Timer{}
	}
	writeJSON(w, http.StatusOK, timers)
}

func (s *Server) handleCreateTimer(w http.ResponseWriter, r *http.Request) {
	var n record.NewTimer
	if !decode(w, r, &n) {
		return
	}
	t, err := s.svc.CreateTimer(r.Context(), n)
	if err != nil {
		s.fail(w, r, "Failed to create timer", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

type updateRequest struct {
	ID string `json:"id"`
	record.TimerUpdate
}

func (s *Server) handleUpdateTimer(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		s.fail(w, r, "Timer ID is required", &record.ValidationError{Field: "id", Msg: "is required"})
		return
	}
	t, err := s.svc.UpdateTimer(r.Context(), req.ID, req.TimerUpdate)
	if err != nil {
		s.fail(w, r, "Failed to update timer", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleDeleteTimers deletes one timer when ?id= is given and every timer
// otherwise. Deleting everything requires the secret key header.
func (s *Server) handleDeleteTimers(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("id"); id != "" {
		if err := s.svc.DeleteTimer(r.Context(), id); err != nil {
			s.fail(w, r, "Failed to delete timer", err)
			return
		}
		writeJSON(w, http.StatusOK, messageResp{Message: "Timer deleted successfully"})
		return
	}

	key := r.Header.Get(SecretKeyHeader)
	if key == "" {
		s.fail(w, r, "Secret key is required", &record.ValidationError{Field: "secretKey", Msg: "is required"})
		return
	}
	if err := s.svc.DeleteAllTimers(r.Context(), key); err != nil {
		s.fail(w, r, "Failed to delete timers", err)
		return
	}
	s.log.Warn("all timers deleted", zap.String("request_id", RequestIDFrom(r.Context())))
	writeJSON(w, http.StatusOK, messageResp{Message: "All timers deleted successfully"})
}

type userResp struct {
	User *record.User `json:"user"`
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.GetUser(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to fetch user", err)
		return
	}
	writeJSON(w, http.StatusOK, userResp{User: u})
}

type secretRequest struct {
	SecretKey string `json:"secretKey"`
}

func (s *Server) handleSetUser(w http.ResponseWriter, r *http.Request) {
	var req secretRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.SetUserSecret(r.Context(), req.SecretKey); err != nil {
		s.fail(w, r, "Failed to save secret key", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResp{Message: "Secret key saved successfully"})
}

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.GetAllSettings(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to fetch settings", err)
		return
	}
	if settings == nil {
		settings = []record.Setting{}
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSetSetting(w http.ResponseWriter, r *http.Request) {
	var st record.Setting
	if !decode(w, r, &st) {
		return
	}
	if st.Key == "" {
		s.fail(w, r, "Setting key is required", &record.ValidationError{Field: "key", Msg: "is required"})
		return
	}
	if err := s.svc.SetSetting(r.Context(), st.Key, st.Value); err != nil {
		s.fail(w, r, "Failed to save setting", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

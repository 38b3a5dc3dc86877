package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/randalmurphal/tripflow/pkg/tripflow"
)

// Server holds the HTTP handlers for the chat API.
type Server struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler builds the chi router over the session manager.
func NewHandler(manager *Manager, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{manager: manager, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Get("/", s.listSessions)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Post("/messages", s.postMessage)
			r.Post("/approval", s.postApproval)
			r.Get("/itinerary", s.downloadItinerary)
			r.Get("/transcript", s.downloadTranscript)
		})
	})

	return r
}

type createSessionRequest struct {
	Message string `json:"message"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type approvalRequest struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback,omitempty"`
}

// sessionResponse is the caller's view of a session after an invocation.
type sessionResponse struct {
	SessionID   string                  `json:"session_id"`
	Status      string                  `json:"status"`
	PendingStep string                  `json:"pending_step,omitempty"`
	Messages    []tripflow.Message      `json:"messages"`
	Flights     []tripflow.FlightOption `json:"flight_options,omitempty"`
	Hotels      []tripflow.HotelOption  `json:"hotel_options,omitempty"`
	Itinerary   *tripflow.Itinerary     `json:"itinerary,omitempty"`
	Error       *tripflow.ErrorRecord   `json:"error,omitempty"`
}

func toResponse(sess *Session) sessionResponse {
	return sessionResponse{
		SessionID:   sess.ID,
		Status:      sess.Status,
		PendingStep: sess.PendingStep,
		Messages:    sess.State.Messages,
		Flights:     sess.State.FlightOptions,
		Hotels:      sess.State.HotelOptions,
		Itinerary:   sess.State.Itinerary,
		Error:       sess.State.Err,
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sess, err := s.manager.Create(r.Context(), req.Message)
	if err != nil {
		s.serveManagerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toResponse(sess))
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	infos, err := s.manager.List()
	if err != nil {
		s.serveManagerError(w, err)
		return
	}

	type item struct {
		SessionID   string `json:"session_id"`
		Status      string `json:"status"`
		PendingStep string `json:"pending_step,omitempty"`
		UpdatedAt   string `json:"updated_at"`
	}
	items := make([]item, 0, len(infos))
	for _, info := range infos {
		items = append(items, item{
			SessionID:   info.SessionID,
			Status:      info.Status,
			PendingStep: info.PendingStep,
			UpdatedAt:   info.UpdatedAt.Format(time.RFC3339),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": items})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.serveManagerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toResponse(sess))
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sess, err := s.manager.Message(r.Context(), chi.URLParam(r, "sessionID"), req.Message)
	if err != nil {
		s.serveManagerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toResponse(sess))
}

func (s *Server) postApproval(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid approval body")
		return
	}

	sess, err := s.manager.Approve(r.Context(), chi.URLParam(r, "sessionID"), req.Approved, req.Feedback)
	if err != nil {
		s.serveManagerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toResponse(sess))
}

func (s *Server) downloadItinerary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	itinerary, err := s.manager.Itinerary(sessionID)
	if err != nil {
		s.serveManagerError(w, err)
		return
	}

	encoded, err := json.MarshalIndent(itinerary, "", "  ")
	if err != nil {
		s.serveManagerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "itinerary-"+sessionID+".json"))
	w.WriteHeader(http.StatusOK)
	w.Write(encoded)
}

func (s *Server) downloadTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := s.manager.Get(sessionID)
	if err != nil {
		s.serveManagerError(w, err)
		return
	}

	var b strings.Builder
	for _, msg := range sess.State.Messages {
		fmt.Fprintf(&b, "[%s] %s\n", msg.Role, msg.Content)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "transcript-"+sessionID+".txt"))
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, b.String())
}

func (s *Server) serveManagerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrApprovalPending), errors.Is(err, ErrNoApprovalPending):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNoItinerary):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
